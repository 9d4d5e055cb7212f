package transfer

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/dispatcher"
	"github.com/marmos91/remotefs/pkg/native"
	"golang.org/x/sync/errgroup"
)

// Entry is a directory entry with, when available, its attributes.
type Entry struct {
	Name string           `json:"name" yaml:"name"`
	Type native.EntryType `json:"type" yaml:"type"`

	// Stat is nil for entries that cannot be stat'ed, such as shares
	// listed at a server root.
	Stat *native.Stat `json:"stat,omitempty" yaml:"stat,omitempty"`
}

// ReadDir returns the entries of the directory at rawURL in the order the
// backend yields them.
func ReadDir(ctx context.Context, d *dispatcher.Dispatcher, rawURL string) (entries []native.Dirent, err error) {
	id, err := d.Opendir(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := d.Closedir(ctx, id); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for {
		ent, ok, err := d.ReaddirEntry(ctx, id)
		if err != nil {
			return entries, err
		}
		if !ok {
			return entries, nil
		}
		entries = append(entries, ent)
	}
}

// ListDetailed lists the directory at rawURL sorted by name and stats every
// file and directory entry concurrently. A failed stat leaves Stat nil and
// is logged; only the listing itself can fail the call.
func ListDetailed(ctx context.Context, d *dispatcher.Dispatcher, rawURL string, opts Options) ([]Entry, error) {
	dirents, err := ReadDir(ctx, d, rawURL)
	if err != nil {
		return nil, err
	}
	sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name < dirents[j].Name })

	out := make([]Entry, len(dirents))
	base := strings.TrimSuffix(rawURL, "/") + "/"

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.parallelStats())

	for i, de := range dirents {
		out[i] = Entry{Name: de.Name, Type: de.Type}
		if de.Type != native.EntryFile && de.Type != native.EntryDir {
			continue
		}
		i, name := i, de.Name
		g.Go(func() error {
			st, err := d.URLStat(gctx, base+url.PathEscape(name))
			if err != nil {
				logger.DebugCtx(gctx, "Stat failed while listing", logger.KeyName, name, logger.Err(err))
				return nil
			}
			out[i].Stat = &st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
