package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/marmos91/remotefs/pkg/smburl"
	"github.com/spf13/cobra"
)

var (
	mkdirMode    string
	mkdirParents bool
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <url>...",
	Short: "Create directories",
	Long: `Create one or more remote directories.

Examples:
  rfs mkdir smb://fileserver/docs/2024

  # Create missing parents, ignore existing directories
  rfs mkdir -p -m 0750 smb://fileserver/docs/2024/q1/reports`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMkdir,
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <url>...",
	Short: "Remove empty directories",
	Long: `Remove one or more empty remote directories.

Examples:
  rfs rmdir smb://fileserver/docs/old`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRmdir,
}

func init() {
	mkdirCmd.Flags().StringVarP(&mkdirMode, "mode", "m", "0755", "Permission bits in octal")
	mkdirCmd.Flags().BoolVarP(&mkdirParents, "parents", "p", false, "Create parent directories as needed")
}

// PathsResult is printed for JSON and YAML output of mkdir and rmdir.
type PathsResult struct {
	Created []string `json:"created,omitempty" yaml:"created,omitempty"`
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

func runMkdir(cmd *cobra.Command, args []string) error {
	mode, err := native.ParsePerm(mkdirMode)
	if err != nil {
		return err
	}
	urls, err := resolveAll(args)
	if err != nil {
		return err
	}

	var result PathsResult
	err = cmdutil.WithClient(cmd.Context(), func(ctx context.Context, c *cmdutil.Client) error {
		for _, rawURL := range urls {
			targets := []string{rawURL}
			if mkdirParents {
				targets = parentChain(rawURL)
			}
			for _, target := range targets {
				err := c.Mkdir(ctx, target, mode)
				if mkdirParents && fserrors.CodeOf(err) == fserrors.ErrAlreadyExists {
					continue
				}
				if err != nil {
					return err
				}
				result.Created = append(result.Created, cmdutil.Redact(target))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), result,
		fmt.Sprintf("Created %d director(ies)", len(result.Created)))
}

func runRmdir(cmd *cobra.Command, args []string) error {
	urls, err := resolveAll(args)
	if err != nil {
		return err
	}

	var result PathsResult
	err = cmdutil.WithClient(cmd.Context(), func(ctx context.Context, c *cmdutil.Client) error {
		for _, rawURL := range urls {
			if err := c.Rmdir(ctx, rawURL); err != nil {
				return err
			}
			result.Removed = append(result.Removed, cmdutil.Redact(rawURL))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), result,
		fmt.Sprintf("Removed %d director(ies)", len(result.Removed)))
}

// parentChain returns the URLs of every directory from the first one below
// the share down to rawURL itself.
func parentChain(rawURL string) []string {
	c := smburl.Parse(rawURL)
	share, rest, _ := strings.Cut(strings.Trim(c.Path, "/"), "/")
	if rest == "" {
		return []string{rawURL}
	}

	var chain []string
	prefix := share
	for _, seg := range strings.Split(rest, "/") {
		if seg == "" {
			continue
		}
		prefix += "/" + seg
		next := c
		next.Path = prefix
		chain = append(chain, next.Raw())
	}
	return chain
}

// resolveAll resolves credentials for every argument.
func resolveAll(args []string) ([]string, error) {
	urls := make([]string, 0, len(args))
	for _, arg := range args {
		rawURL, err := cmdutil.ResolveURL(arg)
		if err != nil {
			return nil, err
		}
		urls = append(urls, rawURL)
	}
	return urls, nil
}
