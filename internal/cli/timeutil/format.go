// Package timeutil provides time formatting utilities for CLI output.
package timeutil

import (
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// RecentFormat is used for times within six months of now, as ls -l does.
	RecentFormat = "Jan _2 15:04"
	// OldFormat is used for older times and for times in the future.
	OldFormat = "Jan _2  2006"
)

// recent is how far back RecentFormat applies.
const recent = 182 * 24 * time.Hour

// FormatModTime formats a modification time in local time, ls -l style.
// The zero time renders as "-".
func FormatModTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.Local()
	if t.After(now) || now.Sub(t) > recent {
		return t.Format(OldFormat)
	}
	return t.Format(RecentFormat)
}

// FormatRelative renders t relative to now, e.g. "3 minutes ago".
// The zero time renders as "-".
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
