// Package smburl decomposes remote filesystem URLs of the form
//
//	scheme://[user[:password]@]host[:port]/share/path
//
// into their components. Parsing never fails: malformed input degrades to
// empty fields, and callers decide which fields they require.
package smburl

import (
	"net/url"
	"path"
	"strings"
)

// Components holds the parts of a parsed URL. Absent parts are empty.
//
// Only Password is percent-decoded. User, Host, Port and Path are kept as
// written so that user names containing "+" or "%" reach authentication
// unchanged and the canonical remote path is byte-identical to the input.
type Components struct {
	Protocol string
	User     string
	Password string
	Host     string
	Port     string
	Path     string
}

// Parse splits raw into its components.
//
// The protocol is separated on the first "://". Without it the whole input
// is treated as a local path. The authority ends at the first "/", the
// credentials end at the last "@", user and password are separated by the
// first ":" and host and port by the last ":".
func Parse(raw string) Components {
	var c Components

	proto, rest, ok := strings.Cut(raw, "://")
	if !ok {
		c.Path = raw
		return c
	}
	c.Protocol = proto

	authority, p, _ := strings.Cut(rest, "/")
	c.Path = p

	hostport := authority
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		creds := authority[:i]
		hostport = authority[i+1:]

		user, password, _ := strings.Cut(creds, ":")
		c.User = user
		c.Password = Unescape(password)
	}

	if i := strings.LastIndex(hostport, ":"); i >= 0 {
		c.Host = hostport[:i]
		c.Port = hostport[i+1:]
	} else {
		c.Host = hostport
	}

	return c
}

// IsLocal reports whether the input carried no protocol.
func (c Components) IsLocal() bool {
	return c.Protocol == ""
}

// RemotePath returns the credential-free canonical target
// "<protocol>://<host>/<path>" handed to the native layer.
func (c Components) RemotePath() string {
	return c.Protocol + "://" + c.Host + "/" + c.Path
}

// Share returns the first segment of the path.
func (c Components) Share() string {
	share, _, _ := strings.Cut(c.Path, "/")
	return share
}

// String renders the URL back with the password redacted. It is meant for
// logs and error messages.
func (c Components) String() string {
	if c.IsLocal() {
		return c.Path
	}
	var b strings.Builder
	b.WriteString(c.Protocol)
	b.WriteString("://")
	if c.User != "" || c.Password != "" {
		b.WriteString(c.User)
		if c.Password != "" {
			b.WriteString(":xxxxx")
		}
		b.WriteByte('@')
	}
	b.WriteString(c.Host)
	if c.Port != "" {
		b.WriteByte(':')
		b.WriteString(c.Port)
	}
	b.WriteByte('/')
	b.WriteString(c.Path)
	return b.String()
}

// Raw renders the URL with its password escaped so that Parse recovers it
// unchanged. The user is written as is. Unlike String it does not redact the password.
func (c Components) Raw() string {
	if c.IsLocal() {
		return c.Path
	}
	var b strings.Builder
	b.WriteString(c.Protocol)
	b.WriteString("://")
	if c.User != "" || c.Password != "" {
		b.WriteString(c.User)
		if c.Password != "" {
			b.WriteByte(':')
			b.WriteString(url.QueryEscape(c.Password))
		}
		b.WriteByte('@')
	}
	b.WriteString(c.Host)
	if c.Port != "" {
		b.WriteByte(':')
		b.WriteString(c.Port)
	}
	b.WriteByte('/')
	b.WriteString(c.Path)
	return b.String()
}

// WithUser returns a copy of c carrying user.
func (c Components) WithUser(user string) Components {
	c.User = user
	return c
}

// WithPassword returns a copy of c carrying password.
func (c Components) WithPassword(password string) Components {
	c.Password = password
	return c
}

// Location is the decoded target of a canonical remote path, as native
// drivers address it.
type Location struct {
	Protocol string
	Host     string
	Share    string
	// Path is relative to the share root, slash separated and cleaned.
	// The share root itself is the empty string.
	Path string
}

// SplitRemotePath decodes a canonical remote path produced by RemotePath.
// Path segments are percent-decoded and "." / ".." are resolved without
// escaping the share.
func SplitRemotePath(remote string) Location {
	c := Parse(remote)
	share, rest, _ := strings.Cut(c.Path, "/")

	rel := path.Clean("/" + UnescapePath(rest))
	rel = strings.TrimPrefix(rel, "/")

	return Location{
		Protocol: c.Protocol,
		Host:     c.Host,
		Share:    UnescapePath(share),
		Path:     rel,
	}
}

// IsShareRoot reports whether the location addresses the share itself.
func (l Location) IsShareRoot() bool {
	return l.Path == ""
}
