package smburl

import "strings"

// Unescape decodes "%HH" sequences and "+" as a space. "%%" yields a single
// "%". Invalid escapes are left untouched instead of failing, unlike
// net/url.QueryUnescape. It is applied to passwords.
func Unescape(s string) string {
	return unescape(s, true)
}

// UnescapePath decodes "%HH" sequences in a path and keeps "+" literal.
func UnescapePath(s string) string {
	return unescape(s, false)
}

func unescape(s string, plusIsSpace bool) string {
	special := "%"
	if plusIsSpace {
		special = "%+"
	}
	if !strings.ContainsAny(s, special) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+':
			if plusIsSpace {
				b.WriteByte(' ')
			} else {
				b.WriteByte('+')
			}
		case '%':
			if i+1 < len(s) && s[i+1] == '%' {
				b.WriteByte('%')
				i++
				continue
			}
			if i+2 < len(s) {
				hi, okHi := unhex(s[i+1])
				lo, okLo := unhex(s[i+2])
				if okHi && okLo {
					b.WriteByte(hi<<4 | lo)
					i += 2
					continue
				}
			}
			b.WriteByte('%')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
