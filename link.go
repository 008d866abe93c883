package linkdex

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// redirectPrefixes are the link wrappers the published spreadsheet puts in
// front of every outbound hyperlink.
var redirectPrefixes = []string{
	"https://www.google.com/url?q=",
	"http://www.google.com/url?q=",
}

// externalIDPattern matches the storage-provider folder id embedded in a link.
var externalIDPattern = regexp.MustCompile(`folder/([^#]+)`)

// NormalizedLink is the result of NormalizeLink.
type NormalizedLink struct {
	// URL is the unwrapped link with percent escapes decoded, except escapes
	// of reserved URI characters such as %23 and %2F.
	URL string

	// ExternalID is the embedded resource id, or empty when the link has none.
	ExternalID string
}

// NormalizeLink strips a redirect wrapper from raw, decodes percent escapes in
// what is left and extracts the embedded folder id if one is present.
//
// NormalizeLink never fails: input that matches no known wrapper is passed
// through decoded, and input that cannot be decoded is passed through as-is.
func NormalizeLink(raw string) NormalizedLink {
	link := strings.TrimSpace(raw)

	for _, prefix := range redirectPrefixes {
		if rest, ok := strings.CutPrefix(link, prefix); ok {
			// The wrapper appends its own tracking parameters after the
			// wrapped target, so everything from the first '&' is noise.
			link, _, _ = strings.Cut(rest, "&")
			break
		}
	}

	if decoded, ok := decodeURI(link); ok {
		link = decoded
	}

	var externalID string
	if m := externalIDPattern.FindStringSubmatch(link); m != nil {
		externalID = m[1]
	}

	return NormalizedLink{URL: link, ExternalID: externalID}
}

// reservedURI holds the characters whose escapes decodeURI leaves encoded.
const reservedURI = ";/?:@&=+$,#"

// decodeURI decodes percent escapes in s but keeps escapes of reserved
// characters, so an encoded '#' or '/' does not change the link structure.
// It reports false for a malformed escape or when the result is not UTF-8.
func decodeURI(s string) (string, bool) {
	if !strings.Contains(s, "%") {
		return s, true
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			return "", false
		}
		c := unhex(s[i+1])<<4 | unhex(s[i+2])
		if c < utf8.RuneSelf && strings.IndexByte(reservedURI, c) >= 0 {
			b.WriteString(s[i : i+3])
		} else {
			b.WriteByte(c)
		}
		i += 2
	}

	out := b.String()
	if !utf8.ValidString(out) {
		return "", false
	}
	return out, true
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// resolvable reports whether link can be materialized as a catalog entry.
func resolvable(link string) bool {
	if link == "" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
