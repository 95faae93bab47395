package relay

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxFilenameLength bounds sanitized titles, in code points.
const DefaultMaxFilenameLength = 100

const fallbackFilename = "video"

var illegalFilenameChars = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	"\"", "_",
	"/", "_",
	"\\", "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// Sanitize derives a filename stem from untrusted title text: the characters
// < > : " / \ | ? * become "_", surrounding whitespace is trimmed and the
// result is cut to maxLength code points (DefaultMaxFilenameLength when
// maxLength <= 0). Empty and underscore-only results are valid.
func Sanitize(rawTitle string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxFilenameLength
	}
	s := norm.NFC.String(strings.ToValidUTF8(rawTitle, "_"))
	s = illegalFilenameChars.Replace(s)
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxLength {
		s = string([]rune(s)[:maxLength])
	}
	return s
}

// AttachmentFilename builds the download name for a title: the sanitized
// stem with control characters dropped and whitespace runs joined by "_",
// "video" when nothing is left, plus the ".mp4" extension.
func AttachmentFilename(title string, maxLength int) string {
	s := Sanitize(title, maxLength)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		s = fallbackFilename
	}
	return s + ".mp4"
}

// ContentDisposition returns the attachment header value for filename.
// Non-ASCII names get an ASCII filename plus an RFC 5987 filename*.
func ContentDisposition(filename string) string {
	ascii := asciiFallback(filename)
	if ascii == filename {
		return `attachment; filename="` + filename + `"`
	}
	return `attachment; filename="` + ascii + `"; filename*=UTF-8''` + encodeExtValue(filename)
}

// asciiFallback strips diacritics and replaces what remains outside
// printable ASCII with "_".
func asciiFallback(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '_'
		}
		return r
	}, stripped)
}

// encodeExtValue percent-encodes everything but RFC 5987 attr-chars.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
