package relay

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"plain title", "Test Video", 100, "Test Video"},
		{"all illegal characters", `a<b>c:d"e/f\g|h?i*j`, 100, "a_b_c_d_e_f_g_h_i_j"},
		{"trims whitespace", "  padded title \t\n", 100, "padded title"},
		{"truncates", "abcdefghij", 4, "abcd"},
		{"truncates by code point", "héllo wörld", 5, "héllo"},
		{"emoji count as one", "🎬🎬🎬🎬", 2, "🎬🎬"},
		{"empty", "", 100, ""},
		{"only illegal", `<>:"/\|?*`, 100, "_________"},
		{"zero max uses default", strings.Repeat("a", 150), 0, strings.Repeat("a", DefaultMaxFilenameLength)},
		{"decomposed input is composed", "Cafe\u0301", 100, "Caf\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input, tt.max); got != tt.expected {
				t.Errorf("Sanitize(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}

func TestSanitize_bounds_and_charset(t *testing.T) {
	inputs := []string{
		strings.Repeat(`<>:"/\|?*`, 40),
		strings.Repeat("日本語のタイトル ", 30),
		"../../etc/passwd",
		"\xff\xfe broken utf8 \x80",
		"CON: the movie? *final* cut",
	}
	for _, in := range inputs {
		for _, max := range []int{1, 10, 100} {
			got := Sanitize(in, max)
			if n := utf8.RuneCountInString(got); n > max {
				t.Errorf("Sanitize(%q, %d) has %d code points", in, max, n)
			}
			if strings.ContainsAny(got, `<>:"/\|?*`) {
				t.Errorf("Sanitize(%q, %d) = %q contains an illegal character", in, max, got)
			}
			if Sanitize(in, max) != got {
				t.Errorf("Sanitize(%q, %d) not deterministic", in, max)
			}
		}
	}
}

func TestAttachmentFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Test Video", "Test_Video.mp4"},
		{"  spaced   out\ttitle ", "spaced_out_title.mp4"},
		{"a/b", "a_b.mp4"},
		{"", "video.mp4"},
		{"   ", "video.mp4"},
		{"line\x00break\x07", "linebreak.mp4"},
		{"???", "___.mp4"},
		{"a\nb", "a_b.mp4"},
		{"Sunset\r\nat the beach", "Sunset_at_the_beach.mp4"},
	}
	for _, tt := range tests {
		if got := AttachmentFilename(tt.title, 100); got != tt.want {
			t.Errorf("AttachmentFilename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestContentDisposition(t *testing.T) {
	if got := ContentDisposition("Test_Video.mp4"); got != `attachment; filename="Test_Video.mp4"` {
		t.Errorf("ascii disposition = %q", got)
	}

	got := ContentDisposition("Café_été.mp4")
	want := `attachment; filename="Cafe_ete.mp4"; filename*=UTF-8''Caf%C3%A9_%C3%A9t%C3%A9.mp4`
	if got != want {
		t.Errorf("utf-8 disposition = %q, want %q", got, want)
	}

	got = ContentDisposition("東京.mp4")
	if !strings.HasPrefix(got, `attachment; filename="__.mp4"; filename*=UTF-8''`) {
		t.Errorf("cjk disposition = %q", got)
	}
}
