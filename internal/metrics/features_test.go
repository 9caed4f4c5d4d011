package metrics_test

import (
	"testing"

	"github.com/petasbytes/fsagent/internal/metrics"
)

func TestCountFeatures(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want metrics.Features
	}{
		{"empty", "", metrics.Features{}},
		{"ascii", "hello world", metrics.Features{Bytes: 11, Runes: 11, Words: 2, Lines: 1}},
		{"multibyte", "héllö 世界", metrics.Features{Bytes: 14, Runes: 8, Words: 2, Lines: 1}},
		{"lines without trailing newline", "a\nb\ncd", metrics.Features{Bytes: 6, Runes: 6, Words: 3, Lines: 3}},
		{"trailing newline opens a line", "a\nb\n", metrics.Features{Bytes: 4, Runes: 4, Words: 2, Lines: 3}},
		{"tabs and runs of spaces", "  foo\tbar   baz  ", metrics.Features{Bytes: 17, Runes: 17, Words: 3, Lines: 1}},
		{"nbsp splits words", "foo\u00A0bar", metrics.Features{Bytes: 8, Runes: 7, Words: 2, Lines: 1}},
		{"em space splits words", "foo\u2003bar", metrics.Features{Bytes: 9, Runes: 7, Words: 2, Lines: 1}},
		{"zero width space does not", "foo\u200Bbar", metrics.Features{Bytes: 9, Runes: 7, Words: 1, Lines: 1}},
		{"only whitespace", " \t\n", metrics.Features{Bytes: 3, Runes: 3, Lines: 2}},
		{"crlf", "a\r\nb\r\nc", metrics.Features{Bytes: 7, Runes: 7, Words: 3, Lines: 3}},
		{"astral emoji", "👍👍", metrics.Features{Bytes: 8, Runes: 2, Words: 1, Lines: 1}},
		{"combining mark", "e\u0301", metrics.Features{Bytes: 3, Runes: 2, Words: 1, Lines: 1}},
		{
			"paths and extensions",
			"move notes/a.txt to 'b.md', then stop.",
			metrics.Features{Bytes: 38, Runes: 38, Words: 6, Lines: 1, Paths: 2},
		},
		{"directory with trailing slash", "list src/", metrics.Features{Bytes: 9, Runes: 9, Words: 2, Lines: 1, Paths: 1}},
		{"dotfile and abbreviation", ".env e.g. v1.", metrics.Features{Bytes: 13, Runes: 13, Words: 3, Lines: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := metrics.CountFeatures(tc.in); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestFeatures_Fields(t *testing.T) {
	got := metrics.CountFeatures("read a/b c").Fields()
	want := map[string]any{"bytes": 10, "runes": 10, "words": 3, "lines": 1, "paths": 1}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %v, want %v", k, got[k], v)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected keys: %v", got)
	}
}
