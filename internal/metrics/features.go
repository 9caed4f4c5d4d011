// Package metrics holds local text features and the OpenTelemetry
// instruments recorded around tool dispatch and model calls.
package metrics

import (
	"path"
	"strings"
	"unicode/utf8"
)

// FeaturesVersion is bumped whenever the meaning of a Features field changes.
// Version 2 added Paths.
const FeaturesVersion = "2"

// Features are size counts of an instruction. They never carry its text.
type Features struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	Lines int `json:"lines"`
	// Paths counts words that look like file paths: they contain a slash or
	// end in a short extension such as ".txt".
	Paths int `json:"paths"`
}

// CountFeatures computes the features of s.
func CountFeatures(s string) Features {
	words := strings.Fields(s)
	f := Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(words),
	}
	if s != "" {
		f.Lines = 1 + strings.Count(s, "\n")
	}
	for _, w := range words {
		if pathLike(w) {
			f.Paths++
		}
	}
	return f
}

// Fields renders f for a telemetry event.
func (f Features) Fields() map[string]any {
	return map[string]any{
		"bytes": f.Bytes,
		"runes": f.Runes,
		"words": f.Words,
		"lines": f.Lines,
		"paths": f.Paths,
	}
}

func pathLike(w string) bool {
	w = strings.Trim(w, "\"'`,;:()[]{}")
	if w == "" {
		return false
	}
	if strings.Contains(w, "/") {
		return true
	}
	ext := path.Ext(w)
	return len(ext) > 1 && len(ext) <= 6 && len(ext) < len(w)
}
