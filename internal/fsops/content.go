package fsops

import (
	"os"
	"strings"

	"github.com/petasbytes/fsagent/internal/safety"
)

// KeywordCount is the case-insensitive occurrence count of one keyword.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// DeleteLines rewrites p without the lines that contain text and returns how many were removed.
func (w *Workspace) DeleteLines(p, text string) (int, error) {
	if text == "" {
		return 0, safety.InvalidArguments("text must not be empty")
	}
	abs, err := w.regularFile("delete content", p)
	if err != nil {
		return 0, err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return 0, safety.FileSystemError("delete content", p, err)
	}

	lines := strings.SplitAfter(string(b), "\n")
	kept := lines[:0]
	removed := 0
	for _, line := range lines {
		if strings.Contains(line, text) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		return 0, nil
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return 0, safety.FileSystemError("delete content", p, err)
	}
	if err := os.WriteFile(abs, []byte(strings.Join(kept, "")), fi.Mode().Perm()); err != nil {
		return 0, safety.FileSystemError("delete content", p, err)
	}
	return removed, nil
}

// Analyze counts case-insensitive, non-overlapping occurrences of each keyword in p.
// Blank keywords are ignored; the result keeps the caller's order.
func (w *Workspace) Analyze(p string, keywords []string) ([]KeywordCount, error) {
	content, err := w.Read(p)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(content)

	counts := make([]KeywordCount, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		counts = append(counts, KeywordCount{Keyword: k, Count: strings.Count(lower, strings.ToLower(k))})
	}
	return counts, nil
}

// Replace substitutes every occurrence of old with repl in p and returns the count.
func (w *Workspace) Replace(p, old, repl string) (int, error) {
	if old == "" {
		return 0, safety.InvalidArguments("old_str must not be empty")
	}
	if old == repl {
		return 0, safety.InvalidArguments("old_str and new_str must differ")
	}
	abs, err := w.regularFile("edit", p)
	if err != nil {
		return 0, err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return 0, safety.FileSystemError("edit", p, err)
	}
	n := strings.Count(string(b), old)
	if n == 0 {
		return 0, safety.InvalidArguments("old_str not found in %s", p)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return 0, safety.FileSystemError("edit", p, err)
	}
	if err := os.WriteFile(abs, []byte(strings.ReplaceAll(string(b), old, repl)), fi.Mode().Perm()); err != nil {
		return 0, safety.FileSystemError("edit", p, err)
	}
	return n, nil
}
