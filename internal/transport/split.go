package transport

import "strings"

// SplitText cuts s into chunks of at most limit runes. A cut prefers the last
// newline past the first third of the window; with html set it also backs off
// to before an unclosed tag. Newlines at chunk edges are dropped and empty
// chunks skipped. It always returns at least one chunk.
func SplitText(s string, limit int, html bool) []string {
	rs := []rune(s)
	if limit <= 0 || len(rs) <= limit {
		return []string{s}
	}
	var out []string
	for len(rs) > 0 {
		cut := len(rs)
		if cut > limit {
			cut = newlineCut(rs[:limit])
			if html {
				cut = tagCut(rs[:cut])
			}
		}
		if chunk := strings.TrimRight(string(rs[:cut]), "\n"); chunk != "" {
			out = append(out, chunk)
		}
		rs = rs[cut:]
		for len(rs) > 0 && rs[0] == '\n' {
			rs = rs[1:]
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

func newlineCut(w []rune) int {
	for i := len(w) - 1; i > 0 && i >= len(w)/3; i-- {
		if w[i] == '\n' {
			return i + 1
		}
	}
	return len(w)
}

func tagCut(w []rune) int {
	open, closed := -1, -1
	for i, r := range w {
		switch r {
		case '<':
			open = i
		case '>':
			closed = i
		}
	}
	if open > closed && open > 1 {
		return open
	}
	return len(w)
}
