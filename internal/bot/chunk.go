package bot

import "strings"

// MaxChunkLen is the transport's per-message character limit.
const MaxChunkLen = 4096

// SplitMessage splits s into chunks of at most limit runes, preferring to
// break at the last newline before the boundary, then the last space, then a
// hard cut. Rejoining the trimmed chunks reconstructs the content modulo the
// whitespace consumed at each boundary.
func SplitMessage(s string, limit int) []string {
	if limit <= 0 {
		return []string{s}
	}
	var chunks []string
	runes := []rune(s)
	for len(runes) > limit {
		cut := limit
		window := string(runes[:limit])
		if i := strings.LastIndexByte(window, '\n'); i > 0 {
			cut = len([]rune(window[:i]))
		} else if i := strings.LastIndexByte(window, ' '); i > 0 {
			cut = len([]rune(window[:i]))
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		// Skip the boundary whitespace itself.
		for cut < len(runes) && (runes[cut] == '\n' || runes[cut] == ' ') {
			cut++
		}
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, strings.TrimSpace(string(runes)))
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks
}
