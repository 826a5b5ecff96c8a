package extract

import "strings"

// CleanModelJSON strips the decoration models wrap around JSON output:
// think tags, markdown fences, leading and trailing prose. It returns
// the outermost JSON object or array it can find, or the trimmed input
// when none exists (the caller's unmarshal reports the real error).
func CleanModelJSON(s string) string {
	s = stripTagBlocks(s, "think")
	s = stripTagBlocks(s, "thinking")

	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	var closer byte = '}'
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// stripTagBlocks removes every <tag>...</tag> block, tolerating an
// unclosed final tag.
func stripTagBlocks(s, tag string) string {
	open, close := "<"+tag+">", "</"+tag+">"
	for {
		start := strings.Index(s, open)
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], close)
		if end < 0 {
			return s[:start]
		}
		s = s[:start] + s[start+end+len(close):]
	}
}
