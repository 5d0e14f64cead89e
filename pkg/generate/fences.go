package generate

import "strings"

// StripCodeFences returns the body of the first Markdown code fence in text, or
// the trimmed text when it holds no fence. An unterminated fence runs to the end.
func StripCodeFences(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i
			break
		}
	}
	if start < 0 {
		return strings.TrimSpace(text)
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}

	return strings.TrimSpace(strings.Join(lines[start+1:end], "\n"))
}
