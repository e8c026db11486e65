package index

import "strings"

// delimiter is the marker line bounding the metadata block at the top of a
// transcript file.
const delimiter = "---"

// SplitFrontmatter separates a transcript document into its leading metadata
// block and the body that follows. The metadata block must start on the very
// first line with the delimiter and is closed by the next delimiter line.
// When the marker pattern is absent the whole document is the body.
func SplitFrontmatter(content string) (frontmatter, body string, found bool) {
	first, rest, ok := strings.Cut(content, "\n")
	if !ok || strings.TrimRight(first, " \t\r") != delimiter {
		return "", content, false
	}

	lines := strings.Split(rest, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, " \t\r") == delimiter {
			return strings.Join(lines[:i], "\n"), strings.Join(lines[i+1:], "\n"), true
		}
	}

	return "", content, false
}
