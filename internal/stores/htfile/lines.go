package htfile

import "strings"

type lineAction int

const (
	// replaceLine writes the new record over the first match.
	replaceLine lineAction = iota
	// keepLine leaves the first match as it is.
	keepLine
	// dropLine removes the first match.
	dropLine
)

// splitLines breaks data into lines without terminators. The line ending
// is taken from the last line and defaults to "\n".
func splitLines(data []byte) ([]string, string) {
	eol := "\n"
	text := string(data)
	if text == "" {
		return nil, eol
	}

	raw := strings.SplitAfter(text, "\n")
	if raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	if strings.HasSuffix(raw[len(raw)-1], "\r\n") {
		eol = "\r\n"
	}

	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimRight(l, "\r\n")
	}
	return lines, eol
}

// rewrite applies action to the first line starting with prefix and drops
// any later duplicates. Without a match, record is appended unless the
// action is dropLine. Every line ends with eol in the result.
func rewrite(lines []string, eol, prefix, record string, action lineAction) ([]byte, bool) {
	var b strings.Builder
	matched := false

	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			if !matched {
				switch action {
				case replaceLine:
					b.WriteString(record + eol)
				case keepLine:
					b.WriteString(line + eol)
				}
			}
			matched = true
			continue
		}
		b.WriteString(line + eol)
	}

	if !matched && action != dropLine {
		b.WriteString(record + eol)
	}
	return []byte(b.String()), matched
}
