package accept

import "strings"

// newRunIDPrefix is the label the external tool prints in front of the new
// run id on a real replay. Older builds print the bare id instead.
const newRunIDPrefix = "NEW_RUN_ID:"

// ParseNewRunID extracts the new run identifier from real-replay stdout.
// The id is the last non-empty line, whitespace-trimmed, with an optional
// NEW_RUN_ID: prefix stripped. Returns "" when the output carries no id.
func ParseNewRunID(output string) string {
	line := lastNonEmptyLine(output)
	if rest, ok := strings.CutPrefix(line, newRunIDPrefix); ok {
		return strings.TrimSpace(rest)
	}
	return line
}

// lastNonEmptyLine returns the last line of s that is not blank after
// trimming, or "".
func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
