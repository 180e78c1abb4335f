package indexer

import "strings"

// Preprocess normalizes raw document text before chunking: line endings
// become \n, trailing whitespace is stripped per line, and runs of blank
// lines collapse to a single paragraph break. Paragraph structure is kept
// because the chunker splits on blank lines.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	var b strings.Builder
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			continue
		}
		if b.Len() > 0 {
			if blanks > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		blanks = 0
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String())
}
