package command

import "strings"

// Tokenize splits one input line into words delimited by ASCII space
// only, in order. An empty line yields no words.
// Equivalent to C's strtok_r(line, " ", ...): consecutive spaces
// collapse and leading/trailing spaces produce no empty words.
func Tokenize(line string) []string {
	raw := strings.Split(line, " ")
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
