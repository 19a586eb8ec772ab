package preprocess

import (
	"regexp"
	"strings"
)

// SentenceSplitter breaks text after '.', '?' or '!' when whitespace follows.
type SentenceSplitter struct {
	boundary *regexp.Regexp
}

func NewSentenceSplitter() *SentenceSplitter {
	return &SentenceSplitter{boundary: regexp.MustCompile(`[.?!]\s+`)}
}

func (s *SentenceSplitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var (
		out  []string
		last int
	)
	for _, loc := range s.boundary.FindAllStringIndex(text, -1) {
		// keep the punctuation, drop the whitespace
		if sentence := strings.TrimSpace(text[last : loc[0]+1]); sentence != "" {
			out = append(out, sentence)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
