package assembler

import (
	"strings"
	"unicode/utf8"

	"jobis/internal/domain"
)

const (
	DefaultMaxChars = 6000
	separator       = "\n\n"
)

// Assembler turns retrieved records into one provenance-tagged context block.
type Assembler struct {
	// MaxChars bounds the output length in runes. Zero means unbounded.
	MaxChars int
}

func New(maxChars int) *Assembler {
	if maxChars < 0 {
		maxChars = 0
	}
	return &Assembler{MaxChars: maxChars}
}

// Format renders each record as "[entity]\ntext", keeping input order.
// Blocks that would overflow MaxChars are dropped; only a first block that
// alone exceeds the budget is cut short.
func (a *Assembler) Format(records []domain.Record) string {
	var (
		b    strings.Builder
		used int
	)
	for i, r := range records {
		block := "[" + r.Metadata.EntityName + "]\n" + r.Text
		cost := utf8.RuneCountInString(block)
		if i > 0 {
			cost += utf8.RuneCountInString(separator)
		}
		if a.MaxChars > 0 && used+cost > a.MaxChars {
			if i == 0 {
				b.WriteString(truncate(block, a.MaxChars))
			}
			break
		}
		if i > 0 {
			b.WriteString(separator)
		}
		b.WriteString(block)
		used += cost
	}
	return b.String()
}

func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
