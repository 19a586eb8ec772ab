package assembler

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"jobis/internal/domain"
)

func rec(entity, text string) domain.Record {
	return domain.Record{Text: text, Metadata: domain.Metadata{EntityName: entity}}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		maxChars int
		records  []domain.Record
		want     string
	}{
		{
			name: "empty input",
			want: "",
		},
		{
			name:    "single record",
			records: []domain.Record{rec("Acme Corp", "Acme Corp offers unlimited vacation")},
			want:    "[Acme Corp]\nAcme Corp offers unlimited vacation",
		},
		{
			name:    "order preserved",
			records: []domain.Record{rec("B", "second best"), rec("A", "best")},
			want:    "[B]\nsecond best\n\n[A]\nbest",
		},
		{
			name:     "overflowing block dropped",
			maxChars: 20,
			records:  []domain.Record{rec("A", "short"), rec("B", "this one does not fit")},
			want:     "[A]\nshort",
		},
		{
			name:     "first block truncated on rune boundary",
			maxChars: 8,
			records:  []domain.Record{rec("회사", "복지가 정말 좋습니다")},
			want:     "[회사]\n복지가",
		},
		{
			name:     "exact fit",
			maxChars: len("[A]\nx\n\n[B]\ny"),
			records:  []domain.Record{rec("A", "x"), rec("B", "y")},
			want:     "[A]\nx\n\n[B]\ny",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.maxChars).Format(tt.records)
			assert.Equal(t, tt.want, got)
			if tt.maxChars > 0 {
				assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.maxChars)
			}
		})
	}
}

func TestFormat_UnboundedKeepsEverything(t *testing.T) {
	records := make([]domain.Record, 50)
	for i := range records {
		records[i] = rec("E", strings.Repeat("가", 200))
	}
	got := New(0).Format(records)
	assert.Equal(t, 50, strings.Count(got, "[E]"))
}

func TestFormat_DefaultBudget(t *testing.T) {
	records := make([]domain.Record, 100)
	for i := range records {
		records[i] = rec("E", strings.Repeat("a", 100))
	}
	got := New(DefaultMaxChars).Format(records)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), DefaultMaxChars)
	assert.True(t, strings.HasSuffix(got, strings.Repeat("a", 100)))
}
