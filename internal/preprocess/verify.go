package preprocess

import (
	"strings"

	"jobis/internal/domain"
	"jobis/internal/feed"
)

// Report summarises a consistency check over a cleaned feed.
type Report struct {
	Total           int
	EmptyContent    int
	ResidualMarkers int
	SplitFailures   int
	BySentiment     map[domain.Sentiment]int
	ByKind          map[domain.Kind]int
	Flagged         []string
}

// OK reports whether no item failed a check.
func (r Report) OK() bool {
	return r.EmptyContent == 0 && r.ResidualMarkers == 0 && r.SplitFailures == 0
}

func Verify(items []feed.Item) Report {
	r := Report{
		Total:       len(items),
		BySentiment: map[domain.Sentiment]int{},
		ByKind:      map[domain.Kind]int{},
	}
	for _, it := range items {
		flagged := false
		if strings.TrimSpace(it.Content) == "" {
			r.EmptyContent++
			flagged = true
		}
		if strings.Contains(it.Content, "결측치") {
			r.ResidualMarkers++
			flagged = true
		}
		if len(it.Sentences) == 0 {
			r.SplitFailures++
			flagged = true
		}
		if flagged {
			r.Flagged = append(r.Flagged, it.DataID)
		}
		r.ByKind[domain.Kind(it.Type)]++
		r.BySentiment[domain.ParseSentiment(it.Sentiment)]++
	}
	return r
}
