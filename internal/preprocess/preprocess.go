package preprocess

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"jobis/internal/domain"
	"jobis/internal/feed"
)

// Company is one entry of the raw synthetic dataset.
type Company struct {
	CompanyID   string    `json:"company_id"`
	CompanyName string    `json:"company_name"`
	Industry    string    `json:"industry"`
	Data        []RawItem `json:"data"`
}

type RawItem struct {
	Type      string        `json:"type"`
	DataID    string        `json:"data_id"`
	Review    *RawReview    `json:"review,omitempty"`
	Interview *RawInterview `json:"interview,omitempty"`
}

type RawReview struct {
	Title string  `json:"re_title"`
	Adv   string  `json:"re_adv"`
	Dis   string  `json:"re_dis"`
	Score *int    `json:"re_score"`
	Date  *string `json:"re_date"`
}

type RawInterview struct {
	Title string `json:"in_title"`
	Query string `json:"in_query"`
}

func Decode(r io.Reader) ([]Company, error) {
	var companies []Company
	if err := json.NewDecoder(r).Decode(&companies); err != nil {
		return nil, fmt.Errorf("decode raw data: %w", err)
	}
	return companies, nil
}

var (
	missingMarker = regexp.MustCompile(`\([^)]*결측치[^)]*\)`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Clean removes parenthesised missing-value markers and collapses whitespace.
func Clean(text string) string {
	text = missingMarker.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// Stats counts what Process did with the input.
type Stats struct {
	Companies    int
	Items        int
	Kept         int
	DroppedEmpty int
	UnknownType  int
}

// Processor converts raw company data into the cleaned feed.
type Processor struct {
	splitter *SentenceSplitter
}

func NewProcessor() *Processor {
	return &Processor{splitter: NewSentenceSplitter()}
}

func (p *Processor) Process(companies []Company) ([]feed.Item, Stats) {
	var (
		out   []feed.Item
		stats Stats
	)
	for _, c := range companies {
		stats.Companies++
		for _, raw := range c.Data {
			stats.Items++
			item := feed.Item{
				CompanyID:   c.CompanyID,
				CompanyName: c.CompanyName,
				Industry:    c.Industry,
				Type:        raw.Type,
				DataID:      raw.DataID,
			}
			var body bool
			switch domain.Kind(raw.Type) {
			case domain.KindReview:
				var rv RawReview
				if raw.Review != nil {
					rv = *raw.Review
				}
				adv, dis := Clean(rv.Adv), Clean(rv.Dis)
				score := 0
				if rv.Score != nil {
					score = *rv.Score
				}
				item.Score = rv.Score
				item.Date = rv.Date
				item.Sentiment = string(domain.SentimentForScore(score))
				item.Content = strings.TrimSpace(fmt.Sprintf("장점: %s 단점: %s", adv, dis))
				body = adv != "" || dis != ""
			case domain.KindInterview:
				var iv RawInterview
				if raw.Interview != nil {
					iv = *raw.Interview
				}
				title, query := Clean(iv.Title), Clean(iv.Query)
				item.Sentiment = string(domain.SentimentNeutral)
				item.Content = fmt.Sprintf("면접 질문: %s 답변/후기: %s", query, title)
				body = title != "" || query != ""
			default:
				stats.UnknownType++
				continue
			}
			if !body {
				stats.DroppedEmpty++
				continue
			}
			item.Sentences = p.splitter.Split(item.Content)
			out = append(out, item)
			stats.Kept++
		}
	}
	return out, stats
}
