package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"jobis/internal/domain"
)

// Item is one entry of the cleaned-record feed.
type Item struct {
	CompanyID   string   `json:"company_id"`
	CompanyName string   `json:"company_name"`
	Industry    string   `json:"industry"`
	Type        string   `json:"type"`
	DataID      string   `json:"data_id"`
	Content     string   `json:"content"`
	Sentences   []string `json:"sentences"`
	Sentiment   string   `json:"sentiment"`
	Score       *int     `json:"score,omitempty"`
	Date        *string  `json:"date,omitempty"`
}

func Decode(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return items, nil
}

func Load(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Write encodes items as indented JSON, keeping non-ASCII text readable.
func Write(w io.Writer, items []Item) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// ToRecord converts one item. Unknown industries map to domain.CategoryOther;
// the second return value reports whether that happened.
func ToRecord(it Item) (domain.Record, bool, error) {
	kind, err := domain.ParseKind(it.Type)
	if err != nil {
		return domain.Record{}, false, err
	}
	score := 0
	if it.Score != nil {
		score = *it.Score
	}
	date := ""
	if it.Date != nil {
		date = *it.Date
	}
	category, known := domain.ParseCategory(it.Industry)
	if !known {
		category = domain.CategoryOther
	}
	sentiment := domain.ParseSentiment(it.Sentiment)
	if strings.TrimSpace(it.Sentiment) == "" && kind == domain.KindReview {
		sentiment = domain.SentimentForScore(score)
	}

	rec := domain.Record{
		Text: strings.TrimSpace(it.Content),
		Metadata: domain.Metadata{
			EntityName: strings.TrimSpace(it.CompanyName),
			Category:   category,
			Kind:       kind,
			Sentiment:  sentiment,
			Score:      score,
			Date:       date,
			RecordID:   strings.TrimSpace(it.DataID),
		},
	}
	if err := rec.Validate(); err != nil {
		return domain.Record{}, false, err
	}
	return rec, !known, nil
}

// ToRecords converts a whole feed, failing on the first invalid item.
func ToRecords(items []Item, logger *zap.Logger) ([]domain.Record, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]domain.Record, 0, len(items))
	for i, it := range items {
		rec, normalized, err := ToRecord(it)
		if err != nil {
			return nil, fmt.Errorf("feed item %d (data_id %q): %w", i, it.DataID, err)
		}
		if normalized {
			logger.Warn("unknown industry, using default category",
				zap.String("data_id", it.DataID),
				zap.String("industry", it.Industry),
				zap.String("category", string(domain.CategoryOther)))
		}
		out = append(out, rec)
	}
	return out, nil
}
