package domain

import (
	"fmt"
	"strings"
)

// Kind tells whether a record came from a company review or an interview report.
type Kind string

const (
	KindReview    Kind = "review"
	KindInterview Kind = "interview"
)

// ParseKind validates a raw kind value.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindReview, KindInterview:
		return k, nil
	default:
		return "", fmt.Errorf("unknown record kind %q", s)
	}
}

// Sentiment is the label derived from a review score.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment maps empty or unknown labels to neutral.
func ParseSentiment(s string) Sentiment {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentPositive, SentimentNegative:
		return v
	default:
		return SentimentNeutral
	}
}

// SentimentForScore labels a 1-5 rating; 0 means the rating was missing.
func SentimentForScore(score int) Sentiment {
	switch {
	case score == 0:
		return SentimentNeutral
	case score >= 4:
		return SentimentPositive
	case score <= 2:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Category is the industry a company belongs to.
type Category string

const (
	CategoryIT            Category = "IT/웹/통신"
	CategoryManufacturing Category = "제조/화학"
	CategoryMedical       Category = "의료/제약/복지"
	CategoryLogistics     Category = "유통/무역/운송"
	CategoryEducation     Category = "교육업"
	CategoryConstruction  Category = "건설업"
	CategoryMedia         Category = "미디어/디자인"
	CategoryFinance       Category = "은행/금융업"
	CategoryInstitution   Category = "기관/협회"
	CategoryService       Category = "서비스업"
	CategoryOther         Category = "기타"
)

var categories = map[Category]struct{}{
	CategoryIT:            {},
	CategoryManufacturing: {},
	CategoryMedical:       {},
	CategoryLogistics:     {},
	CategoryEducation:     {},
	CategoryConstruction:  {},
	CategoryMedia:         {},
	CategoryFinance:       {},
	CategoryInstitution:   {},
	CategoryService:       {},
	CategoryOther:         {},
}

// ParseCategory returns the matching category and whether it was known.
// Unknown values normalise to CategoryOther.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.TrimSpace(s))
	if _, ok := categories[c]; ok {
		return c, true
	}
	return CategoryOther, false
}

// MaxScore is the highest rating a review can carry.
const MaxScore = 5

// Metadata is the typed metadata attached to every indexed record.
type Metadata struct {
	EntityName string    `json:"entity_name"`
	Category   Category  `json:"category"`
	Kind       Kind      `json:"kind"`
	Sentiment  Sentiment `json:"sentiment"`
	Score      int       `json:"score"`
	Date       string    `json:"date"`
	RecordID   string    `json:"record_id"`
}

// Record is the unit of text indexed in the document store.
type Record struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Validate checks the invariants every indexed record must hold.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("record %q: empty text", r.Metadata.RecordID)
	}
	if strings.TrimSpace(r.Metadata.RecordID) == "" {
		return fmt.Errorf("record with entity %q: empty record_id", r.Metadata.EntityName)
	}
	if r.Metadata.Score < 0 || r.Metadata.Score > MaxScore {
		return fmt.Errorf("record %q: score %d out of range", r.Metadata.RecordID, r.Metadata.Score)
	}
	if _, err := ParseKind(string(r.Metadata.Kind)); err != nil {
		return fmt.Errorf("record %q: %w", r.Metadata.RecordID, err)
	}
	return nil
}

// SearchResult is a record matched by a similarity search.
// Distance is the cosine distance to the query (0 = identical direction).
type SearchResult struct {
	Record   Record
	Distance float64
	Vector   []float32
}

// Similarity converts the cosine distance back to a similarity score.
func (r SearchResult) Similarity() float64 { return 1 - r.Distance }
