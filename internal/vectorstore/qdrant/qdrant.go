package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"jobis/internal/domain"
	"jobis/internal/vectorstore"
)

const scrollPage = 256

// pointNamespace derives stable point ids from record ids.
var pointNamespace = uuid.MustParse("6f1c1d2e-7f43-4a53-9a57-0c1d5e8e2b10")

// Storage is a REST client to Qdrant. The configured collection name is used
// as an alias; every build creates a new physical collection and moves the
// alias onto it in a single request.
type Storage struct {
	url    string
	apiKey string
	alias  string
	client *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		alias:  cfg.Collection,
		client: &http.Client{Timeout: timeout},
	}
}

type payload struct {
	Text     string          `json:"text"`
	Metadata domain.Metadata `json:"metadata"`
	Ord      int             `json:"ord"`
	Embedder string          `json:"embedder"`
	BuiltAt  time.Time       `json:"built_at"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type statusError struct {
	method string
	path   string
	code   int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.path, e.code, e.body)
}

func (s *Storage) Manifest(ctx context.Context) (vectorstore.Manifest, error) {
	var info struct {
		Result struct {
			PointsCount int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections/"+s.alias, nil, &info); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return vectorstore.Manifest{}, domain.ErrStoreNotFound
		}
		return vectorstore.Manifest{}, err
	}
	m := vectorstore.Manifest{
		Dimension: info.Result.Config.Params.Vectors.Size,
		Count:     info.Result.PointsCount,
	}
	if m.Count == 0 {
		m.Dimension = 0
		return m, nil
	}
	points, _, err := s.scroll(ctx, nil, 1, false)
	if err != nil {
		return vectorstore.Manifest{}, err
	}
	if len(points) > 0 {
		m.Embedder = points[0].Payload.Embedder
		m.BuiltAt = points[0].Payload.BuiltAt
	}
	return m, nil
}

func (s *Storage) Entries(ctx context.Context) ([]vectorstore.Entry, error) {
	var (
		out    []vectorstore.Entry
		offset any
	)
	for {
		points, next, err := s.scroll(ctx, offset, scrollPage, true)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.code == http.StatusNotFound {
				return nil, domain.ErrStoreNotFound
			}
			return nil, err
		}
		for _, p := range points {
			out = append(out, vectorstore.Entry{
				Record: domain.Record{Text: p.Payload.Text, Metadata: p.Payload.Metadata},
				Vector: p.Vector,
				Ord:    p.Payload.Ord,
			})
		}
		if next == nil {
			break
		}
		offset = next
	}
	return out, nil
}

func (s *Storage) Replace(ctx context.Context, manifest vectorstore.Manifest, entries []vectorstore.Entry) error {
	physical := s.alias + "-" + uuid.NewString()
	size := manifest.Dimension
	if size < 1 {
		size = 1
	}
	create := map[string]any{"vectors": map[string]any{"size": size, "distance": "Cosine"}}
	if err := s.do(ctx, http.MethodPut, "/collections/"+physical, create, nil); err != nil {
		return err
	}

	if err := s.upsert(ctx, physical, manifest, entries); err != nil {
		_ = s.do(ctx, http.MethodDelete, "/collections/"+physical, nil, nil)
		return err
	}

	previous, err := s.aliasTarget(ctx)
	if err != nil {
		_ = s.do(ctx, http.MethodDelete, "/collections/"+physical, nil, nil)
		return err
	}
	var actions []map[string]any
	if previous != "" {
		actions = append(actions, map[string]any{"delete_alias": map[string]any{"alias_name": s.alias}})
	}
	actions = append(actions, map[string]any{
		"create_alias": map[string]any{"collection_name": physical, "alias_name": s.alias},
	})
	if err := s.do(ctx, http.MethodPost, "/collections/aliases", map[string]any{"actions": actions}, nil); err != nil {
		_ = s.do(ctx, http.MethodDelete, "/collections/"+physical, nil, nil)
		return err
	}

	if previous != "" && previous != physical {
		_ = s.do(ctx, http.MethodDelete, "/collections/"+previous, nil, nil)
	}
	return nil
}

// Search queries through the alias. Every point carries the embedder name
// and build time of its generation, so the served manifest is read from the
// hits themselves; an empty result reports a zero manifest.
func (s *Storage) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, vectorstore.Manifest, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"with_vector":  true,
	}
	var resp struct {
		Result []struct {
			Score   float64   `json:"score"`
			Vector  []float32 `json:"vector"`
			Payload payload   `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, "/collections/"+s.alias+"/points/search", req, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, vectorstore.Manifest{}, domain.ErrStoreNotFound
		}
		return nil, vectorstore.Manifest{}, err
	}
	var served vectorstore.Manifest
	if len(resp.Result) > 0 {
		first := resp.Result[0]
		served = vectorstore.Manifest{
			Embedder:  first.Payload.Embedder,
			Dimension: len(first.Vector),
			BuiltAt:   first.Payload.BuiltAt,
		}
	}
	scored := make([]vectorstore.Scored, 0, len(resp.Result))
	for _, r := range resp.Result {
		scored = append(scored, vectorstore.Scored{
			SearchResult: domain.SearchResult{
				Record:   domain.Record{Text: r.Payload.Text, Metadata: r.Payload.Metadata},
				Distance: 1 - r.Score,
				Vector:   r.Vector,
			},
			Ord: r.Payload.Ord,
		})
	}
	return vectorstore.Rank(scored, k), served, nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) upsert(ctx context.Context, collection string, manifest vectorstore.Manifest, entries []vectorstore.Entry) error {
	for start := 0; start < len(entries); start += scrollPage {
		end := min(start+scrollPage, len(entries))
		points := make([]point, 0, end-start)
		for _, e := range entries[start:end] {
			points = append(points, point{
				ID:     uuid.NewSHA1(pointNamespace, []byte(e.Record.Metadata.RecordID)).String(),
				Vector: e.Vector,
				Payload: payload{
					Text:     e.Record.Text,
					Metadata: e.Record.Metadata,
					Ord:      e.Ord,
					Embedder: manifest.Embedder,
					BuiltAt:  manifest.BuiltAt,
				},
			})
		}
		path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
		if err := s.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) scroll(ctx context.Context, offset any, limit int, withVector bool) ([]point, any, error) {
	req := map[string]any{"limit": limit, "with_payload": true, "with_vector": withVector}
	if offset != nil {
		req["offset"] = offset
	}
	var resp struct {
		Result struct {
			Points         []point `json:"points"`
			NextPageOffset any     `json:"next_page_offset"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, "/collections/"+s.alias+"/points/scroll", req, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Result.Points, resp.Result.NextPageOffset, nil
}

// aliasTarget returns the physical collection the alias points to, or "".
func (s *Storage) aliasTarget(ctx context.Context) (string, error) {
	var resp struct {
		Result struct {
			Aliases []struct {
				AliasName      string `json:"alias_name"`
				CollectionName string `json:"collection_name"`
			} `json:"aliases"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/aliases", nil, &resp); err != nil {
		return "", err
	}
	for _, a := range resp.Result.Aliases {
		if a.AliasName == s.alias {
			return a.CollectionName, nil
		}
	}
	return "", nil
}

func (s *Storage) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, path: path, code: resp.StatusCode, body: string(msg)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
