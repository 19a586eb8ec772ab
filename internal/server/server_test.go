package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubAsker struct {
	got []string
}

func (s *stubAsker) Ask(_ context.Context, q string) string {
	s.got = append(s.got, q)
	if strings.TrimSpace(q) == "" {
		return "질문을 입력해주세요."
	}
	return "연봉은 업계 평균입니다."
}

func TestAsk(t *testing.T) {
	asker := &stubAsker{}
	core, logs := observer.New(zap.InfoLevel)
	h := NewHandler(asker, zap.New(core))

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"연봉 어때?"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "연봉은 업계 평균입니다.", resp.Answer)
	assert.Equal(t, []string{"연봉 어때?"}, asker.got)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/v1/ask", entries[0].ContextMap()["path"])
	assert.EqualValues(t, http.StatusOK, entries[0].ContextMap()["status"])
}

func TestAsk_BlankQuestionStillAnswers(t *testing.T) {
	h := NewHandler(&stubAsker{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"  "}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "질문을 입력해주세요.")
}

func TestAsk_BadRequests(t *testing.T) {
	asker := &stubAsker{}
	h := NewHandler(asker, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ask", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.Empty(t, asker.got)
}

func TestHealthz(t *testing.T) {
	h := NewHandler(&stubAsker{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
