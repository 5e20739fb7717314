package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTAG07/evagen/pkg/markov"
	"github.com/CTAG07/evagen/pkg/similarity"
)

type memStore struct {
	models map[string]*markov.Model
	err    error
}

func (s memStore) List(ctx context.Context) ([]markov.ModelInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []markov.ModelInfo
	for name := range s.models {
		out = append(out, markov.ModelInfo{Name: name, CreatedAt: time.Unix(1700000000, 0)})
	}
	return out, nil
}

func (s memStore) Load(ctx context.Context, name string) (*markov.Model, error) {
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", markov.ErrModelNotFound, name)
	}
	return m, nil
}

func testModel() *markov.Model {
	return markov.NewModel(
		markov.NewDistribution(markov.Outcome{Key: "ab", Prob: 1}),
		markov.Transition{From: "b", Next: markov.NewDistribution(
			markov.Outcome{Key: "a", Prob: 0.5},
			markov.Outcome{Key: markov.EndMarker, Prob: 0.5},
		)},
		markov.Transition{From: "a", Next: markov.NewDistribution(markov.Outcome{Key: "b", Prob: 1})},
	)
}

func newTestEcho(store ModelLister) *echo.Echo {
	e := echo.New()
	NewAPI(store, DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil))).Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error apiError `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

const testCard = `{"id":"h1","domain":"herbal","concept_ja":"薬草","evidence_latin":"qokeedy","source":{"work":"w","file":"f","locator":"1r"}}`

func TestListModels(t *testing.T) {
	e := newTestEcho(memStore{models: map[string]*markov.Model{"markov_model": testModel()}})

	rec := doJSON(t, e, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Object string        `json:"object"`
		Data   []modelObject `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "list", body.Object)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "markov_model", body.Data[0].ID)
	assert.Equal(t, int64(1700000000), body.Data[0].Created)
}

func TestListModelsStoreError(t *testing.T) {
	e := newTestEcho(memStore{err: errors.New("disk on fire")})

	rec := doJSON(t, e, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server_error", decodeError(t, rec).Type)
}

func TestGenerate(t *testing.T) {
	e := newTestEcho(memStore{models: map[string]*markov.Model{"markov_model": testModel()}})

	body := `{"cards":[` + testCard + `,` + testCard + `],"stream":"b","words":4,"lines_per_card":2}`
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "markov_model", resp.Model)
	assert.Equal(t, markov.StreamB, resp.Stream)
	require.Len(t, resp.Lines, 4)
	for _, line := range resp.Lines {
		assert.Len(t, strings.Fields(line), 4, line)
	}
	assert.Equal(t, resp.Lines[0], resp.Lines[1])
	// Identical cards produce identical lines.
	assert.Equal(t, resp.Lines[0], resp.Lines[2])

	again := doJSON(t, e, http.MethodPost, "/v1/generate", body)
	var resp2 GenerateResponse
	require.NoError(t, json.Unmarshal(again.Body.Bytes(), &resp2))
	assert.Equal(t, resp.Lines, resp2.Lines)
	assert.NotEqual(t, resp.ID, resp2.ID)
}

func TestGenerateDefaults(t *testing.T) {
	e := newTestEcho(memStore{models: map[string]*markov.Model{"markov_model": testModel()}})

	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"cards":[`+testCard+`]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	cfg := DefaultConfig()
	assert.Equal(t, markov.StreamA, resp.Stream)
	require.Len(t, resp.Lines, cfg.LinesPerCard)
	assert.Len(t, strings.Fields(resp.Lines[0]), cfg.Words)
}

func TestGenerateErrors(t *testing.T) {
	e := newTestEcho(memStore{models: map[string]*markov.Model{"markov_model": testModel()}})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantType   string
	}{
		{"invalid json", `{"cards":`, http.StatusBadRequest, "invalid_request_error"},
		{"no cards", `{"cards":[]}`, http.StatusBadRequest, "invalid_request_error"},
		{"null card", `{"cards":[null]}`, http.StatusBadRequest, "invalid_request_error"},
		{"bad stream", `{"cards":[` + testCard + `],"stream":"C"}`, http.StatusBadRequest, "invalid_request_error"},
		{"bad seed mode", `{"cards":[` + testCard + `],"seed_mode":"loud"}`, http.StatusBadRequest, "invalid_request_error"},
		{"negative words", `{"cards":[` + testCard + `],"words":-1}`, http.StatusBadRequest, "invalid_request_error"},
		{"too many repeats", `{"cards":[` + testCard + `],"lines_per_card":1000}`, http.StatusBadRequest, "invalid_request_error"},
		{"unknown model", `{"model":"nope","cards":[` + testCard + `]}`, http.StatusNotFound, "not_found_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/v1/generate", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			apiErr := decodeError(t, rec)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestScore(t *testing.T) {
	e := newTestEcho(memStore{})

	rec := doJSON(t, e, http.MethodPost, "/v1/score", `{"reference":"qokeedy daiin","generated":"qokeedy daiin"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var scores similarity.Scores
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	assert.InDelta(t, 1.0, scores.JSSimUnigram, 1e-9)
	assert.InDelta(t, 1.0, scores.JSSimBigram, 1e-9)
	assert.InDelta(t, 1.0, scores.Cosine3Gram, 1e-9)

	bad := doJSON(t, e, http.MethodPost, "/v1/score", `not json`)
	require.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "invalid_request_error", decodeError(t, bad).Type)
}
