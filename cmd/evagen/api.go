package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/CTAG07/evagen/pkg/batch"
	"github.com/CTAG07/evagen/pkg/card"
	"github.com/CTAG07/evagen/pkg/experiment"
	"github.com/CTAG07/evagen/pkg/markov"
	"github.com/CTAG07/evagen/pkg/similarity"
)

const (
	maxRequestCards    = 1000
	maxRequestWords    = 256
	maxRequestRepeats  = 100
	maxScoreInputBytes = 16 << 20
)

// ModelLister is the part of markov.SQLiteStore the API reads from.
type ModelLister interface {
	List(ctx context.Context) ([]markov.ModelInfo, error)
	Load(ctx context.Context, name string) (*markov.Model, error)
}

// API serves generation and scoring over HTTP.
type API struct {
	store  ModelLister
	config Config
	logger *slog.Logger
}

// NewAPI creates a new API reading models from store.
func NewAPI(store ModelLister, config Config, logger *slog.Logger) *API {
	return &API{
		store:  store,
		config: config,
		logger: logger,
	}
}

// Register sets up the routes for all /v1 endpoints.
func (a *API) Register(e *echo.Echo) {
	e.GET("/v1/models", a.handleListModels)
	e.POST("/v1/generate", a.handleGenerate)
	e.POST("/v1/score", a.handleScore)
}

type modelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
}

func (a *API) handleListModels(c *echo.Context) error {
	models, err := a.store.List(c.Request().Context())
	if err != nil {
		a.logger.Error("Failed to list models", "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	data := make([]modelObject, 0, len(models))
	for _, m := range models {
		data = append(data, modelObject{ID: m.Name, Object: "model", Created: m.CreatedAt.Unix()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   data,
	})
}

// GenerateRequest is the body of POST /v1/generate. Nil numbers fall back to
// the server configuration.
type GenerateRequest struct {
	Model        string       `json:"model"`
	Cards        []*card.Card `json:"cards"`
	Stream       string       `json:"stream"`
	Words        *int         `json:"words"`
	LinesPerCard *int         `json:"lines_per_card"`
	SeedMode     string       `json:"seed_mode"`
}

// GenerateResponse is the body returned by POST /v1/generate.
type GenerateResponse struct {
	ID       string        `json:"id"`
	Model    string        `json:"model"`
	Stream   markov.Stream `json:"stream"`
	SeedMode card.SeedMode `json:"seed_mode"`
	Lines    []string      `json:"lines"`
}

func (a *API) handleGenerate(c *echo.Context) error {
	req, err := decodeJSON[GenerateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid JSON request body: "+err.Error())
	}

	if req.Model == "" {
		req.Model = experiment.DefaultModelName
	}
	if req.Stream == "" {
		req.Stream = a.config.Stream
	}
	stream, err := markov.ParseStream(req.Stream)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	mode, err := card.ParseSeedMode(req.SeedMode)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	words := intOr(req.Words, a.config.Words)
	repeats := intOr(req.LinesPerCard, a.config.LinesPerCard)
	switch {
	case len(req.Cards) == 0:
		return writeBadRequest(c, "cards is required and must not be empty")
	case len(req.Cards) > maxRequestCards:
		return writeBadRequest(c, fmt.Sprintf("at most %d cards per request", maxRequestCards))
	case words < 0 || words > maxRequestWords:
		return writeBadRequest(c, fmt.Sprintf("words must be between 0 and %d", maxRequestWords))
	case repeats < 0 || repeats > maxRequestRepeats:
		return writeBadRequest(c, fmt.Sprintf("lines_per_card must be between 0 and %d", maxRequestRepeats))
	}
	cards := make([]*card.Card, len(req.Cards))
	for i, cd := range req.Cards {
		if cd == nil {
			return writeBadRequest(c, fmt.Sprintf("cards[%d] must be an object", i))
		}
		cards[i] = mode.Apply(cd)
	}

	ctx := c.Request().Context()
	m, err := a.store.Load(ctx, req.Model)
	if err != nil {
		if errors.Is(err, markov.ErrModelNotFound) {
			return writeNotFound(c, fmt.Sprintf("model %q not found", req.Model))
		}
		a.logger.Error("Failed to load model", "model", req.Model, "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	lines, err := batch.GenerateAll(ctx, m, batch.Request{
		Cards:   cards,
		Stream:  stream,
		Words:   words,
		Workers: a.config.Workers,
	})
	if err != nil {
		a.logger.Error("Generation failed", "model", req.Model, "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	out := make([]string, 0, len(lines)*repeats)
	for _, line := range lines {
		for range repeats {
			out = append(out, line)
		}
	}
	resp := GenerateResponse{
		ID:       uuid.NewString(),
		Model:    req.Model,
		Stream:   stream,
		SeedMode: mode,
		Lines:    out,
	}
	a.logger.DebugContext(ctx, "Generate request served",
		slog.String("id", resp.ID),
		slog.String("model", req.Model),
		slog.Int("lines", len(out)),
	)
	return c.JSON(http.StatusOK, resp)
}

// ScoreRequest is the body of POST /v1/score.
type ScoreRequest struct {
	Reference string `json:"reference"`
	Generated string `json:"generated"`
}

func (a *API) handleScore(c *echo.Context) error {
	req, err := decodeJSON[ScoreRequest](io.LimitReader(c.Request().Body, maxScoreInputBytes))
	if err != nil {
		return writeBadRequest(c, "invalid JSON request body: "+err.Error())
	}
	return c.JSON(http.StatusOK, similarity.Score(req.Reference, req.Generated))
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": apiError{Message: msg, Type: errType},
	})
}
