package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lox/coastscore/internal/models"
)

// Source fetches the scored forecast document for an area.
type Source interface {
	Name() string
	Endpoint() string
	Fetch(ctx context.Context, areaID string) (*models.ScoredForecast, []byte, *FetchResult, error)
}

// FetchResult carries fetch details for the ingest run audit row.
type FetchResult struct {
	HTTPStatus   int
	ResponseSize int
	RecordCount  int
	Error        error
}

const maxErrorBody = 512

// truncateBody keeps error messages readable when upstream returns a page.
func truncateBody(b []byte) string {
	if len(b) <= maxErrorBody {
		return string(b)
	}
	return string(b[:maxErrorBody]) + "...(truncated)"
}

// decodeForecast parses a scored forecast body. Hours are left as sent;
// ValidateForecast sorts and filters them.
func decodeForecast(body []byte) (*models.ScoredForecast, error) {
	var f models.ScoredForecast
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("unmarshal forecast: %w", err)
	}
	return &f, nil
}
