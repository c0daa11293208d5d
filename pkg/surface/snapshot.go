package surface

import (
	"context"
	"fmt"
	"os"

	"followexport/pkg/models"
)

// Snapshot is a surface backed by a saved copy of the following page. It
// never scrolls and always reports being at the end.
type Snapshot struct {
	candidates []models.Candidate
}

// NewSnapshot parses html once
func NewSnapshot(html string, sel Selectors) (*Snapshot, error) {
	candidates, err := ParseCards(html, sel)
	if err != nil {
		return nil, err
	}
	return &Snapshot{candidates: candidates}, nil
}

// LoadSnapshot reads and parses a saved HTML page
func LoadSnapshot(path string, sel Selectors) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return NewSnapshot(string(data), sel)
}

func (s *Snapshot) Sample(ctx context.Context) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out, nil
}

func (s *Snapshot) Advance(ctx context.Context, ratio float64) error {
	return ctx.Err()
}

func (s *Snapshot) AtEnd(ctx context.Context) (bool, error) {
	return true, ctx.Err()
}

