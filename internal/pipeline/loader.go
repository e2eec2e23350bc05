package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
)

// MultiLoader fans a batch out to several loaders in order, stopping at the
// first failure. A failed batch is retried in full, so loaders must tolerate
// seeing the same report twice.
type MultiLoader []BatchLoader

func (m MultiLoader) LoadBatch(ctx context.Context, reports []domain.Report) error {
	for i, l := range m {
		if err := l.LoadBatch(ctx, reports); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
