package collector

import (
	"context"

	"github.com/nao1215/changemon/internal/model"
)

// Collector captures the current snapshot of a target.
// Implementations must be safe for concurrent use.
type Collector interface {
	// Name identifies the collector in logs and errors.
	Name() string

	// Collect returns the current snapshot of target. Failures are *Error.
	Collect(ctx context.Context, target model.Target) (model.Snapshot, error)
}
