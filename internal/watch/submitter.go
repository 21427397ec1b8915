package watch

import (
	"context"

	"github.com/desertthunder/spindle/internal/scheduler"
)

// Submitter is the narrow slice of scheduler.Manager the watch engine
// needs to enqueue newly discovered tracks and albums.
type Submitter interface {
	Submit(ctx context.Context, req scheduler.SubmitRequest) (string, error)
}
