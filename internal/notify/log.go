package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/nao1215/changemon/internal/model"
)

// LogNotifier writes notifications to a writer instead of delivering them.
type LogNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLogNotifier creates a LogNotifier writing to w.
func NewLogNotifier(w io.Writer) *LogNotifier {
	return &LogNotifier{w: w}
}

// Notify writes the message and the artifact location.
func (n *LogNotifier) Notify(_ context.Context, event *model.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := fmt.Fprintf(n.w, "[dry-run] %s\n", Message(event)); err != nil {
		return fmt.Errorf("%w: %w", ErrNotify, err)
	}
	if a := event.Artifact; a != nil {
		where := a.Path
		if where == "" {
			where = fmt.Sprintf("%d bytes in memory", len(a.Data))
		}
		if _, err := fmt.Fprintf(n.w, "[dry-run] attachment %s (%s): %s\n", a.Name, a.ContentType, where); err != nil {
			return fmt.Errorf("%w: %w", ErrNotify, err)
		}
	}
	return nil
}
