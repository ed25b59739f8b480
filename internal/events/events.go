// Package events publishes committed activity entries to outside listeners.
package events

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/expensekey/internal/models"
)

// Publisher delivers activity entries after they were committed. Publishing is
// best effort: the ledger never depends on it.
type Publisher interface {
	PublishActivity(ctx context.Context, groupID string, entries []models.ActivityEntry) error
	Close() error
}

// Noop drops everything.
type Noop struct{}

func (Noop) PublishActivity(context.Context, string, []models.ActivityEntry) error { return nil }
func (Noop) Close() error                                                          { return nil }

// LogPublisher writes each entry to a logger.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishActivity(ctx context.Context, groupID string, entries []models.ActivityEntry) error {
	for _, e := range entries {
		p.logger.InfoContext(ctx, "Activity",
			"group_id", groupID,
			"activity_id", e.ID,
			"actor", e.Actor.Name,
			"text", e.Text,
		)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Fanout publishes to several publishers concurrently.
type Fanout []Publisher

func (f Fanout) PublishActivity(ctx context.Context, groupID string, entries []models.ActivityEntry) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range f {
		g.Go(func() error {
			return p.PublishActivity(ctx, groupID, entries)
		})
	}
	return g.Wait()
}

func (f Fanout) Close() error {
	var g errgroup.Group
	for _, p := range f {
		g.Go(p.Close)
	}
	return g.Wait()
}

// Recorder keeps published entries in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []ActivityMessage
}

func (r *Recorder) PublishActivity(_ context.Context, groupID string, entries []models.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.messages = append(r.messages, NewActivityMessage(groupID, e))
	}
	return nil
}

func (r *Recorder) Close() error { return nil }

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []ActivityMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ActivityMessage(nil), r.messages...)
}
