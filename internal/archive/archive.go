// Package archive snapshots in-memory conversation transcripts to durable
// storage on a cron schedule. The live conversation store is only read; its
// sliding window remains a memory bound, not a retention policy.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
)

// ErrNotFound is returned when no transcript exists for a conversation.
var ErrNotFound = errors.New("transcript not found")

// Transcript is the archived copy of one conversation's retained messages.
type Transcript struct {
	ConversationID string
	Messages       []agent.Message
	StartedAt      time.Time
	LastMessageAt  time.Time
	ArchivedAt     time.Time
}

// TranscriptStore persists transcripts. SaveTranscript replaces any earlier
// snapshot of the same conversation.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, t *Transcript) error
	GetTranscript(ctx context.Context, conversationID string) (*Transcript, error)
}

// Parser accepts standard 5-field specs plus descriptors like "@every 5m".
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Archiver copies changed conversations into a TranscriptStore.
type Archiver struct {
	source   agent.ConversationStore
	store    TranscriptStore
	schedule cron.Schedule
	spec     string
	metrics  *Metrics
	logger   *slog.Logger

	mu       sync.Mutex           // serializes runs
	archived map[string]time.Time // conversation id -> LastMessageAt already saved
}

// New creates an Archiver that runs on the given cron spec.
func New(source agent.ConversationStore, store TranscriptStore, spec string, logger *slog.Logger) (*Archiver, error) {
	schedule, err := Parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid archive schedule %q: %w", spec, err)
	}
	return &Archiver{
		source:   source,
		store:    store,
		schedule: schedule,
		spec:     spec,
		logger:   logger,
		archived: make(map[string]time.Time),
	}, nil
}

// WithMetrics enables archive metrics. m may be nil.
func (a *Archiver) WithMetrics(m *Metrics) *Archiver {
	a.metrics = m
	return a
}

// Start runs the archive loop in the background and returns a cancel
// function that stops it.
func (a *Archiver) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		a.logger.InfoContext(ctx, "transcript archiver started", slog.String("schedule", a.spec))
		for {
			next := a.schedule.Next(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				a.logger.Info("transcript archiver stopped")
				return
			case <-timer.C:
				if _, err := a.RunOnce(ctx); err != nil {
					a.logger.ErrorContext(ctx, "transcript archive run failed",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}()

	return cancel
}

// RunOnce archives every conversation that gained messages since the last
// run and returns how many transcripts were written. A failed conversation
// does not stop the others; their errors are joined.
func (a *Archiver) RunOnce(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	var (
		saved int
		errs  []error
	)
	for _, info := range a.source.List() {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if info.MessageCount == 0 {
			continue
		}
		if last, ok := a.archived[info.ID]; ok && !info.UpdatedAt.After(last) {
			continue
		}

		t := &Transcript{
			ConversationID: info.ID,
			Messages:       a.source.GetMessages(info.ID),
			StartedAt:      info.CreatedAt,
			LastMessageAt:  info.UpdatedAt,
			ArchivedAt:     time.Now().UTC(),
		}
		if err := a.store.SaveTranscript(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("archiving conversation %s: %w", info.ID, err))
			continue
		}
		a.archived[info.ID] = info.UpdatedAt
		saved++
	}

	err := errors.Join(errs...)
	a.metrics.observeRun(saved, err, time.Since(start))
	if saved > 0 {
		a.logger.InfoContext(ctx, "transcripts archived",
			slog.Int("saved", saved),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return saved, err
}
