// Package digest emits scheduled synthetic queries on behalf of
// subscribed users. Digest runs re-enter the normal query pipeline;
// only the classifier treats them specially by routing statically.
package digest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/observability"
)

// Frequency is a supported digest cadence.
type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// cron expressions per cadence; daily and weekly fire at 08:00.
var cronSpecs = map[Frequency]string{
	FrequencyHourly: "0 * * * *",
	FrequencyDaily:  "0 8 * * *",
	FrequencyWeekly: "0 8 * * 1",
}

// ParseFrequency validates a cadence string.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(s))
	if _, ok := cronSpecs[f]; !ok {
		return "", fmt.Errorf("unsupported digest frequency %q", s)
	}
	return f, nil
}

// Subscription is one user's standing digest request.
type Subscription struct {
	UserID    string
	Frequency Frequency
	// Topics seed the synthetic query text; empty means a default
	// revenue summary.
	Topics []string
}

// Handler answers queries; the orchestrator satisfies this.
type Handler interface {
	Handle(ctx context.Context, query domain.Query) (domain.Answer, error)
}

// Deliverer receives finished digest answers. Implementations push to
// whatever channel the user reads; nil drops answers after logging.
type Deliverer func(userID string, answer domain.Answer)

// Service schedules and emits digests
type Service struct {
	handler    Handler
	deliver    Deliverer
	logger     observability.Logger
	metrics    *observability.Metrics
	runTimeout time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// NewService creates a digest service
func NewService(handler Handler, deliver Deliverer, logger observability.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = observability.NewStructuredLogger("digest")
	}
	return &Service{
		handler:    handler,
		deliver:    deliver,
		logger:     logger,
		metrics:    metrics,
		runTimeout: 2 * time.Minute,
		cron:       cron.New(),
		entries:    make(map[string]cron.EntryID),
	}
}

// Start begins firing scheduled digests
func (s *Service) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for in-flight digest runs.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// Subscribe registers or replaces a user's digest schedule.
func (s *Service) Subscribe(sub Subscription) error {
	if sub.UserID == "" {
		return fmt.Errorf("subscription needs a user id")
	}
	spec, ok := cronSpecs[sub.Frequency]
	if !ok {
		return fmt.Errorf("unsupported digest frequency %q", sub.Frequency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[sub.UserID]; ok {
		s.cron.Remove(existing)
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()
		s.Emit(ctx, sub)
	})
	if err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}

	s.entries[sub.UserID] = entryID
	s.logger.Info(context.Background(), "digest subscription registered", map[string]interface{}{
		"user_id":   sub.UserID,
		"frequency": string(sub.Frequency),
	})
	return nil
}

// Unsubscribe removes a user's digest schedule.
func (s *Service) Unsubscribe(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[userID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, userID)
	}
}

// Subscribers returns the user ids with active schedules.
func (s *Service) Subscribers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Emit runs one digest immediately. Scheduled entries call this; it is
// also the on-demand path.
func (s *Service) Emit(ctx context.Context, sub Subscription) {
	query := domain.Query{
		ID:        uuid.NewString(),
		Text:      digestText(sub.Topics),
		UserID:    sub.UserID,
		Timestamp: time.Now(),
		Synthetic: true,
	}

	answer, err := s.handler.Handle(ctx, query)
	if err != nil {
		s.logger.Error(ctx, "digest run failed", err, map[string]interface{}{
			"user_id": sub.UserID,
		})
		return
	}

	if s.metrics != nil {
		s.metrics.RecordDigest(ctx, string(sub.Frequency))
	}

	if s.deliver != nil {
		s.deliver(sub.UserID, answer)
	} else {
		s.logger.Info(ctx, "digest produced with no deliverer configured", map[string]interface{}{
			"user_id":  sub.UserID,
			"query_id": query.ID,
			"degraded": answer.Degraded,
		})
	}
}

func digestText(topics []string) string {
	if len(topics) == 0 {
		return "Summarize pipeline health, win rate and revenue trends since the last digest."
	}
	return "Summarize recent changes in " + strings.Join(topics, ", ") + "."
}
