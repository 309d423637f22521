package cache

import (
	"context"
	"time"

	"medipos/internal/domain"
)

// ReportCache stores computed daily summaries keyed by day. Misses are
// reported through found=false, never through an error.
type ReportCache interface {
	GetDailySummary(ctx context.Context, day string) (*domain.DailySummary, bool, error)
	SetDailySummary(ctx context.Context, day string, summary *domain.DailySummary, ttl time.Duration) error
	DeleteDailySummary(ctx context.Context, day string) error
	Close() error
}

// Noop disables caching; every lookup is a miss.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) GetDailySummary(context.Context, string) (*domain.DailySummary, bool, error) {
	return nil, false, nil
}

func (*Noop) SetDailySummary(context.Context, string, *domain.DailySummary, time.Duration) error {
	return nil
}

func (*Noop) DeleteDailySummary(context.Context, string) error { return nil }

func (*Noop) Close() error { return nil }
