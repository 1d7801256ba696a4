package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoProviders is returned when the service has nothing to ask.
var ErrNoProviders = errors.New("no weather providers configured")

// Service fetches current conditions, asking providers in order until one answers.
type Service struct {
	providers []Provider
	logger    *slog.Logger
}

// NewService creates a new Service.
func NewService(providers []Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		providers: providers,
		logger:    logger,
	}
}

// Current returns the snapshot from the first provider that succeeds.
// Provider failures are logged; the joined error is returned only when all fail.
func (s *Service) Current(ctx context.Context, loc Location) (Snapshot, error) {
	if len(s.providers) == 0 {
		return Snapshot{}, ErrNoProviders
	}

	var errs []error
	for _, p := range s.providers {
		snap, err := p.Current(ctx, loc)
		if err != nil {
			s.logger.Warn("provider fetch failed",
				"provider", p.Name(),
				"location", loc.Key(),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if snap.Timestamp.IsZero() {
			snap.Timestamp = time.Now().UTC()
		}
		if snap.Provider == "" {
			snap.Provider = p.Name()
		}
		return snap, nil
	}
	return Snapshot{}, errors.Join(errs...)
}
