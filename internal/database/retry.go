package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// retry calls ping until it succeeds, doubling the wait between attempts.
// Containers started together often come up before their database does.
func retry(ctx context.Context, log zerolog.Logger, what string, attempts int, backoff time.Duration, ping func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		log.Warn().Err(err).
			Str("target", what).
			Int("attempt", attempt).
			Dur("retry_in", backoff).
			Msg("Dependency not ready")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", what, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%s after %d attempts: %w", what, attempts, err)
}
