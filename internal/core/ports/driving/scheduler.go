package driving

import "context"

// Scheduler runs background maintenance (question log retention, cache
// expiry) while a long-lived command is up.
type Scheduler interface {
	// Start runs due tasks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop stops the loop and waits for running tasks to finish.
	Stop() error
}
