// pkg/shared/sync.go

package shared

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SafeSync flushes the global logger, ignoring the EINVAL/ENOTTY noise that
// zap emits when stdout is a terminal.
func SafeSync() {
	_ = zap.L().Sync()
}

// Sleep waits for d or until ctx is cancelled, whichever comes first. It is
// the only suspension point inside the retry loops, so a termination signal
// aborts a run between attempts rather than after the full interval.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
