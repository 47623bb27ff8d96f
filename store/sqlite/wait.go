package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/drmaa-store/drmaa"
)

// DefaultPollInterval is how often WaitFinished re-reads a job.
const DefaultPollInterval = time.Second

// WaitFinished polls the job until its completion is recorded and returns
// the final state. It fails with drmaa.ErrNotFound if the job does not exist
// and with the context's error if ctx ends first.
//
// Completion is written by whichever process reaped the job, so there is
// nothing to subscribe to; polling the store is the only signal.
func (s *Store) WaitFinished(ctx context.Context, id drmaa.JobID, interval time.Duration) (*drmaa.JobInfo, error) {
	const op = "sqlite.(Store).WaitFinished"
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		ji, err := s.GetJobInfo(ctx, id)
		if err != nil {
			return nil, err
		}
		if ji == nil {
			return nil, fmt.Errorf("job %s: %w", id, drmaa.ErrNotFound)
		}
		if ji.Finished() {
			s.log.Debug("job finished", "op", op, "id", id, "polls", polls)
			return ji, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
