package imeicheck

import (
	"context"
	"time"
)

// RetryPolicy makes a front-end's retry behavior explicit configuration
// instead of a hardcoded loop. Attempts counts the total calls, not the
// re-tries; Attempts <= 1 means a single attempt.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// CheckWithRetry runs Check up to p.Attempts times. Intermediate failures
// are discarded; the final attempt's error is surfaced verbatim. The retry
// decision does not distinguish between error subtypes.
func CheckWithRetry(ctx context.Context, c Client, imei string, serviceID int, p RetryPolicy) (DeviceRecord, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 && p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.Backoff):
			}
		}
		record, err := c.Check(ctx, imei, serviceID)
		if err == nil {
			return record, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
