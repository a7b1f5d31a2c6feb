package jobs

import "time"

// backoffBase is the first retry delay applied by the sweeper when it
// reclaims a stuck job.
const backoffBase = 30 * time.Second

// backoffMaxShift caps the exponential growth so delays never exceed
// backoffBase << backoffMaxShift (16 minutes).
const backoffMaxShift = 5

// Delay returns the wait before the next attempt for a job that has already
// failed retryCount times: 30s, 60s, 120s, ... capped at 16m.
func Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	shift := retryCount
	if shift > backoffMaxShift {
		shift = backoffMaxShift
	}
	return backoffBase << shift
}
