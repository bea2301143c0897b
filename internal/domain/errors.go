package domain

import "errors"

var (
	// ErrOriginUnavailable marks a single origin failure inside a fetcher.
	ErrOriginUnavailable = errors.New("origin unavailable")
	// ErrFetcherDegraded marks a fetcher running on its fallback access path.
	ErrFetcherDegraded = errors.New("fetcher degraded")
	// ErrAggregationFailure is the only pipeline-fatal error class.
	ErrAggregationFailure = errors.New("aggregation failure")
	// ErrDeliveryBatch marks a failed recipient batch.
	ErrDeliveryBatch = errors.New("delivery batch failed")
	// ErrRunInProgress is returned by the trigger guard when a cycle is already running.
	ErrRunInProgress = errors.New("digest run already in progress")
)
