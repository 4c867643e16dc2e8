package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// Cache repository sentinels.
	ErrEmptyCacheKey = errors.New("key cannot be empty")

	// Job repository sentinels.
	ErrJobIDRequired = errors.New("job_id is required")
	ErrEmptyBatch    = errors.New("job batch is empty")

	// Queue sentinels.
	ErrNilDispatchJob = errors.New("dispatch message carries no job")
)
