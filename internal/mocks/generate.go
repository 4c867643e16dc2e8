// Package mocks provides gomock implementations of the ports in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockJobRepository(ctrl)
//	jobs.EXPECT().StoreJobs(gomock.Any(), gomock.Any()).Return(stored, nil)
package mocks

// StoreJobs, GetByID, MarkQueued, ListUndispatched
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/target/notifyd/internal/core JobRepository

// BulkInsert, ListByJob
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=execution_detail_repository_mock.go github.com/target/notifyd/internal/core ExecutionDetailRepository

// Create, CountFeed, MarkSeen, MarkRead
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=message_repository_mock.go github.com/target/notifyd/internal/core MessageRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=queue_producer_mock.go github.com/target/notifyd/internal/core QueueProducer

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=execution_detail_recorder_mock.go github.com/target/notifyd/internal/core ExecutionDetailRecorder

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_invalidator_mock.go github.com/target/notifyd/internal/core CacheInvalidator

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/notifyd/internal/core CacheRepository
