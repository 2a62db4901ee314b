package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
//
// Rough taxonomy:
//   - configuration errors (unknown event type / consumer channel, missing
//     connection template): a deployment mismatch, never retryable;
//   - not-found errors (unknown tenant, queue, item): client errors;
//   - validation errors: client errors;
//   - storage errors: surfaced as-is, retry policy belongs to the caller.
var (
	ErrUnknownEventType       = errors.New("unknown event type")
	ErrUnknownConsumerChannel = errors.New("unknown consumer channel")
	ErrTenantNotConfigured    = errors.New("tenant database template is not configured")

	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantUnknown  = errors.New("tenant database does not exist")
	ErrQueueNotFound  = errors.New("queue does not exist in tenant database")
	ErrItemNotFound   = errors.New("queue item not found")

	ErrTenantExists   = errors.New("tenant already exists")
	ErrItemNotClaimed = errors.New("queue item has not been claimed")

	ErrMissingTenant      = errors.New("tenant identifier is required")
	ErrMissingChannel     = errors.New("consumer channel is required")
	ErrInvalidTenantID    = errors.New("tenant identifier must match [a-z][a-z0-9_]{0,62}")
	ErrInvalidTier        = errors.New("invalid tier: must be small, medium, or large")
	ErrInvalidDisplayName = errors.New("display name must not be empty")
	ErrInvalidClaimCount  = errors.New("claim count must be positive")
	ErrInvalidPayload     = errors.New("payload must be a valid JSON document")

	ErrPartialProvisioning = errors.New("tenant provisioning failed partway; run teardown before retrying")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)
