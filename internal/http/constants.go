package httpx

// statusClientClosedRequest is the non-standard status logged when the caller went away.
const statusClientClosedRequest = 499

// Path parameter names shared by route patterns and handlers.
const (
	paramEnvironmentID = "environmentId"
	paramSubscriberID  = "subscriberId"
	paramMessageID     = "messageId"
	paramJobID         = "id"
)

const (
	// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
	DefaultMaxBodyBytes int64 = 1 << 20

	// HeaderRequestID carries the request correlation identifier.
	HeaderRequestID = "X-Request-Id"
)
