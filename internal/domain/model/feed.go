package model

import (
	"math"
	"strconv"
	"strings"

	apperrors "github.com/target/notifyd/internal/errors"
)

const (
	// DefaultFeedCountLimit is used when no usable limit is supplied.
	DefaultFeedCountLimit = 100
	// MinFeedCountLimit is the smallest accepted limit.
	MinFeedCountLimit = 1
	// MaxFeedCountLimit is the largest accepted limit.
	MaxFeedCountLimit = 1000
)

// FeedCountRequest is a feed count request as received from a caller. Limit is raw text
// so that query-string values can be parsed with the lenient fallback rules.
type FeedCountRequest struct {
	EnvironmentID string
	SubscriberID  string
	Seen          *bool
	Read          *bool
	Limit         string
}

// FeedCountQuery is a validated, normalized feed count query. It is the input of cache key
// resolution, so two requests that normalize to the same query share one cached value.
type FeedCountQuery struct {
	EnvironmentID string
	SubscriberID  string
	Seen          *bool
	Read          *bool
	Limit         int
}

// FeedCountResult is the number of matching messages, capped by the query limit.
type FeedCountResult struct {
	Count int `json:"count"`
}

// ParseLimit parses a raw limit value. Empty or non-numeric input yields defaultLimit.
// Numeric input outside [1, 1000] is a validation error carrying the exact caller-facing message.
func ParseLimit(raw string, defaultLimit int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultLimit, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return defaultLimit, nil
	}
	if f < MinFeedCountLimit {
		return 0, apperrors.ValidationField("limit", "limit must not be less than 1")
	}
	if f > MaxFeedCountLimit {
		return 0, apperrors.ValidationField("limit", "limit must not be greater than 1000")
	}
	return int(f), nil
}

// ParseOptionalBool parses a query-string boolean. Empty input means "not supplied".
func ParseOptionalBool(field, raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.ValidationField(field, field+" must be a boolean value")
	}
	return &v, nil
}

// Normalize validates the request and applies defaults: the limit rules of ParseLimit,
// and seen=false when neither seen nor read is supplied.
func (r FeedCountRequest) Normalize(defaultLimit int) (FeedCountQuery, error) {
	if strings.TrimSpace(r.EnvironmentID) == "" {
		return FeedCountQuery{}, apperrors.ValidationField("environment_id", "environment_id is required")
	}
	if strings.TrimSpace(r.SubscriberID) == "" {
		return FeedCountQuery{}, apperrors.ValidationField("subscriber_id", "subscriber_id is required")
	}
	if defaultLimit < MinFeedCountLimit || defaultLimit > MaxFeedCountLimit {
		defaultLimit = DefaultFeedCountLimit
	}
	limit, err := ParseLimit(r.Limit, defaultLimit)
	if err != nil {
		return FeedCountQuery{}, err
	}

	q := FeedCountQuery{
		EnvironmentID: r.EnvironmentID,
		SubscriberID:  r.SubscriberID,
		Seen:          r.Seen,
		Read:          r.Read,
		Limit:         limit,
	}
	if q.Seen == nil && q.Read == nil {
		unseen := false
		q.Seen = &unseen
	}
	return q, nil
}
