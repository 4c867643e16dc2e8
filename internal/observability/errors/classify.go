// Package errors derives low-cardinality error labels for metrics and logs.
package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"

	apperrors "github.com/target/notifyd/internal/errors"
)

// Classify labels err for a metric tag. Application errors use their code and context errors
// their kind. Anything else is named after the root cause's concrete type, e.g.
// "pgconn_pgerror" or "net_operror". A nil error has no label.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}

	name := strings.TrimLeft(fmt.Sprintf("%T", rootCause(err)), "*")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, ".", "_"))
}

// rootCause follows Unwrap to the innermost error. For joined errors the first branch is taken.
func rootCause(err error) error {
	for {
		switch u := err.(type) { //nolint:errorlint // walking the chain by hand
		case interface{ Unwrap() error }:
			next := u.Unwrap()
			if next == nil {
				return err
			}
			err = next
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 || errs[0] == nil {
				return err
			}
			err = errs[0]
		default:
			return err
		}
	}
}
