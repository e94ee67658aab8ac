package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type errorKind int

const (
	kindFailure errorKind = iota
	kindNotFound
	kindUnavailable
)

// StoreError classifies persistence failures into the channels the rate pipeline
// keeps apart: a miss (the store answered, no such row) versus a failed lookup.
type StoreError struct {
	lookup string
	kind   errorKind
	err    error
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.lookup != "" {
		return fmt.Sprintf("%s: %v", e.lookup, e.err)
	}
	return e.err.Error()
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound reports a lookup miss. A miss triggers the static fallback path and
// never aborts a calculation.
func (e *StoreError) IsNotFound() bool {
	return e != nil && e.kind == kindNotFound
}

// IsUnavailable reports a transient outage the caller may retry.
func (e *StoreError) IsUnavailable() bool {
	return e != nil && e.kind == kindUnavailable
}

func classify(code codes.Code) errorKind {
	switch code {
	case codes.NotFound:
		return kindNotFound
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
		return kindUnavailable
	}
	return kindFailure
}

// WrapError tags a raw Firestore error with the lookup that produced it. Local
// context cancellation passes through untouched so callers see their own ctx error.
func WrapError(lookup string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if status.Code(err) == codes.Canceled {
		return context.Canceled
	}

	var store *StoreError
	if errors.As(err, &store) {
		return err
	}
	return &StoreError{lookup: lookup, kind: classify(status.Code(err)), err: err}
}
