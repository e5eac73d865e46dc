package service

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"filevault/internal/repository"
)

// Error kinds. Match with errors.Is on any error returned by this package.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrOTPDispatch     = errors.New("otp dispatch failed")
	ErrSessionCreation = errors.New("session creation failed")
	ErrRateLimited     = errors.New("rate limited")
	ErrPlatform        = errors.New("platform error")
)

// Error is the failure of one service operation.
// Kind is one of the sentinels above; Err is the underlying cause and may be nil.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the sentinel kind of err, ErrPlatform for foreign errors and nil for nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrPlatform
}

func invalid(op, msg string) error {
	return &Error{Op: op, Kind: ErrInvalidInput, Err: errors.New(msg)}
}

func unauthenticated(op string) error {
	return &Error{Op: op, Kind: ErrUnauthenticated}
}

// platform wraps a lower-level failure, surfacing missing records as ErrNotFound.
func platform(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Op: op, Kind: ErrNotFound, Err: err}
	}
	return &Error{Op: op, Kind: ErrPlatform, Err: err}
}

var tracer = otel.Tracer("filevault/internal/service")

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).Error())
	}
	span.End()
}
