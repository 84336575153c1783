package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// ErrValidation is returned before any store write when an event carries invalid input.
	ErrValidation = fmt.Errorf("validation error")
	// ErrNotFound means the referenced record does not exist (or vanished between read and write).
	ErrNotFound = fmt.Errorf("record not found")
	// ErrStoreUnavailable wraps any failure of the durable store.
	ErrStoreUnavailable = fmt.Errorf("store unavailable")

	ErrUnknownEvent        = fmt.Errorf("unknown event")
	// ErrMalformedFrame is a frame that is not a JSON envelope. The connection stays usable.
	ErrMalformedFrame      = fmt.Errorf("malformed frame")
	ErrSessionLagging      = fmt.Errorf("session is lagging behind broadcasts")
	ErrOrchestratorStopped = fmt.Errorf("orchestrator stopped")
)

// MapToGRPCError translates domain sentinels into gRPC status errors.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrOrchestratorStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrSessionLagging):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
