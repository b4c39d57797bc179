package errs

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrInvalidContent indicates a submission failed structural, length or
	// enum constraints. Never retried automatically.
	ErrInvalidContent = errors.New("invalid report content")
	// ErrNotFound indicates a referenced report, user or achievement is absent.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates an authorization predicate failed.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition indicates a state machine rule was violated.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflictingUpdate indicates a concurrent write lost a race on an
	// award, grant or transition. Callers should retry the whole operation.
	ErrConflictingUpdate = errors.New("conflicting update")
	// ErrDependencyUnavailable indicates the storage or notification
	// collaborator failed.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// GRPCStatus maps a domain error to the gRPC status the transport layer
// should return. Unrecognized errors map to Internal.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		// Already a transport status, pass through untouched.
		return err
	}
	switch {
	case errors.Is(err, ErrInvalidContent):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrConflictingUpdate):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, ErrDependencyUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
