package api

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/formkeeper/internal/core/store"
)

// ErrInvalidRequest marks requests missing a required member or carrying
// one of the wrong type.
var ErrInvalidRequest = goerr.New("invalid request")

// Error mapping:
//   - missing forms map to NOT_FOUND
//   - stale ETags map to ABORTED
//   - malformed requests and unusable forms map to INVALID_ARGUMENT
//   - context timeouts map to DEADLINE_EXCEEDED
//   - everything else (database, filesystem) maps to UNAVAILABLE

// Code returns the gRPC code for err.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, store.ErrConflict):
		return codes.Aborted
	case errors.Is(err, store.ErrInvalidForm), errors.Is(err, ErrInvalidRequest):
		return codes.InvalidArgument
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return codes.Unavailable
}

// Status converts err into a gRPC status error. Errors that already carry a
// status pass through.
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}
