package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Error codes reported by the stores.
const (
	CodeEndpointUnreachable = "E_ENDPOINT_UNREACHABLE"
	CodeAuthInvalid         = "E_AUTH_INVALID"
	CodeBucketNotFound      = "E_BUCKET_NOT_FOUND"
	CodeObjectNotFound      = "E_OBJECT_NOT_FOUND"
	CodePermissionDenied    = "E_PERMISSION_DENIED"
	CodeTimeout             = "E_TIMEOUT"
	CodeReadFailed          = "E_READ_FAILED"
)

// Error wraps a store failure with a stable code and a retryability hint.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func wrapError(code string, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// classify converts minio-go and filesystem errors into an *Error.
func classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return wrapError(CodeTimeout, true, err)
	case errors.Is(err, fs.ErrNotExist):
		return wrapError(CodeObjectNotFound, false, err)
	case errors.Is(err, fs.ErrPermission):
		return wrapError(CodePermissionDenied, false, err)
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		return wrapError(CodeBucketNotFound, false, err)
	case "NoSuchKey", "NotFound":
		return wrapError(CodeObjectNotFound, false, err)
	case "AccessDenied":
		return wrapError(CodePermissionDenied, false, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return wrapError(CodeAuthInvalid, false, err)
	case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
		return wrapError(CodeReadFailed, true, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return wrapError(CodeTimeout, true, err)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"), strings.Contains(msg, "unreachable"):
		return wrapError(CodeEndpointUnreachable, true, err)
	}

	return wrapError(CodeReadFailed, true, err)
}
