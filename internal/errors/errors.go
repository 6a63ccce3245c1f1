// Package errors provides unified error handling for pipeline stages and inference calls.
// Codes travel across gRPC as google.rpc.ErrorInfo details so both sides agree on the reason.
package errors

import (
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
)

// Domain is the ErrorInfo domain used for all translator errors.
const Domain = "autotranslator"

// Code identifies the failing stage or condition.
type Code string

const (
	Unknown            Code = "UNKNOWN"
	Internal           Code = "INTERNAL"
	InvalidArgument    Code = "INVALID_ARGUMENT"
	Unavailable        Code = "UNAVAILABLE"
	Timeout            Code = "TIMEOUT"
	Cancelled          Code = "CANCELLED"
	CaptureFailed      Code = "CAPTURE_FAILED"
	DecodeFailed       Code = "DECODE_FAILED"
	OCRExtractFailed   Code = "OCR_EXTRACT_FAILED"
	OCRInvalidImage    Code = "OCR_INVALID_IMAGE"
	LanguageIDFailed   Code = "LANGUAGE_ID_FAILED"
	UnsupportedLang    Code = "UNSUPPORTED_LANGUAGE"
	TranslationFailed  Code = "TRANSLATION_FAILED"
	ModelLoadFailed    Code = "MODEL_LOAD_FAILED"
	TranslatorNotFound Code = "TRANSLATOR_NOT_FOUND"
	ConfigInvalid      Code = "CONFIG_INVALID"
)

// grpcCodeMap maps error codes to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	Unknown:            codes.Unknown,
	Internal:           codes.Internal,
	InvalidArgument:    codes.InvalidArgument,
	Unavailable:        codes.Unavailable,
	Timeout:            codes.DeadlineExceeded,
	Cancelled:          codes.Canceled,
	CaptureFailed:      codes.Internal,
	DecodeFailed:       codes.InvalidArgument,
	OCRExtractFailed:   codes.Internal,
	OCRInvalidImage:    codes.InvalidArgument,
	LanguageIDFailed:   codes.Internal,
	UnsupportedLang:    codes.InvalidArgument,
	TranslationFailed:  codes.Internal,
	ModelLoadFailed:    codes.Unavailable,
	TranslatorNotFound: codes.NotFound,
	ConfigInvalid:      codes.InvalidArgument,
}

// AppError is the base error type with structured code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// ToProto converts to a google.rpc.ErrorInfo message.
func (e *AppError) ToProto() *errdetails.ErrorInfo {
	info := &errdetails.ErrorInfo{Reason: string(e.Code), Domain: Domain}
	if len(e.Metadata) > 0 {
		info.Metadata = e.Metadata
	}
	return info
}

// GRPCStatus returns a gRPC status with the ErrorInfo attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Message)
	if withDetail, err := st.WithDetails(e.ToProto()); err == nil {
		st = withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError extracts an AppError from a gRPC error, falling back to the status code.
func FromGRPCError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: Unknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			if d.GetDomain() == Domain {
				return &AppError{Code: Code(d.GetReason()), Message: st.Message(), Metadata: d.GetMetadata(), Cause: err}
			}
		case *anypb.Any:
			var info errdetails.ErrorInfo
			if d.UnmarshalTo(&info) == nil && info.GetDomain() == Domain {
				return &AppError{Code: Code(info.GetReason()), Message: st.Message(), Metadata: info.GetMetadata(), Cause: err}
			}
		}
	}

	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message(), Cause: err}
}

// grpcToCode maps gRPC codes back to error codes (best effort).
func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return InvalidArgument
	case codes.NotFound:
		return TranslatorNotFound
	case codes.Unavailable:
		return Unavailable
	case codes.DeadlineExceeded:
		return Timeout
	case codes.Canceled:
		return Cancelled
	case codes.Internal:
		return Internal
	default:
		return Unknown
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	switch appErr.Code {
	case Unavailable, Timeout, ModelLoadFailed:
		return true
	default:
		return false
	}
}
