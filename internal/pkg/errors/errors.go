// Package errors provides the error type shared by the brandgen server and pipeline.
// Errors carry a Code for categorization, the failing operation, context fields
// and a short stack captured at creation.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code represents an error code for categorization.
type Code string

// Generic codes.
const (
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeNotFound        Code = "NOT_FOUND"
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
)

// Pipeline and storage codes.
const (
	// CodeCatalogLoad aborts a whole run: source unreachable, malformed, or empty.
	CodeCatalogLoad Code = "CATALOG_LOAD_ERROR"
	// CodeRender is a per-record rendering failure.
	CodeRender Code = "RENDER_ERROR"
	// CodePackaging means a rendered artifact could not be encoded to bytes.
	CodePackaging Code = "PACKAGING_ERROR"
	// CodeUpload is a per-batch transport or non-success response failure.
	CodeUpload Code = "UPLOAD_ERROR"
	// CodeStorage is a server-side persistence failure.
	CodeStorage Code = "STORAGE_ERROR"
)

// Error is a custom error type with additional context.
type Error struct {
	// Code is the error code for categorization.
	Code Code
	// Message is the human-readable error message.
	Message string
	// Op is the operation that failed (e.g., "pipeline.upload").
	Op string
	// Err is the underlying error.
	Err error
	// Fields contains additional context fields.
	Fields map[string]any
	// Stack contains the stack trace at error creation.
	Stack []Frame
}

// Frame represents a single stack frame.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Code != "" {
		b.WriteString("[")
		b.WriteString(string(e.Code))
		b.WriteString("] ")
	}

	b.WriteString(e.Message)

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithField adds a field to the error.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeBadRequest:
		return 400
	case CodeNotFound:
		return 404
	case CodePayloadTooLarge:
		return 413
	case CodeUpload, CodeCatalogLoad:
		return 502
	case CodeUnavailable:
		return 503
	case CodeTimeout:
		return 504
	default:
		return 500
	}
}

// StackTrace returns the stack trace as a formatted string.
func (e *Error) StackTrace() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "  %s:%d %s\n", f.File, f.Line, f.Function)
	}
	return b.String()
}

// New creates a new error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error, keeping its code when it already is an *Error.
func Wrap(err error, op string, message string) *Error {
	if err == nil {
		return nil
	}

	code := CodeInternal
	var fields map[string]any
	var e *Error
	if errors.As(err, &e) {
		code = e.Code
		fields = e.Fields
	}

	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
		Fields:  fields,
		Stack:   captureStack(2),
	}
}

// WrapWithCode wraps an error with a specific code.
func WrapWithCode(err error, code Code, op string, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
		Stack:   captureStack(2),
	}
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// NotFound creates a not found error.
func NotFound(resource string, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, id)).
		WithField("resource", resource).
		WithField("id", id)
}

// Unavailable creates an unavailable error.
func Unavailable(service string) *Error {
	return New(CodeUnavailable, fmt.Sprintf("service unavailable: %s", service)).
		WithField("service", service)
}

// CatalogLoad reports a catalog that could not be used for a run.
// err may be nil when the catalog was reachable but yielded nothing usable.
func CatalogLoad(err error, message string) *Error {
	e := &Error{
		Code:    CodeCatalogLoad,
		Message: message,
		Op:      "catalog.load",
		Err:     err,
		Stack:   captureStack(2),
	}
	return e
}

// Render reports a failed render for a single brand.
func Render(err error, brand string) *Error {
	return WrapWithCode(orMessage(err, "empty render output"), CodeRender, "render", "render failed").
		WithField("brand", brand)
}

// Packaging reports an artifact that could not be encoded.
func Packaging(err error, brand string) *Error {
	return WrapWithCode(orMessage(err, "empty encoded output"), CodePackaging, "render.encode", "encode failed").
		WithField("brand", brand)
}

// Upload reports a failed batch submission.
func Upload(err error, status int) *Error {
	e := WrapWithCode(orMessage(err, "upload rejected"), CodeUpload, "upload.submit", "batch upload failed")
	if status > 0 {
		e.WithField("status", status)
	}
	return e
}

// Storage reports a server-side persistence failure.
func Storage(err error, name string) *Error {
	return WrapWithCode(orMessage(err, "storage failure"), CodeStorage, "storage.put", "failed to store file").
		WithField("name", name)
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetHTTPStatus extracts the HTTP status from an error.
func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return 500
}

// GetFields extracts fields from an error.
func GetFields(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) && e.Fields != nil {
		return e.Fields
	}
	return nil
}

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// IsCatalogLoad checks if an error aborted a run at load time.
func IsCatalogLoad(err error) bool {
	return IsCode(err, CodeCatalogLoad)
}

// IsUpload checks if an error is a batch upload failure.
func IsUpload(err error) bool {
	return IsCode(err, CodeUpload)
}

func orMessage(err error, msg string) error {
	if err != nil {
		return err
	}
	return errors.New(msg)
}

func captureStack(skip int) []Frame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])

	frames := make([]Frame, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := callersFrames.Next()

		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}

		frames = append(frames, Frame{
			File:     frame.File,
			Line:     frame.Line,
			Function: frame.Function,
		})

		if !more || len(frames) >= 10 {
			break
		}
	}

	return frames
}

// As is a convenience wrapper for errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is a convenience wrapper for errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
