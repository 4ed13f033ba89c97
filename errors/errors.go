// Package errors provides errors with attached gRPC status codes, stack
// traces, and user presentable messages.
//
// It implements the standard error interface and supports errors.Is/As, so
// it can be used interchangeably with code expecting normal errors. The
// status code is used to classify failures (PermissionDenied vs Unavailable,
// for example) without string matching, and the user presentable message is
// what should be rendered at a UI boundary instead of the internal error
// string.
package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/runtime/protoiface"
)

// The maximum number of stackframes on any error.
var MaxStackDepth = 50

// Error is an error with an attached stacktrace, status code, and optional
// user presentable message. It can be used wherever the builtin error
// interface is expected.
type Error struct {
	Err    error
	stack  []uintptr
	frames []StackFrame

	// gRPC status code classifying the error.
	code codes.Code

	// Structured details to attach to a gRPC status.
	details []protoiface.MessageV1

	// Message that is safe to show to an end user.
	userMessage string
}

// New makes an Error from the given value. If that value is already an error
// then it will be used directly, if not, it will be passed to
// fmt.Errorf("%v"). The stacktrace will point to the line of code that
// called New.
func New(e interface{}) *Error {
	return newError(e, codes.Unknown, 1)
}

// NewC makes an Error with a status code defined.
func NewC(e interface{}, code codes.Code) *Error {
	return newError(e, code, 1)
}

// Codef creates a new error with a status code and a formatted message.
func Codef(code codes.Code, format string, a ...interface{}) *Error {
	return newError(fmt.Errorf(format, a...), code, 1)
}

// Errorf creates a new error with the given message. It can be used as a
// drop-in replacement for fmt.Errorf() to provide descriptive errors in
// return values.
func Errorf(format string, a ...interface{}) *Error {
	return newError(fmt.Errorf(format, a...), codes.Unknown, 1)
}

func newError(e interface{}, code codes.Code, skip int) *Error {
	var err error
	switch e := e.(type) {
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(2+skip, stack[:])
	return &Error{
		Err:   err,
		stack: stack[:length],
		code:  code,
	}
}

// Wrap makes an Error from the given value. If that value is already an
// *Error it is returned as-is. The skip parameter indicates how far up the
// stack to start the stacktrace. 0 is from the current call, 1 from its
// caller, etc.
func Wrap(e interface{}, skip int) *Error {
	if e == nil {
		return nil
	}
	if err, ok := e.(*Error); ok {
		return err
	}
	return newError(e, codes.Unknown, 1+skip)
}

// Mark takes an error and sets the stack trace from the point it was called,
// overriding any previous stack trace that may have been set. Useful when
// returning sentinel errors, so the trace points at the return site rather
// than the package initializer.
func Mark(e interface{}, skip int) *Error {
	if e == nil {
		return nil
	}
	if err, ok := e.(*Error); ok {
		stack := make([]uintptr, MaxStackDepth)
		length := runtime.Callers(2+skip, stack[:])
		// Wrap the original error rather than its cause, so errors.Is against
		// the sentinel still matches.
		return &Error{
			Err:         err,
			stack:       stack[:length],
			code:        err.code,
			details:     err.details,
			userMessage: err.userMessage,
		}
	}
	return newError(e, codes.Unknown, 1+skip)
}

// WithCode takes an error and adds a status code to it. If the error is not
// already an *Error, it will be wrapped in one.
func WithCode(err error, code codes.Code) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, 1).WithCode(code)
}

// WithUserMessage takes an error and attaches a formatted, user presentable
// message to it. If the error is not already an *Error, it will be wrapped
// in one.
func WithUserMessage(err error, format string, a ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, 1).WithUserMessage(fmt.Sprintf(format, a...))
}

// Is reports whether any error in err's chain matches target. Forwarded from
// the standard library so callers don't need two imports.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target. Forwarded
// from the standard library so callers don't need two imports.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Error returns the underlying error's message.
func (err *Error) Error() string {
	return err.Err.Error()
}

// Unwrap the error (implements api for As/Is functions).
func (err *Error) Unwrap() error {
	return err.Err
}

// Code returns the gRPC status code associated with the error.
func (err *Error) Code() codes.Code {
	return err.code
}

// WithCode sets the gRPC status code associated with the error.
func (err *Error) WithCode(code codes.Code) *Error {
	err.code = code
	return err
}

// Details returns the structured details associated with the error.
func (err *Error) Details() []protoiface.MessageV1 {
	return err.details
}

// WithDetails attaches structured details to the error.
func (err *Error) WithDetails(details ...protoiface.MessageV1) *Error {
	err.details = append(err.details, details...)
	return err
}

// UserMessage returns the error string that is safe to show an end user. If
// no user presentable message was set, the internal message is returned.
func (err *Error) UserMessage() string {
	if err.userMessage != "" {
		return err.userMessage
	}
	return err.Error()
}

// WithUserMessage sets the error string that should be shown to an end user.
func (err *Error) WithUserMessage(msg string) *Error {
	err.userMessage = msg
	return err
}

// Stack returns the callstack formatted the same way that go does in
// runtime/debug.Stack().
func (err *Error) Stack() []byte {
	buf := bytes.Buffer{}
	for _, frame := range err.StackFrames() {
		buf.WriteString(frame.String())
	}
	return buf.Bytes()
}

// ErrorStack returns a string that contains both the error message and the
// callstack.
func (err *Error) ErrorStack() string {
	return err.TypeName() + " " + err.Error() + "\n" + string(err.Stack())
}

// StackFrames returns an array of frames containing information about the
// stack.
func (err *Error) StackFrames() []StackFrame {
	if err.frames == nil {
		err.frames = make([]StackFrame, len(err.stack))
		for i, pc := range err.stack {
			err.frames[i] = NewStackFrame(pc)
		}
	}
	return err.frames
}

// TypeName returns the type of this error. e.g. *errors.stringError.
func (err *Error) TypeName() string {
	return reflect.TypeOf(err.Err).String()
}

// GRPCStatus returns a gRPC status object for the error.
func (err *Error) GRPCStatus() *status.Status {
	st := status.New(err.Code(), err.UserMessage())
	if len(err.details) > 0 {
		st, _ = st.WithDetails(err.details...)
	}
	return st
}

// Code returns a gRPC status code for an error. If the error is nil, it
// returns codes.OK. If any error in the chain exposes a `Code()` method, it
// is returned. Otherwise codes.Unknown is returned.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if coded, ok := e.(codedError); ok {
			return coded.Code()
		}
	}
	return codes.Unknown
}

// UserMessage returns the user presentable message for an error, falling
// back to the raw error string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if um, ok := e.(userMessageError); ok {
			return um.UserMessage()
		}
	}
	return err.Error()
}

// HTTPStatusCode returns an HTTP status code for an error, mapped from its
// gRPC code. If the error is nil, it returns http.StatusOK.
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type codedError interface {
	Code() codes.Code
}

type userMessageError interface {
	UserMessage() string
}
