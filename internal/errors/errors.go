package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType groups failures by the subsystem that produced them
type ErrorType int

const (
	ErrorTypeConfig     ErrorType = iota // missing or invalid settings
	ErrorTypeValidation                  // bad input to an operation
	ErrorTypeSchema                      // registry inconsistency or missing types
	ErrorTypeDatabase                    // snapshot store
	ErrorTypeNetwork                     // Redis or Neo4j unreachable
	ErrorTypeFileSystem                  // dataset and cache files
	ErrorTypeExternal                    // embedding providers
	ErrorTypeInternal
)

// Severity decides the exit code: only SeverityCritical is fatal
type Severity int

const (
	SeverityLow Severity = iota // safe to log and continue
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Codes narrow an ErrorType for errors.Is matching
const (
	CodeMissingType    = "missing_type"
	CodeInvalidSchema  = "invalid_schema"
	CodeNotImplemented = "not_implemented"
)

// Sentinels usable with errors.Is
var (
	ErrMissingType    = &Error{Type: ErrorTypeSchema, Code: CodeMissingType}
	ErrInvalidSchema  = &Error{Type: ErrorTypeSchema, Code: CodeInvalidSchema}
	ErrNotImplemented = &Error{Type: ErrorTypeInternal, Code: CodeNotImplemented}
)

// Error is a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Code       string
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode sets the narrowing code
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// Is matches on Type, and on Code when the target carries one
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Type != t.Type {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString renders the error with its context keys sorted
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n", severityString(e.Severity), typeString(e.Type), e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Context:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, e.Context[k]))
		}
	}
	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}
	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeSchema:
		return "SCHEMA"
	case ErrorTypeDatabase:
		return "DATABASE"
	case ErrorTypeNetwork:
		return "NETWORK"
	case ErrorTypeFileSystem:
		return "FILESYSTEM"
	case ErrorTypeExternal:
		return "EXTERNAL"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error; returns nil for a nil err
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// ValidationError creates a validation error
func ValidationError(message string) *Error {
	return New(ErrorTypeValidation, SeverityHigh, message)
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityHigh, fmt.Sprintf(format, args...))
}

// SchemaErrorf reports an inconsistent schema definition
func SchemaErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeSchema, SeverityCritical, fmt.Sprintf(format, args...)).WithCode(CodeInvalidSchema)
}

// MissingTypeError reports a node or edge type absent after a merge.
// kind is "node" or "edge".
func MissingTypeError(kind, name string) *Error {
	return New(ErrorTypeSchema, SeverityCritical, fmt.Sprintf("missing %s type after merge: %s", kind, name)).
		WithCode(CodeMissingType).
		WithContext("kind", kind).
		WithContext("name", name)
}

// NotImplementedf marks an unsupported code path
func NotImplementedf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityHigh, fmt.Sprintf(format, args...)).WithCode(CodeNotImplemented)
}

// DatabaseErrorf wraps a database error with formatting
func DatabaseErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeDatabase, SeverityCritical, fmt.Sprintf(format, args...))
}

// FileSystemErrorf wraps a filesystem error with formatting
func FileSystemErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, fmt.Sprintf(format, args...))
}

// NetworkErrorf wraps a failure to reach a remote backend
func NetworkErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeNetwork, SeverityHigh, fmt.Sprintf(format, args...))
}

// ExternalErrorf wraps an external service error with formatting
func ExternalErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeExternal, SeverityMedium, fmt.Sprintf(format, args...))
}

// IsFatal reports whether the first structured error in err's chain is critical
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// GetType returns the type of the first structured error in err's chain
func GetType(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// GetSeverity returns the severity of the first structured error in err's
// chain; plain errors count as high
func GetSeverity(err error) Severity {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Severity
	}
	return SeverityHigh
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
