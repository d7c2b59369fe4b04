package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// MailError is a structured error type with context.
type MailError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	BlockType   string
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *MailError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.BlockType != "" {
		parts = append(parts, "block:"+e.BlockType)
	}

	if e.FilePath != "" || e.Line > 0 {
		location := e.FilePath
		if e.Line > 0 {
			if location != "" {
				location += ":"
			} else {
				location = "line "
			}
			location += fmt.Sprintf("%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *MailError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code, so sentinel MailErrors work with errors.Is.
func (e *MailError) Is(target error) bool {
	var t *MailError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *MailError) WithContext(key string, value interface{}) *MailError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *MailError) WithLocation(filePath string, line, column int) *MailError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithBlockType adds the block type the error relates to.
func (e *MailError) WithBlockType(blockType string) *MailError {
	e.BlockType = blockType

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *MailError {
	return &MailError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewParseError creates a parse error. Parse errors are recoverable to the
// caller: the input is rejected and nothing else is affected.
func NewParseError(code, message string, cause error) *MailError {
	return &MailError{
		Type:        ErrorTypeParse,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *MailError {
	return &MailError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *MailError {
	return &MailError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *MailError {
	return &MailError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var me *MailError
	if errors.As(err, &me) {
		return me.Recoverable
	}

	return false
}

// IsParseError checks if an error came from reading markup or JSON.
func IsParseError(err error) bool {
	return hasType(err, ErrorTypeParse)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// CodeOf returns the code of the outermost MailError in the chain.
func CodeOf(err error) string {
	var me *MailError
	if errors.As(err, &me) {
		return me.Code
	}

	return ""
}

func hasType(err error, t ErrorType) bool {
	var me *MailError
	if errors.As(err, &me) {
		return me.Type == t
	}

	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level that depends on its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var me *MailError
	if !errors.As(err, &me) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch me.Type {
	case ErrorTypeParse, ErrorTypeValidation:
		h.logger.Warn(ctx, err, "Document rejected",
			"type", me.Type,
			"code", me.Code,
			"block", me.BlockType,
			"line", me.Line)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", me.Type,
			"code", me.Code)
	}
}

// Common error codes.
const (
	ErrCodeStructuralParse = "STRUCTURAL_PARSE"
	ErrCodeRootMismatch    = "ROOT_MISMATCH"
	ErrCodeLimitExceeded   = "LIMIT_EXCEEDED"
	ErrCodeNilBlock        = "NIL_BLOCK"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeContentModel    = "CONTENT_MODEL"
	ErrCodeInvalidChild    = "INVALID_CHILD"
	ErrCodeBlockNotFound   = "BLOCK_NOT_FOUND"
	ErrCodeUnknownType     = "UNKNOWN_TYPE"
	ErrCodeInvalidType     = "INVALID_TYPE"
	ErrCodeInvalidName     = "INVALID_ATTRIBUTE_NAME"
	ErrCodeDuplicateID     = "DUPLICATE_ID"
	ErrCodeInvalidMove     = "INVALID_MOVE"
	ErrCodeInvalidLink     = "INVALID_LINK"
	ErrCodeConfigInvalid   = "CONFIG_INVALID"
	ErrCodeFileNotFound    = "FILE_NOT_FOUND"
	ErrCodeIO              = "IO"
	ErrCodeInternalError   = "INTERNAL"
)
