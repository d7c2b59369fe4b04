package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a MailError if the
// input is not already one.
func Wrap(err error, errType ErrorType, code, message string) *MailError {
	if err == nil {
		return nil
	}

	var me *MailError
	if errors.As(err, &me) {
		return &MailError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       me,
			Context:     me.Context,
			BlockType:   me.BlockType,
			FilePath:    me.FilePath,
			Line:        me.Line,
			Column:      me.Column,
			Recoverable: me.Recoverable,
		}
	}

	return &MailError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeParse,
	}
}

// WrapIO wraps an error as an I/O error for the given path.
func WrapIO(err error, path, message string) *MailError {
	me := Wrap(err, ErrorTypeIO, ErrCodeIO, message)
	if me != nil {
		me.FilePath = path
	}
	return me
}

// WrapValidation wraps an error as a validation error.
func WrapValidation(err error, code, message string) *MailError {
	return Wrap(err, ErrorTypeValidation, code, message)
}
