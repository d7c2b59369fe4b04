package markup

import (
	"encoding/xml"
	"errors"
	"fmt"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
)

// Sentinels for errors.Is. They match on error type and code only.
var (
	ErrStructuralParse = &mailerrors.MailError{Type: mailerrors.ErrorTypeParse, Code: mailerrors.ErrCodeStructuralParse}
	ErrRootMismatch    = &mailerrors.MailError{Type: mailerrors.ErrorTypeValidation, Code: mailerrors.ErrCodeRootMismatch}
	ErrLimitExceeded   = &mailerrors.MailError{Type: mailerrors.ErrorTypeParse, Code: mailerrors.ErrCodeLimitExceeded}
	ErrNilBlock        = &mailerrors.MailError{Type: mailerrors.ErrorTypeValidation, Code: mailerrors.ErrCodeNilBlock}
)

// IsStructuralParseError reports whether err is a malformed-markup failure.
func IsStructuralParseError(err error) bool {
	return errors.Is(err, ErrStructuralParse)
}

// IsRootMismatch reports whether err rejected a document for its root tag.
func IsRootMismatch(err error) bool {
	return errors.Is(err, ErrRootMismatch)
}

// IsLimitExceeded reports whether err stopped a decode at a size limit.
func IsLimitExceeded(err error) bool {
	return errors.Is(err, ErrLimitExceeded)
}

func structuralError(cause error) *mailerrors.MailError {
	err := mailerrors.NewParseError(mailerrors.ErrCodeStructuralParse, "malformed markup", cause)
	var syntax *xml.SyntaxError
	if errors.As(cause, &syntax) {
		err.WithLocation("", syntax.Line, 0)
	}
	return err
}

func structuralErrorf(line int, format string, args ...interface{}) *mailerrors.MailError {
	return mailerrors.NewParseError(mailerrors.ErrCodeStructuralParse, fmt.Sprintf(format, args...), nil).
		WithLocation("", line, 0)
}

func rootMismatch(expected, got string, line int) *mailerrors.MailError {
	return mailerrors.NewValidationError(mailerrors.ErrCodeRootMismatch, "not a valid document").
		WithContext("expected", expected).
		WithContext("got", got).
		WithLocation("", line, 0)
}

func limitExceeded(what string, limit, line int) *mailerrors.MailError {
	return mailerrors.NewParseError(mailerrors.ErrCodeLimitExceeded,
		fmt.Sprintf("document exceeds the %s limit of %d", what, limit), nil).
		WithContext("limit", limit).
		WithLocation("", line, 0)
}

func nilBlock(where string) *mailerrors.MailError {
	return mailerrors.NewValidationError(mailerrors.ErrCodeNilBlock, "cannot encode a nil block").
		WithContext("at", where)
}
