package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *MailError
		expected string
	}{
		{
			name:     "code and message",
			err:      NewValidationError(ErrCodeNilBlock, "block is nil"),
			expected: "[NIL_BLOCK] block is nil",
		},
		{
			name: "line without path",
			err: NewParseError(ErrCodeStructuralParse, "malformed markup", io.ErrUnexpectedEOF).
				WithLocation("", 3, 0),
			expected: "[STRUCTURAL_PARSE] line 3 malformed markup: unexpected EOF",
		},
		{
			name: "path line and column",
			err: NewValidationError(ErrCodeInvalidChild, "not allowed here").
				WithBlockType("mj-text").
				WithLocation("welcome.mjml", 4, 7),
			expected: "[INVALID_CHILD] block:mj-text welcome.mjml:4:7 not allowed here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestMailErrorIsMatchesTypeAndCode(t *testing.T) {
	sentinel := &MailError{Type: ErrorTypeParse, Code: ErrCodeRootMismatch}

	err := NewParseError(ErrCodeRootMismatch, "not a valid document", nil)
	wrapped := fmt.Errorf("decode: %w", err)

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(NewParseError(ErrCodeStructuralParse, "x", nil), sentinel))
	assert.False(t, errors.Is(NewValidationError(ErrCodeRootMismatch, "x"), sentinel))
}

func TestMailErrorUnwrap(t *testing.T) {
	err := NewIOError(ErrCodeIO, "read failed", io.ErrClosedPipe)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, ErrCodeIO, "ignored"))

	plain := Wrap(errors.New("boom"), ErrorTypeParse, ErrCodeStructuralParse, "parse")
	assert.True(t, plain.Recoverable)
	assert.Equal(t, "boom", plain.Cause.Error())

	inner := NewValidationError(ErrCodeInvalidChild, "bad child").
		WithBlockType("mj-section").
		WithContext("parent", "mj-body")
	outer := Wrap(inner, ErrorTypeValidation, ErrCodeContentModel, "invalid tree")
	assert.Equal(t, "mj-section", outer.BlockType)
	assert.Equal(t, "mj-body", outer.Context["parent"])
	assert.True(t, errors.Is(outer, &MailError{Type: ErrorTypeValidation, Code: ErrCodeInvalidChild}))
}

func TestWrapIO(t *testing.T) {
	err := WrapIO(io.EOF, "in.mjml", "reading input")
	require.NotNil(t, err)
	assert.Equal(t, ErrorTypeIO, err.Type)
	assert.Equal(t, "in.mjml", err.FilePath)
	assert.Equal(t, ErrCodeIO, CodeOf(err))
}

func TestHelpers(t *testing.T) {
	parseErr := NewParseError(ErrCodeStructuralParse, "x", nil)
	assert.True(t, IsParseError(parseErr))
	assert.False(t, IsValidationError(parseErr))
	assert.True(t, IsRecoverable(parseErr))
	assert.False(t, IsRecoverable(NewInternalError(ErrCodeInternalError, "x", nil)))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

type recordingLogger struct {
	warns  []string
	errors []string
}

func (r *recordingLogger) Error(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.errors = append(r.errors, msg)
}

func (r *recordingLogger) Warn(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.warns = append(r.warns, msg)
}

func TestErrorHandler(t *testing.T) {
	logger := &recordingLogger{}
	handler := NewErrorHandler(logger)
	ctx := context.Background()

	handler.Handle(ctx, nil)
	handler.Handle(ctx, NewParseError(ErrCodeStructuralParse, "x", nil))
	handler.Handle(ctx, NewIOError(ErrCodeIO, "x", nil))
	handler.Handle(ctx, errors.New("plain"))

	assert.Equal(t, []string{"Document rejected"}, logger.warns)
	assert.Equal(t, []string{"Error occurred", "Unhandled error occurred"}, logger.errors)
}

func TestErrorCollector(t *testing.T) {
	collector := NewErrorCollector()
	assert.NoError(t, collector.Err())

	collector.Add(nil)
	assert.False(t, collector.HasErrors())

	first := NewValidationError(ErrCodeInvalidChild, "first")
	collector.Add(first)
	assert.Same(t, first, collector.Err())

	collector.Add(NewValidationError(ErrCodeContentModel, "second"))
	err := collector.Err()
	var multi *MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 2)
	assert.True(t, strings.HasPrefix(err.Error(), "2 problems found:"))
	assert.True(t, errors.Is(err, &MailError{Type: ErrorTypeValidation, Code: ErrCodeContentModel}))

	collector.Clear()
	assert.Equal(t, 0, collector.Len())
}

func TestErrorCollectorConcurrentAdd(t *testing.T) {
	collector := NewErrorCollector()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				collector.Add(NewValidationError(ErrCodeInvalidChild, "x"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, collector.Len())
}

func TestSuggestions(t *testing.T) {
	t.Run("root mismatch on fragment", func(t *testing.T) {
		err := NewParseError(ErrCodeRootMismatch, "not a valid document", nil).
			WithContext("got", "mj-section")
		suggestions := Suggestions(err, &SuggestionContext{RootType: "mjml"})
		require.Len(t, suggestions, 2)
		assert.Equal(t, "Not a valid document", suggestions[0].Title)
		assert.Contains(t, suggestions[1].Description, "<mj-section>")
	})

	t.Run("parse failure with eof", func(t *testing.T) {
		err := NewParseError(ErrCodeStructuralParse, "malformed markup", io.ErrUnexpectedEOF)
		suggestions := Suggestions(err, nil)
		titles := make([]string, 0, len(suggestions))
		for _, s := range suggestions {
			titles = append(titles, s.Title)
		}
		assert.Contains(t, titles, "Unclosed element")
	})

	t.Run("invalid child lists allowed", func(t *testing.T) {
		err := NewValidationError(ErrCodeInvalidChild, "x").
			WithBlockType("mj-section").
			WithContext("allowed", []string{"mj-column", "mj-group"})
		suggestions := Suggestions(err, nil)
		require.NotEmpty(t, suggestions)
		assert.Contains(t, suggestions[0].Description, "mj-column, mj-group")
	})

	t.Run("plain errors have none", func(t *testing.T) {
		assert.Nil(t, Suggestions(errors.New("plain"), nil))
	})
}

func TestFormatSuggestions(t *testing.T) {
	assert.Equal(t, "", FormatSuggestions(nil))

	out := FormatSuggestions([]ErrorSuggestion{
		{Title: "List components", Description: "See types", Command: "mailblocks components"},
	})
	assert.Contains(t, out, "Suggestions:")
	assert.Contains(t, out, "$ mailblocks components")
}

func TestFlatten(t *testing.T) {
	assert.Nil(t, Flatten(nil))

	single := NewValidationError(ErrCodeInvalidChild, "bad child")
	assert.Equal(t, []*MailError{single}, Flatten(fmt.Errorf("wrapped: %w", single)))

	collector := NewErrorCollector()
	collector.Add(single)
	collector.Add(NewValidationError(ErrCodeDuplicateID, "dup"))
	flat := Flatten(collector.Err())
	require.Len(t, flat, 2)
	assert.Equal(t, ErrCodeDuplicateID, flat[1].Code)

	plain := Flatten(errors.New("boom"))
	require.Len(t, plain, 1)
	assert.Equal(t, ErrCodeInternalError, plain[0].Code)
	assert.Equal(t, ErrorTypeInternal, plain[0].Type)
}
