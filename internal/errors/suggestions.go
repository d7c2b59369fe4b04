package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// SuggestionContext provides context for generating suggestions
type SuggestionContext struct {
	RootType   string
	KnownTypes []string
	ConfigPath string
	InputPath  string
}

// Suggestions returns actionable hints for err. Unknown errors yield nil.
func Suggestions(err error, ctx *SuggestionContext) []ErrorSuggestion {
	if ctx == nil {
		ctx = &SuggestionContext{RootType: "mjml"}
	}

	var me *MailError
	if !errors.As(err, &me) {
		return nil
	}

	switch me.Code {
	case ErrCodeRootMismatch:
		return RootMismatchSuggestions(me, ctx)
	case ErrCodeStructuralParse:
		return ParseFailureSuggestions(me.Error(), ctx)
	case ErrCodeLimitExceeded:
		return []ErrorSuggestion{
			{
				Title:       "Document too large or too deep",
				Description: "Raise the codec limits if the document is trusted",
				Example:     "codec:\n  max_depth: 200\n  max_nodes: 50000",
			},
		}
	case ErrCodeInvalidChild:
		return InvalidChildSuggestions(me, ctx)
	case ErrCodeConfigInvalid:
		return ConfigurationError(me.Error(), ctx.ConfigPath)
	}

	return nil
}

// RootMismatchSuggestions explains how to turn a fragment into a document.
func RootMismatchSuggestions(err *MailError, ctx *SuggestionContext) []ErrorSuggestion {
	root := ctx.RootType
	if root == "" {
		root = "mjml"
	}

	suggestions := []ErrorSuggestion{
		{
			Title:       "Not a valid document",
			Description: fmt.Sprintf("The outermost element must be <%s>", root),
			Example:     fmt.Sprintf("<%s>\n  <mj-body>\n    ...\n  </mj-body>\n</%s>", root, root),
		},
	}

	if got, ok := err.Context["got"].(string); ok && got != "" {
		if strings.HasPrefix(got, "mj-") {
			suggestions = append(suggestions, ErrorSuggestion{
				Title:       "Wrap the fragment",
				Description: fmt.Sprintf("<%s> looks like a fragment; wrap it in <%s><mj-body>", got, root),
			})
		}
		if got == "html" {
			suggestions = append(suggestions, ErrorSuggestion{
				Title:       "Compiled HTML is not importable",
				Description: "Import the source markup instead of the compiled HTML output",
			})
		}
	}

	return suggestions
}

// ParseFailureSuggestions inspects the parser diagnostic for common causes.
func ParseFailureSuggestions(message string, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check the markup is well-formed",
			Description: "Every opening tag needs a matching closing tag or a trailing />",
		},
	}

	msg := strings.ToLower(message)

	if strings.Contains(msg, "element <") && strings.Contains(msg, "closed by") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Mismatched tags",
			Description: "A tag was closed by a different tag name",
			Example:     "<mj-column>\n  <mj-text>Hi</mj-text>\n</mj-column>",
		})
	}

	if strings.Contains(msg, "unexpected eof") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Unclosed element",
			Description: "The document ended before all elements were closed",
		})
	}

	if strings.Contains(msg, "invalid character entity") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Escape ampersands in text",
			Description: "Write & as &amp; inside text content",
		})
	}

	if strings.Contains(msg, "<br>") || strings.Contains(msg, "element <br>") ||
		strings.Contains(msg, "element <img>") || strings.Contains(msg, "element <hr>") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Self-close HTML void elements",
			Description: "Inside mj-text and mj-raw, write <br /> rather than <br>",
		})
	}

	return suggestions
}

// InvalidChildSuggestions lists the child types a parent accepts.
func InvalidChildSuggestions(err *MailError, ctx *SuggestionContext) []ErrorSuggestion {
	var suggestions []ErrorSuggestion
	if allowed, ok := err.Context["allowed"].([]string); ok && len(allowed) > 0 {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Allowed children",
			Description: fmt.Sprintf("<%s> accepts: %s", err.BlockType, strings.Join(allowed, ", ")),
		})
	}
	suggestions = append(suggestions, ErrorSuggestion{
		Title:       "List components",
		Description: "See every known block type and its allowed children",
		Command:     "mailblocks components --with-children",
	})
	return suggestions
}

// ConfigurationError generates suggestions for configuration issues
func ConfigurationError(configError string, configPath string) []ErrorSuggestion {
	if configPath == "" {
		configPath = ".mailblocks.yml"
	}

	suggestions := []ErrorSuggestion{
		{
			Title:       "Check configuration file",
			Description: "Verify your .mailblocks.yml file exists and has valid syntax",
			Command:     "cat " + configPath,
		},
	}

	if strings.Contains(configError, "yaml") || strings.Contains(configError, "unmarshal") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix YAML syntax",
			Description: "There's a syntax error in your YAML configuration",
			Example:     "Use proper indentation and avoid tabs",
		})
	}

	if strings.Contains(configError, "max_depth") || strings.Contains(configError, "max_nodes") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use positive limits",
			Description: "codec.max_depth and codec.max_nodes must be greater than zero",
		})
	}

	return suggestions
}

// FormatSuggestions renders suggestions as an indented list for terminals.
func FormatSuggestions(suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Suggestions:\n")
	for _, s := range suggestions {
		fmt.Fprintf(&b, "  • %s", s.Title)
		if s.Description != "" {
			fmt.Fprintf(&b, ": %s", s.Description)
		}
		b.WriteString("\n")
		if s.Command != "" {
			fmt.Fprintf(&b, "      $ %s\n", s.Command)
		}
		if s.Example != "" {
			for _, line := range strings.Split(s.Example, "\n") {
				fmt.Fprintf(&b, "      %s\n", line)
			}
		}
	}
	return b.String()
}
