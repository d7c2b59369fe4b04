package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/conneroisu/mailblocks/internal/document"
	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/preview"
	"github.com/conneroisu/mailblocks/internal/types"
	"github.com/conneroisu/mailblocks/internal/validation"
)

var (
	validateStrict bool
	validateFormat string
	validateLinks  bool
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate [file.mjml...]",
	Short: "Validate MJML documents against the component catalog",
	Long: `Decode MJML documents and check them against the component catalog:

- Markup that cannot be parsed, even after repair
- Documents whose root is not <mjml>
- Components placed where their parent does not allow them
- Leaf components holding children and containers holding text
- Unknown component types (with --strict)
- Links that will not work in a mail client (with --links)

Examples:
  mailblocks validate welcome.mjml
  mailblocks validate --strict templates/*.mjml
  mailblocks validate --format yaml welcome.mjml`,
	RunE: runValidateCommand,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Report unknown component types")
	validateCmd.Flags().BoolVar(&validateLinks, "links", false, "Check the targets of links and buttons")
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", formatText, "Output format (text, json, yaml)")
	AddFlagValidation(validateCmd.Flags(), "format", ValidateChoice(formatText, formatJSON, formatYAML))
}

// ValidationProblem is one finding in a document.
type ValidationProblem struct {
	Code      string `json:"code"                 yaml:"code"`
	Message   string `json:"message"              yaml:"message"`
	BlockType string `json:"block_type,omitempty" yaml:"block_type,omitempty"`
	Path      string `json:"path,omitempty"       yaml:"path,omitempty"`
	Line      int    `json:"line,omitempty"       yaml:"line,omitempty"`
}

type ValidationResult struct {
	File        string              `json:"file"                  yaml:"file"`
	Valid       bool                `json:"valid"                 yaml:"valid"`
	Blocks      int                 `json:"blocks"                yaml:"blocks"`
	Problems    []ValidationProblem `json:"problems"              yaml:"problems"`
	Suggestions []string            `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

type ValidationSummary struct {
	Total   int                `json:"total"   yaml:"total"`
	Valid   int                `json:"valid"   yaml:"valid"`
	Invalid int                `json:"invalid" yaml:"invalid"`
	Results []ValidationResult `json:"results" yaml:"results"`
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	summary := ValidationSummary{Results: make([]ValidationResult, 0, len(inputs))}
	for _, input := range inputs {
		result, err := env.validateInput(cmd, input)
		if err != nil {
			return err
		}
		summary.Total++
		if result.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
		summary.Results = append(summary.Results, result)
	}

	if err := writeValidationSummary(cmd.OutOrStdout(), summary, validateFormat); err != nil {
		return err
	}

	if summary.Invalid > 0 {
		return fmt.Errorf("%d of %d documents are invalid", summary.Invalid, summary.Total)
	}
	return nil
}

// validateInput decodes and validates one input. Only I/O failures are
// returned as errors; everything else ends up in the result.
func (e *environment) validateInput(cmd *cobra.Command, input string) (ValidationResult, error) {
	text, name, err := readInput(cmd, []string{input}, false)
	if err != nil {
		return ValidationResult{}, err
	}
	root, err := e.decoder().DecodeContext(cmd.Context(), text)
	return e.checkDocument(name, root, err), nil
}

// checkDocument builds the result for a decoded document, or for the error
// that kept it from decoding.
func (e *environment) checkDocument(name string, root *types.Block, decodeErr error) ValidationResult {
	result := ValidationResult{File: name, Valid: true, Problems: []ValidationProblem{}}

	if decodeErr != nil {
		result.Valid = false
		result.Problems = toValidationProblems(mailerrors.Flatten(decodeErr))
		for _, s := range mailerrors.Suggestions(decodeErr, e.suggestionContext(name)) {
			result.Suggestions = append(result.Suggestions, s.Title)
		}
		return result
	}
	result.Blocks = root.Count()

	var err error
	if validateStrict {
		err = document.ValidateStrict(root, e.registry)
	} else {
		err = document.Validate(root, e.registry)
	}
	if err != nil {
		result.Valid = false
		problems := mailerrors.Flatten(err)
		result.Problems = toValidationProblems(problems)
		seen := make(map[string]bool)
		for _, p := range problems {
			for _, s := range mailerrors.Suggestions(p, e.suggestionContext(name)) {
				if !seen[s.Title] {
					seen[s.Title] = true
					result.Suggestions = append(result.Suggestions, s.Title)
				}
			}
		}
	}

	if validateLinks {
		if bad := validation.CheckLinks(preview.Links(e.registry, root)); len(bad) > 0 {
			result.Valid = false
			result.Problems = append(result.Problems, toValidationProblems(bad)...)
		}
	}
	return result
}

func toValidationProblems(errs []*mailerrors.MailError) []ValidationProblem {
	out := make([]ValidationProblem, 0, len(errs))
	for _, e := range errs {
		p := ValidationProblem{Code: e.Code, Message: e.Message, BlockType: e.BlockType, Line: e.Line}
		if path, ok := e.Context["path"].(string); ok {
			p.Path = path
		}
		out = append(out, p)
	}
	return out
}

func writeValidationSummary(w io.Writer, summary ValidationSummary, format string) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	case formatYAML:
		data, err := yaml.Marshal(summary)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	for _, r := range summary.Results {
		writeResultText(w, r)
	}
	fmt.Fprintf(w, "\n%d documents, %d valid, %d invalid\n", summary.Total, summary.Valid, summary.Invalid)
	return nil
}

func writeResultText(w io.Writer, r ValidationResult) {
	if r.Valid {
		fmt.Fprintf(w, "✓ %s (%d blocks)\n", r.File, r.Blocks)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", r.File)
	for _, p := range r.Problems {
		var where []string
		if p.Path != "" {
			where = append(where, p.Path)
		}
		if p.Line > 0 {
			where = append(where, fmt.Sprintf("line %d", p.Line))
		}
		if len(where) > 0 {
			fmt.Fprintf(w, "    [%s] %s: %s\n", p.Code, strings.Join(where, ", "), p.Message)
		} else {
			fmt.Fprintf(w, "    [%s] %s\n", p.Code, p.Message)
		}
	}
	for _, s := range r.Suggestions {
		fmt.Fprintf(w, "    hint: %s\n", s)
	}
}
