package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/types"
)

const (
	stdinName     = "<stdin>"
	clipboardName = "<clipboard>"
)

// ioFlags are shared by commands that read one document and write one
// result.
type ioFlags struct {
	output        string
	fromClipboard bool
	toClipboard   bool
}

func addIOFlags(cmd *cobra.Command, f *ioFlags) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the result to a file instead of stdout")
	cmd.Flags().BoolVar(&f.fromClipboard, "paste", false, "Read the input from the clipboard")
	cmd.Flags().BoolVar(&f.toClipboard, "copy", false, "Copy the result to the clipboard")
}

// readInput returns the input text and a name for messages. With no
// argument or "-" it reads stdin.
func readInput(cmd *cobra.Command, args []string, fromClipboard bool) (string, string, error) {
	if fromClipboard {
		if len(args) > 0 {
			return "", "", fmt.Errorf("cannot use --paste with an input file")
		}
		text, err := clipboard.ReadAll()
		if err != nil {
			return "", "", mailerrors.WrapIO(err, clipboardName, "failed to read clipboard")
		}
		return text, clipboardName, nil
	}

	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", mailerrors.WrapIO(err, stdinName, "failed to read stdin")
		}
		return string(data), stdinName, nil
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", mailerrors.NewIOError(mailerrors.ErrCodeFileNotFound, "input file not found", err).
				WithLocation(path, 0, 0)
		}
		return "", "", mailerrors.WrapIO(err, path, "failed to read input")
	}
	return string(data), path, nil
}

// writeOutput sends text to the clipboard, a file or stdout.
func writeOutput(cmd *cobra.Command, f ioFlags, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	if f.toClipboard {
		if err := clipboard.WriteAll(text); err != nil {
			return mailerrors.WrapIO(err, clipboardName, "failed to write clipboard")
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard")
		return nil
	}

	if f.output != "" {
		if dir := filepath.Dir(f.output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return mailerrors.WrapIO(err, dir, "failed to create output directory")
			}
		}
		if err := os.WriteFile(f.output, []byte(text), 0o644); err != nil {
			return mailerrors.WrapIO(err, f.output, "failed to write output")
		}
		return nil
	}

	_, err := io.WriteString(cmd.OutOrStdout(), text)
	return err
}

// marshal renders v as indented JSON or YAML.
func marshal(v interface{}, format string) (string, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case formatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: json, yaml)", format)
	}
}

// parseTree reads a block tree in JSON, or YAML when name ends in .yml or
// .yaml or the text does not look like JSON.
func parseTree(text, name string) (*types.Block, error) {
	ext := strings.ToLower(filepath.Ext(name))
	trimmed := strings.TrimSpace(text)
	isYAML := ext == ".yml" || ext == ".yaml" || (ext != ".json" && !strings.HasPrefix(trimmed, "{"))

	if !isYAML {
		block, err := types.ParseBlockJSON([]byte(text))
		if err != nil {
			return nil, mailerrors.Wrap(err, mailerrors.ErrorTypeParse, mailerrors.ErrCodeInvalidJSON,
				"input is not a block tree")
		}
		return block, nil
	}

	var block types.Block
	if err := yaml.Unmarshal([]byte(text), &block); err != nil {
		return nil, mailerrors.NewParseError(mailerrors.ErrCodeInvalidJSON, "input is not a block tree", err)
	}
	if err := block.Validate(); err != nil {
		return nil, mailerrors.NewParseError(mailerrors.ErrCodeInvalidJSON, "input is not a block tree", err)
	}
	return &block, nil
}
