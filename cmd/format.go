package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
)

var (
	formatCheck bool
	formatWrite bool
)

var formatCmd = &cobra.Command{
	Use:   "format [file.mjml...]",
	Short: "Normalize MJML markup",
	Long: `Decode and re-encode MJML documents, producing canonical indentation,
quoting and escaping. Reads stdin when no file is given.

Examples:
  mailblocks format welcome.mjml          # Print the formatted document
  mailblocks format -w templates/*.mjml   # Rewrite files in place
  mailblocks format --check *.mjml        # Fail if any file would change`,
	RunE: runFormat,
}

func init() {
	rootCmd.AddCommand(formatCmd)

	formatCmd.Flags().BoolVar(&formatCheck, "check", false, "Report files that are not formatted and exit non-zero")
	formatCmd.Flags().BoolVarP(&formatWrite, "write", "w", false, "Write the result back to the source file")
}

func runFormat(cmd *cobra.Command, args []string) error {
	if formatCheck && formatWrite {
		return fmt.Errorf("cannot specify both --check and --write")
	}

	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		if formatWrite {
			return fmt.Errorf("--write needs at least one file")
		}
		inputs = []string{"-"}
	}

	unformatted := 0
	for _, input := range inputs {
		text, name, err := readInput(cmd, []string{input}, false)
		if err != nil {
			return err
		}

		root, err := env.decoder().DecodeContext(ctx, text)
		if err != nil {
			return env.explain(withPath(err, name), name)
		}
		out, err := env.encoder().Encode(root)
		if err != nil {
			return err
		}
		out += "\n"

		switch {
		case formatCheck:
			if strings.TrimRight(text, "\r\n") != strings.TrimRight(out, "\n") {
				unformatted++
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		case formatWrite:
			if text == out {
				continue
			}
			if err := os.WriteFile(name, []byte(out), 0o644); err != nil {
				return mailerrors.WrapIO(err, name, "failed to write formatted document")
			}
			env.logger.Info(ctx, "Formatted document", "path", name)
		default:
			if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
				return err
			}
		}
	}

	if unformatted > 0 {
		return fmt.Errorf("%d of %d documents are not formatted", unformatted, len(inputs))
	}
	return nil
}

// withPath records the input name on decode errors.
func withPath(err error, path string) error {
	var me *mailerrors.MailError
	if !errors.As(err, &me) || me.FilePath != "" {
		return err
	}
	return me.WithLocation(path, me.Line, me.Column)
}
