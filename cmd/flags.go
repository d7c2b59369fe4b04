package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/conneroisu/mailblocks/internal/logging"
)

// Output formats.
const (
	formatText  = "text"
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// AddFlagValidation makes Set on the named flag run validator first, so bad
// values are rejected while the command line is parsed. Only use it on
// string-valued flags.
func AddFlagValidation(flags *pflag.FlagSet, flagName string, validator func(string) error) {
	flag := flags.Lookup(flagName)
	if flag == nil {
		return
	}
	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidateChoice accepts exactly one of choices.
func ValidateChoice(choices ...string) func(string) error {
	return func(val string) error {
		for _, c := range choices {
			if val == c {
				return nil
			}
		}
		msg := fmt.Sprintf("invalid value %q, must be one of: %s", val, strings.Join(choices, ", "))
		if suggestion := closest(val, choices); suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		return fmt.Errorf("%s", msg)
	}
}

// closest returns the choice sharing the longest prefix with val, if any.
func closest(val string, choices []string) string {
	best, bestLen := "", 0
	lower := strings.ToLower(val)
	for _, c := range choices {
		n := 0
		for n < len(lower) && n < len(c) && lower[n] == c[n] {
			n++
		}
		if n > bestLen {
			best, bestLen = c, n
		}
	}
	return best
}

// ValidateLogLevel accepts the names understood by logging.ParseLevel.
func ValidateLogLevel(level string) error {
	_, err := logging.ParseLevel(level)
	return err
}

// ValidatePort accepts 1-65535.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateFileExists accepts an empty name or an existing file.
func ValidateFileExists(filename string) error {
	if filename == "" {
		return nil
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	return nil
}
