package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChoice(t *testing.T) {
	validate := ValidateChoice("table", "json", "yaml")

	assert.NoError(t, validate("json"))

	err := validate("jsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "json"`)

	err = validate("xml")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("8080"))
	assert.Error(t, ValidatePort("0"))
	assert.Error(t, ValidatePort("70000"))
	assert.Error(t, ValidatePort("http"))
}

func TestAddFlagValidation(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var format string
	flags.StringVar(&format, "format", "json", "")
	AddFlagValidation(flags, "format", ValidateChoice("json", "yaml"))
	AddFlagValidation(flags, "missing", ValidateChoice("x"))

	require.NoError(t, flags.Parse([]string{"--format", "yaml"}))
	assert.Equal(t, "yaml", format)

	assert.Error(t, flags.Parse([]string{"--format", "toml"}))
	assert.Equal(t, "yaml", format)
	assert.Equal(t, "string", flags.Lookup("format").Value.Type())
}
