package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_noArgsAndHelpHaveSameResultAndDoNotPanic(t *testing.T) {
	for _, cmdArgs := range [][]string{{"--help"}, {}} {
		rootCmd := SetupCLI("x.y.z", "1234567890abcdef")
		rootCmd.SetArgs(cmdArgs)
		var out bytes.Buffer
		rootCmd.SetOut(&out)

		err := rootCmd.Execute()
		require.NoError(t, err, "args %v", cmdArgs)

		assert.Contains(t, out.String(), `Use "crm-platform [command] --help" for more information about a command.`, "args %v", cmdArgs)
	}
}

func Test_SetupCLI_registersCommands(t *testing.T) {
	rootCmd := SetupCLI("x.y.z", "1234567890abcdef")

	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"serve", "db", "demo-requests", "tenants"})
}
