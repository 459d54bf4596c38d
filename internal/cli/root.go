package cli

import (
	"fmt"
	"os"
)

// Execute runs the root command and returns the process exit code spec
// §6.4 documents, printing option/parse errors to stderr itself rather
// than letting cobra's default "Error: ..." + usage dump obscure a
// normal assert-failure exit.
func Execute() int {
	cmd := NewRootCmd()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	if err == nil {
		return 0
	}
	if _, ok := err.(exitErr); ok {
		return ExitCode(err)
	}
	fmt.Fprintln(os.Stderr, "hurl:", err)
	return ExitCode(err)
}
