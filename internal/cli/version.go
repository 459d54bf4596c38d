package cli

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"
)

// DefaultVersion is overridden at build time via -ldflags, the same
// knob the teacher exposes through ROCKETSHIP_VERSION.
var DefaultVersion = "0.1.0-dev"

// NewVersionCmd creates the version command. It parses its own version
// string through go-version so a malformed build-time override is
// caught and reported rather than printed verbatim (the one place this
// module exercises semantic-version parsing, per SPEC_FULL's
// domain stack).
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hurl",
		Long:  `Print the version number of the hurl CLI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := os.Getenv("HURL_VERSION")
			if raw == "" {
				raw = DefaultVersion
			}
			v, err := version.NewVersion(raw)
			if err != nil {
				return fmt.Errorf("invalid hurl version %q: %w", raw, err)
			}
			fmt.Printf("hurl %s\n", v.String())
			return nil
		},
	}
	return cmd
}
