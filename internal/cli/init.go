package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/shelf"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize shelf configuration and storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, and open the storage backend once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := setup(cmd, opts)
			if err != nil {
				return err
			}

			sh := shelf.New()
			if err := sh.Attach(s.config); err != nil {
				return fmt.Errorf("initializing storage: %w", err)
			}
			if err := sh.Detach(); err != nil {
				return fmt.Errorf("finalizing storage: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Shelf initialized successfully")
			fmt.Fprintf(out, "config: %s\ndata:   %s\nbackend: %s\n", s.configDir, s.config.DataDir, s.config.Backend)
			return nil
		},
	}
}

// setup resolves settings and configures logging for a command.
func setup(cmd *cobra.Command, opts *rootOptions) (*settings, error) {
	s, err := resolveSettings(opts)
	if err != nil {
		return nil, err
	}
	setupLogging(s.logLevel, cmd.ErrOrStderr())
	return s, nil
}
