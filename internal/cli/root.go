// Package cli implements the shelf command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootOptions holds global flag values shared by all subcommands.
type rootOptions struct {
	configDir string
	dataDir   string
	logLevel  string
}

// NewRootCmd creates the top-level "shelf" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "shelf",
		Short: "A record store with an ad-hoc query pipeline",
		Long: "Shelf stores records of declared kinds in JSONL files or SQLite and\n" +
			"answers filter, sort, projection and pagination queries over them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: $SHELF_CONFIG_DIR or the platform config dir)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (default: data_dir from config, $SHELF_DATA_DIR or ./.shelf-data)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newQueryCmd(opts))
	root.AddCommand(newGetCmd(opts))
	root.AddCommand(newAddCmd(opts))
	root.AddCommand(newUpdateCmd(opts))
	root.AddCommand(newRemoveCmd(opts))
	root.AddCommand(newServeCmd(opts))

	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps an error to a process exit code: request and usage
// problems are user errors, everything else is a system error.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue *userError
	if errors.As(err, &ue) {
		return exitUserError
	}
	if _, ok := types.KindOf(err); ok {
		return exitUserError
	}
	if errors.Is(err, types.ErrKindNotFound) || errors.Is(err, types.ErrInvalidData) {
		return exitUserError
	}
	return exitSysError
}

// userError marks a failure caused by the command line itself.
type userError struct {
	msg string
}

func (e *userError) Error() string { return e.msg }

func userErrorf(format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}
