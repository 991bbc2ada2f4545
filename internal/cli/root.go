// Package cli implements the pfs command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/pfs/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state shared by the commands of one root command.
type app struct {
	flags     rootFlags
	configDir string
	v         *viper.Viper
	log       *logrus.Logger
	stderr    io.Writer
}

// usageError marks a malformed invocation. It exits like a rejection.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// NewRootCmd creates the top-level "pfs" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}
	root := &cobra.Command{
		Use:   "pfs",
		Short: "A personal file store",
		Long: `pfs keeps a private hierarchy of folders and files in a local database.
Files can hold text, carry an importance from 0 to 4, and be locked with a
password. Items are addressed by ID or by slash path from the root.`,
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// version needs nothing; init writes the config before loading it.
			if cmd.Name() == "version" || cmd.Name() == "init" {
				return nil
			}
			return a.setup(cmd, false)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newTreeCmd(a),
		newInfoCmd(a),
		newCreateCmd(a),
		newRenameCmd(a),
		newRemoveCmd(a),
		newDupCmd(a),
		newMoveCmd(a),
		newFlattenCmd(a),
		newCleanupCmd(a),
		newLockCmd(a),
		newUnlockCmd(a),
		newCatCmd(a),
		newWriteCmd(a),
		newSearchCmd(a),
		newMetricsCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pfs:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitCode maps rejected requests to exitUserError and everything else to
// exitSysError.
func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) || types.IsRejection(err) {
		return exitUserError
	}
	return exitSysError
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// maxArgs is cobra.MaximumNArgs reporting a usage error.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// requireFlags reports a usage error for the first named flag not set.
func requireFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			return usagef("required flag --%s not set", name)
		}
	}
	return nil
}
