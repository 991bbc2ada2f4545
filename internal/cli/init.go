package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/paths"
	"github.com/mesh-intelligence/pfs/internal/session"
)

type initResult struct {
	ConfigDir string `json:"config_dir"`
	DataDir   string `json:"data_dir"`
	BackupDir string `json:"backup_dir"`
	Backend   string `json:"backend"`
	Items     int    `json:"items"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize pfs storage",
		Long: `Create the configuration and data directories, write config.yaml if it is
missing, and initialize the storage backend. A --data-dir given here is
recorded in the new config.yaml.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	if err := a.setup(cmd, true); err != nil {
		return err
	}
	res := initResult{ConfigDir: a.configDir, Backend: a.v.GetString(cfgKeyBackend)}

	var err error
	if res.DataDir, err = a.dataDir(); err != nil {
		return err
	}
	res.BackupDir, err = paths.ResolveBackupDir("", a.v.GetString(cfgKeyBackupDir), res.DataDir)
	if err != nil {
		return fmt.Errorf("resolving backup dir: %w", err)
	}
	if err := os.MkdirAll(res.BackupDir, 0o755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}

	// Attaching creates the database and its schema.
	if err := a.withSession(func(s *session.Session) error {
		res.Items = s.Tree().Len()
		return nil
	}); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) {
		fmt.Fprintln(w, "pfs initialized successfully")
		fmt.Fprintln(w, "  config: ", res.ConfigDir)
		fmt.Fprintln(w, "  data:   ", res.DataDir)
		fmt.Fprintln(w, "  backups:", res.BackupDir)
		fmt.Fprintf(w, "  backend: %s (%d items)\n", res.Backend, res.Items)
	})
}
