package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/paths"
	"github.com/mesh-intelligence/pfs/internal/session"
)

type backupResult struct {
	Path string `json:"path"`
}

func newBackupCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write every item to a new timestamped backup file",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := a.dataDir()
			if err != nil {
				return err
			}
			backupDir, err := paths.ResolveBackupDir(dir, a.v.GetString(cfgKeyBackupDir), dataDir)
			if err != nil {
				return fmt.Errorf("resolving backup dir: %w", err)
			}
			return a.withSession(func(s *session.Session) error {
				path, err := s.Backup(backupDir)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), backupResult{Path: path}, func(w io.Writer) {
					fmt.Fprintf(w, "Backup written to %s\n", path)
				})
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "backup directory (default: backup_dir or <data-dir>/backups)")
	return cmd
}

type restoreResult struct {
	Path  string `json:"path"`
	Items int    `json:"items"`
}

func newRestoreCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace every item with the content of a backup file",
		Long: `Replace every stored item with the content of a backup file. The file is
validated before anything is removed. Requires --yes.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return usagef("restore replaces all items; pass --yes to confirm")
			}
			return a.withSession(func(s *session.Session) error {
				if err := s.Restore(args[0]); err != nil {
					return err
				}
				res := restoreResult{Path: args[0], Items: s.Tree().Len()}
				return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) {
					fmt.Fprintf(w, "Restored %d items from %s\n", res.Items, res.Path)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm replacing all items")
	return cmd
}
