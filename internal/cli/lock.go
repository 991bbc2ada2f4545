package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/auth"
	"github.com/mesh-intelligence/pfs/internal/session"
)

func newLockCmd(a *app) *cobra.Command {
	var req auth.LockRequest
	cmd := &cobra.Command{
		Use:   "lock <ref>",
		Short: "Lock a file with a password",
		Long: `Lock a file. A new password needs --password and a matching --confirm.
With --keep the file is locked again with its previous password, which
--password must match.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				n, err := s.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := s.Gate().Lock(n, req); err != nil {
					return fmt.Errorf("%s: %w", n.Path(), err)
				}
				return a.emit(cmd.OutOrStdout(), newItemView(n), func(w io.Writer) {
					fmt.Fprintf(w, "Locked %s\n", n.Path())
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.Password, "password", "", "lock password")
	cmd.Flags().StringVar(&req.Confirm, "confirm", "", "repeat of a new password")
	cmd.Flags().BoolVar(&req.KeepExisting, "keep", false, "reuse the previous password")
	return cmd
}

func newUnlockCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "unlock <ref>",
		Short: "Unlock a file; its password is kept for a later lock --keep",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				n, err := s.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := s.Gate().Unlock(n, password); err != nil {
					return fmt.Errorf("%s: %w", n.Path(), err)
				}
				return a.emit(cmd.OutOrStdout(), newItemView(n), func(w io.Writer) {
					fmt.Fprintf(w, "Unlocked %s\n", n.Path())
				})
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "lock password")
	return cmd
}
