package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/session"
	"github.com/mesh-intelligence/pfs/internal/tree"
)

// passwordFlag registers the --password flag shared by commands that
// select a possibly locked file.
func passwordFlag(cmd *cobra.Command, p *string) {
	cmd.Flags().StringVar(p, "password", "", "password of a locked file")
}

// selectNode resolves ref and passes the lock gate.
func selectNode(s *session.Session, ref, password string) (*tree.Node, error) {
	n, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := access(s, n, password); err != nil {
		return nil, err
	}
	return n, nil
}

func newRenameCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "rename <ref> <name>",
		Short: "Rename an item",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				n, err := selectNode(s, args[0], password)
				if err != nil {
					return err
				}
				old := n.Path()
				if err := s.Engine().Rename(n, args[1]); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), newItemView(n), func(w io.Writer) {
					fmt.Fprintf(w, "Renamed %s to %s\n", old, n.Path())
				})
			})
		},
	}
	passwordFlag(cmd, &password)
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "rm <ref>",
		Short: "Delete an item; a folder is deleted with everything under it",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				n, err := selectNode(s, args[0], password)
				if err != nil {
					return err
				}
				v := newItemView(n)
				if err := s.Engine().Delete(n); err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), v, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s\n", v.Path)
				})
			})
		},
	}
	passwordFlag(cmd, &password)
	return cmd
}

func newDupCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "dup <ref>",
		Short: "Duplicate a file next to the original",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				n, err := selectNode(s, args[0], password)
				if err != nil {
					return err
				}
				dup, err := s.Engine().Duplicate(n)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), newItemView(dup), func(w io.Writer) {
					fmt.Fprintf(w, "Duplicated %s as %s (%s)\n", n.Path(), dup.Path(), dup.Item.ID)
				})
			})
		},
	}
	passwordFlag(cmd, &password)
	return cmd
}

func newMoveCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "mv <file-ref> <folder-ref>",
		Short: "Move a file into a folder, renaming it on a name clash",
		Long: `Move a file into the placement of <folder-ref>: the folder itself, or the
parent folder when <folder-ref> names a file. Use "/" for the root.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				n, err := selectNode(s, args[0], password)
				if err != nil {
					return err
				}
				e := s.Engine()
				if err := e.BeginMove(n); err != nil {
					return err
				}
				dest, err := s.Resolve(args[1])
				if err != nil {
					e.CancelMove()
					return err
				}
				if err := e.ConfirmMove(s.Tree().CurrentPlacement(dest)); err != nil {
					e.CancelMove()
					return err
				}
				return a.emit(cmd.OutOrStdout(), newItemView(n), func(w io.Writer) {
					fmt.Fprintf(w, "Moved %s to %s\n", args[0], n.Path())
				})
			})
		},
	}
	passwordFlag(cmd, &password)
	return cmd
}

type flattenResult struct {
	Path           string `json:"path"`
	Promoted       int    `json:"promoted"`
	Renamed        int    `json:"renamed"`
	RemovedFolders int    `json:"removed_folders"`
}

func newFlattenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flatten <ref>",
		Short: "Pull every nested file up into a folder and drop its subfolders",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				n, err := s.Resolve(args[0])
				if err != nil {
					return err
				}
				res, err := s.Engine().Flatten(n)
				if err != nil {
					return err
				}
				out := flattenResult{
					Path:           n.Path(),
					Promoted:       res.Promoted,
					Renamed:        res.Renamed,
					RemovedFolders: res.RemovedFolders,
				}
				return a.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
					fmt.Fprintf(w, "Flattened %s: %d files promoted (%d renamed), %d folders removed\n",
						out.Path, out.Promoted, out.Renamed, out.RemovedFolders)
				})
			})
		},
	}
}
