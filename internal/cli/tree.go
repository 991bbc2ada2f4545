package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/session"
	"github.com/mesh-intelligence/pfs/internal/tree"
)

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree [ref]",
		Short: "Print the hierarchy under an item (default: the root)",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return a.withSession(func(s *session.Session) error {
				n, err := resolveOr(s, ref)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), treeView(n), func(w io.Writer) {
					base := n.Depth()
					s.Tree().Walk(n, func(d *tree.Node) bool {
						fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", d.Depth()-base), label(d))
						return true
					})
				})
			})
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "info <ref>",
		Short: "Show the attributes of an item",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				n, err := s.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := access(s, n, password); err != nil {
					return err
				}
				v := newItemView(n)
				return a.emit(cmd.OutOrStdout(), v, func(w io.Writer) {
					fmt.Fprintf(w, "path:     %s\n", v.Path)
					fmt.Fprintf(w, "id:       %s\n", v.ID)
					fmt.Fprintf(w, "kind:     %s\n", v.Kind)
					fmt.Fprintf(w, "created:  %s\n", v.Created.Format("2006-01-02 15:04:05"))
					if v.Changed != nil {
						fmt.Fprintf(w, "changed:  %s\n", v.Changed.Format("2006-01-02 15:04:05"))
					}
					fmt.Fprintf(w, "changes:  %d\n", v.ChangeCounter)
					if n.Item.IsFile() {
						fmt.Fprintf(w, "type:     %s\n", v.Extension)
						fmt.Fprintf(w, "importance: %d\n", *v.Importance)
						fmt.Fprintf(w, "size:     %d bytes\n", *v.Size)
						fmt.Fprintf(w, "locked:   %t\n", v.Locked)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password of a locked file")
	return cmd
}
