package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/engine"
	"github.com/mesh-intelligence/pfs/internal/session"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

func newCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a folder or a file",
	}
	cmd.AddCommand(newCreateKindCmd(a, types.KindFolder), newCreateKindCmd(a, types.KindFile))
	return cmd
}

func newCreateKindCmd(a *app, kind types.Kind) *cobra.Command {
	var (
		parent     string
		importance int
	)
	cmd := &cobra.Command{
		Use:   string(kind) + " <name>",
		Short: fmt.Sprintf("Create a %s", kind),
		Long: fmt.Sprintf(`Create a %s named <name>. --parent selects the placement: a folder
places inside it, a file places next to it. The default is the root.`, kind),
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				sel, err := resolveOr(s, parent)
				if err != nil {
					return err
				}
				n, err := s.Engine().Create(s.Tree().CurrentPlacement(sel), engine.CreateRequest{
					Kind:       kind,
					Name:       args[0],
					Importance: importance,
				})
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), newItemView(n), func(w io.Writer) {
					fmt.Fprintf(w, "Created %s %s (%s)\n", kind, n.Path(), n.Item.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "placement reference (default: root)")
	if kind == types.KindFile {
		cmd.Flags().IntVar(&importance, "importance", 0, "importance from 0 to 4")
	}
	return cmd
}
