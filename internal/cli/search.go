package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/search"
	"github.com/mesh-intelligence/pfs/internal/session"
)

func newSearchCmd(a *app) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "search name|content <query>",
		Short: "Find items whose name or text content contains a query",
		Long: `Find items below --in (default: the root) whose name, or whose text
content, contains <query>. Matching is case-sensitive. Locked files are
matched like any other file; only their paths are printed.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := search.ParseMode(args[0])
			if err != nil {
				return usageError{err}
			}
			return a.withSession(func(s *session.Session) error {
				scope, err := resolveOr(s, in)
				if err != nil {
					return err
				}
				found, err := search.Search(s.Tree(), scope, args[1], mode)
				if err != nil {
					return err
				}
				views := make([]*itemView, 0, len(found))
				for _, n := range found {
					views = append(views, newItemView(n))
				}
				return a.emit(cmd.OutOrStdout(), views, func(w io.Writer) {
					for _, v := range views {
						fmt.Fprintln(w, v.Path)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "search below this item (default: root)")
	return cmd
}
