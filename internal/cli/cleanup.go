package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/session"
	"github.com/mesh-intelligence/pfs/internal/tree"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

const dateLayout = "2006-01-02"

type cleanupResult struct {
	Removed []cleanupEntry `json:"removed"`
}

type cleanupEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newCleanupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete files by creation date or importance range",
	}
	cmd.AddCommand(newCleanupDateCmd(a), newCleanupImportanceCmd(a))
	return cmd
}

func newCleanupDateCmd(a *app) *cobra.Command {
	var from, to, in string
	cmd := &cobra.Command{
		Use:   "date",
		Short: "Delete files created between --from and --to, inclusive",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "from", "to"); err != nil {
				return err
			}
			fromDay, err := time.ParseInLocation(dateLayout, from, time.Local)
			if err != nil {
				return usagef("--from: %w", err)
			}
			toDay, err := time.ParseInLocation(dateLayout, to, time.Local)
			if err != nil {
				return usagef("--to: %w", err)
			}
			return a.runCleanup(cmd, in, func(s *session.Session, n *tree.Node) ([]*types.Item, error) {
				return s.Engine().CleanupByDateRange(n, fromDay, toDay)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first creation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last creation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in, "in", "", "only clean below this folder (default: root)")
	return cmd
}

func newCleanupImportanceCmd(a *app) *cobra.Command {
	var (
		from, to int
		in       string
	)
	cmd := &cobra.Command{
		Use:   "importance",
		Short: "Delete files whose importance is between --from and --to, inclusive",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "from", "to"); err != nil {
				return err
			}
			return a.runCleanup(cmd, in, func(s *session.Session, n *tree.Node) ([]*types.Item, error) {
				return s.Engine().CleanupByImportanceRange(n, from, to)
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "lowest importance (0-4)")
	cmd.Flags().IntVar(&to, "to", 0, "highest importance (0-4)")
	cmd.Flags().StringVar(&in, "in", "", "only clean below this folder (default: root)")
	return cmd
}

// runCleanup resolves the scope folder, runs fn and reports what was
// removed, including after a partial failure.
func (a *app) runCleanup(cmd *cobra.Command, in string, fn func(*session.Session, *tree.Node) ([]*types.Item, error)) error {
	return a.withSession(func(s *session.Session) error {
		scope, err := resolveOr(s, in)
		if err != nil {
			return err
		}
		if !scope.IsFolder() {
			return fmt.Errorf("%s: %w", scope.Path(), types.ErrNotAFolder)
		}
		removed, runErr := fn(s, scope)

		res := cleanupResult{Removed: make([]cleanupEntry, 0, len(removed))}
		for _, it := range removed {
			res.Removed = append(res.Removed, cleanupEntry{ID: it.ID, Name: it.Name})
		}
		if err := a.emit(cmd.OutOrStdout(), res, func(w io.Writer) {
			for _, e := range res.Removed {
				fmt.Fprintf(w, "Deleted %s (%s)\n", e.Name, e.ID)
			}
			fmt.Fprintf(w, "%d files removed\n", len(res.Removed))
		}); err != nil {
			return err
		}
		return runErr
	})
}
