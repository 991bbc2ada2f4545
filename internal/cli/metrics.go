package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/metrics"
	"github.com/mesh-intelligence/pfs/internal/session"
)

type metricsResult struct {
	Path      string            `json:"path"`
	Stats     metrics.Stats     `json:"stats"`
	Breakdown metrics.Breakdown `json:"breakdown"`
}

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics [ref]",
		Short: "Show counts and the storage share of an item",
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
				res := metricsResult{
					Path:      n.Path(),
					Stats:     metrics.Collect(s.Tree(), n),
					Breakdown: metrics.NewBreakdown(s.Tree(), n),
				}
				return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) {
					fmt.Fprintf(w, "%s\n  %s\n  %s\n", res.Path, res.Stats, res.Breakdown)
				})
			})
		},
	}
}
