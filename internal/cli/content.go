package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pfs/internal/session"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

type contentView struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}

func newCatCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "cat <ref>",
		Short: "Print the text content of a file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session.Session) error {
				n, err := selectNode(s, args[0], password)
				if err != nil {
					return err
				}
				it := n.Item
				if !it.IsFile() {
					return fmt.Errorf("%s: %w", n.Path(), types.ErrNotAFile)
				}
				if it.File.Content == nil {
					return fmt.Errorf("%s: %w", n.Path(), types.ErrNotTextFile)
				}
				v := contentView{ID: it.ID, Path: n.Path(), Size: it.File.Size, Content: it.ContentText()}
				return a.emit(cmd.OutOrStdout(), v, func(w io.Writer) {
					fmt.Fprint(w, v.Content)
				})
			})
		},
	}
	passwordFlag(cmd, &password)
	return cmd
}

func newWriteCmd(a *app) *cobra.Command {
	var password, content string
	cmd := &cobra.Command{
		Use:   "write <ref>",
		Short: "Replace the text content of a file",
		Long: `Replace the content of a txt or csv file with --content, or with standard
input when --content is not given.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := content
			if !cmd.Flags().Changed("content") {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(data)
			}
			return a.withSession(func(s *session.Session) error {
				n, err := selectNode(s, args[0], password)
				if err != nil {
					return err
				}
				if err := s.Engine().SetContent(n, text); err != nil {
					return fmt.Errorf("%s: %w", n.Path(), err)
				}
				v := contentView{ID: n.Item.ID, Path: n.Path(), Size: n.Item.File.Size}
				return a.emit(cmd.OutOrStdout(), v, func(w io.Writer) {
					fmt.Fprintf(w, "Wrote %s (%d bytes stored)\n", v.Path, v.Size)
				})
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new content (default: read stdin)")
	passwordFlag(cmd, &password)
	return cmd
}
