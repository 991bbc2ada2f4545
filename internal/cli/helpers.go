package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mesh-intelligence/pfs/internal/auth"
	"github.com/mesh-intelligence/pfs/internal/paths"
	"github.com/mesh-intelligence/pfs/internal/session"
	"github.com/mesh-intelligence/pfs/internal/tree"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

// dataDir resolves the data directory: flag > config.yaml > env > default.
func (a *app) dataDir() (string, error) {
	dir, err := paths.ResolveDataDir(a.flags.dataDir, a.v.GetString(cfgKeyDataDir))
	if err != nil {
		return "", fmt.Errorf("resolving data dir: %w", err)
	}
	return dir, nil
}

// openSession attaches the configured store and loads the tree. The caller
// must Close the session.
func (a *app) openSession() (*session.Session, error) {
	dataDir, err := a.dataDir()
	if err != nil {
		return nil, err
	}
	cfg := types.Config{
		Backend: a.v.GetString(cfgKeyBackend),
		DataDir: dataDir,
	}
	if err := cfg.Validate(); err != nil {
		return nil, usagef("config backend %q: %w", cfg.Backend, err)
	}

	store, err := session.NewStore(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if err := store.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attaching store: %w", err)
	}
	s, err := session.Open(store,
		session.WithLogger(a.log),
		session.WithHasher(auth.Bcrypt{Cost: a.v.GetInt(cfgKeyBcryptCost)}),
	)
	if err != nil {
		_ = store.Detach()
		return nil, err
	}
	return s, nil
}

// withSession runs fn against an open session and closes it afterwards.
func (a *app) withSession(fn func(*session.Session) error) error {
	s, err := a.openSession()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			a.log.WithError(cerr).Warn("closing store")
		}
	}()
	return fn(s)
}

// resolveOr resolves ref, or returns the root for an empty ref.
func resolveOr(s *session.Session, ref string) (*tree.Node, error) {
	if ref == "" {
		return s.Tree().Root(), nil
	}
	return s.Resolve(ref)
}

// access passes the lock gate for n with the password from the command line.
func access(s *session.Session, n *tree.Node, password string) error {
	if err := s.Gate().Access(n.Item, password); err != nil {
		return fmt.Errorf("%s: %w", n.Path(), err)
	}
	return nil
}

// itemView is the JSON and text rendering of a node.
type itemView struct {
	ID            string      `json:"id"`
	Kind          types.Kind  `json:"kind"`
	Name          string      `json:"name"`
	Path          string      `json:"path"`
	ParentID      string      `json:"parent_id,omitempty"`
	Created       time.Time   `json:"created"`
	Changed       *time.Time  `json:"changed,omitempty"`
	ChangeCounter int         `json:"change_counter"`
	Extension     string      `json:"extension,omitempty"`
	Importance    *int        `json:"importance,omitempty"`
	Size          *int64      `json:"size,omitempty"`
	Locked        bool        `json:"locked,omitempty"`
	Children      []*itemView `json:"children,omitempty"`
}

func newItemView(n *tree.Node) *itemView {
	it := n.Item
	v := &itemView{
		ID:            it.ID,
		Kind:          it.Kind,
		Name:          it.Name,
		Path:          n.Path(),
		ParentID:      it.ParentID,
		Created:       it.Created,
		Changed:       it.Changed,
		ChangeCounter: it.ChangeCounter,
	}
	if it.IsFile() {
		v.Extension = it.File.Extension
		v.Importance = &it.File.Importance
		v.Size = &it.File.Size
		v.Locked = it.File.Locked
	}
	return v
}

// treeView renders the subtree under n.
func treeView(n *tree.Node) *itemView {
	v := newItemView(n)
	for _, c := range n.Children() {
		v.Children = append(v.Children, treeView(c))
	}
	return v
}

// label is the one-line text rendering of a node.
func label(n *tree.Node) string {
	it := n.Item
	if n.IsRoot() {
		return tree.RootName
	}
	if it.IsFolder() {
		return it.Name + "/"
	}
	s := fmt.Sprintf("%s (%s, importance %d)", it.Name, humanize.Bytes(uint64(it.File.Size)), it.File.Importance)
	if it.File.Locked {
		s += " [locked]"
	}
	return s
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// emit writes v as JSON in --json mode, or the text from render otherwise.
func (a *app) emit(w io.Writer, v any, render func(io.Writer)) error {
	if a.flags.jsonMode {
		return printJSON(w, v)
	}
	render(w)
	return nil
}
