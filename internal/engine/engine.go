// Package engine implements the mutation algorithms over the item tree.
//
// Every operation validates against the tree first, writes to the
// repository second, and mirrors the change into the tree only after the
// repository call succeeded. A rejected or failed operation leaves both the
// tree and the repository as they were.
package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pfs/internal/tree"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

// MaxRenameAttempts bounds the "(n) name" collision rename loop.
const MaxRenameAttempts = 1000

// RenameListener is notified after a rename has been committed.
type RenameListener func(id, newName string)

// Engine applies mutations to a Tree and echoes them to the repositories.
// It is not safe for concurrent use.
type Engine struct {
	tree    *tree.Tree
	folders types.Repository
	files   types.Repository

	now   func() time.Time
	newID func() string
	log   logrus.FieldLogger

	listeners   []RenameListener
	pendingMove *tree.Node
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// New returns an Engine operating on t with the given repositories.
func New(t *tree.Tree, folders, files types.Repository, opts ...Option) *Engine {
	e := &Engine{
		tree:    t,
		folders: folders,
		files:   files,
		now:     time.Now,
		newID:   NewID,
		log:     discardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewID generates a UUID v7, falling back to v4.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Tree returns the tree the engine operates on.
func (e *Engine) Tree() *tree.Tree { return e.tree }

// OnRenamed registers fn to be called after every committed rename.
func (e *Engine) OnRenamed(fn RenameListener) {
	e.listeners = append(e.listeners, fn)
}

// Reset drops transient state. Call it after the tree has been reloaded.
func (e *Engine) Reset() {
	e.pendingMove = nil
}

func (e *Engine) repoFor(it *types.Item) types.Repository {
	if it.IsFile() {
		return e.files
	}
	return e.folders
}

// ValidateName checks that name can be used for a child of parent. exclude
// is the node being renamed or moved, or nil. It returns ErrInvalidName or
// ErrNameCollision; callers loop on it to re-prompt.
func (e *Engine) ValidateName(parent *tree.Node, name string, exclude *tree.Node) error {
	if err := types.ValidateName(name); err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	if e.tree.NameCollides(name, parent, exclude) {
		return fmt.Errorf("%q in %s: %w", name, parent.Path(), types.ErrNameCollision)
	}
	return nil
}

// CreateRequest describes a new item.
type CreateRequest struct {
	Kind       types.Kind
	Name       string
	Importance int // Files only.
}

// Create validates req, stores a new item under parent and inserts it into
// the tree.
func (e *Engine) Create(parent *tree.Node, req CreateRequest) (*tree.Node, error) {
	if parent == nil || !parent.IsFolder() {
		return nil, types.ErrNotAFolder
	}
	if err := e.ValidateName(parent, req.Name, nil); err != nil {
		return nil, err
	}

	now := e.now()
	var item *types.Item
	switch req.Kind {
	case types.KindFolder:
		item = types.NewFolder(e.newID(), parent.Item.ID, req.Name, now)
	case types.KindFile:
		if err := types.ValidateImportance(req.Importance); err != nil {
			return nil, err
		}
		item = types.NewFile(e.newID(), parent.Item.ID, req.Name, req.Importance, now)
	default:
		return nil, types.ErrInvalidItem
	}

	if _, err := e.repoFor(item).Create(item); err != nil {
		e.log.WithError(err).WithField("name", req.Name).Warn("create failed")
		return nil, fmt.Errorf("creating %s %q: %w", item.Kind, item.Name, err)
	}
	node, err := e.tree.Insert(parent, item)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"op": "create", "id": item.ID, "name": item.Name}).Debug("item created")
	return node, nil
}

// Rename gives node a new name unique among its siblings.
func (e *Engine) Rename(node *tree.Node, newName string) error {
	if node == nil || node.IsRoot() {
		return types.ErrRootItem
	}
	if err := e.ValidateName(node.Parent(), newName, node); err != nil {
		return err
	}

	candidate := node.Item.Clone(node.Item.ID)
	candidate.Rename(newName, e.now())
	if err := e.commitUpdate(node, candidate, "rename"); err != nil {
		return err
	}
	for _, fn := range e.listeners {
		fn(candidate.ID, newName)
	}
	return nil
}

// SetContent replaces the text content of a text file.
func (e *Engine) SetContent(node *tree.Node, content string) error {
	if node == nil || node.IsRoot() {
		return types.ErrRootItem
	}
	candidate := node.Item.Clone(node.Item.ID)
	if err := candidate.SetContent(content, e.now()); err != nil {
		return err
	}
	return e.commitUpdate(node, candidate, "set_content")
}

// commitUpdate persists candidate and, on success, copies it into node.
func (e *Engine) commitUpdate(node *tree.Node, candidate *types.Item, op string) error {
	if err := e.repoFor(candidate).Update(candidate); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{"op": op, "id": candidate.ID}).Warn("update failed")
		return fmt.Errorf("updating %s %s: %w", candidate.Kind, candidate.ID, err)
	}
	*node.Item = *candidate
	e.log.WithFields(logrus.Fields{"op": op, "id": candidate.ID, "name": candidate.Name}).Debug("item updated")
	return nil
}

// Delete removes node. For a folder, every descendant is removed from the
// repositories first, deepest first, so the tree never keeps orphans. Each
// node leaves the tree as soon as its repository removal succeeded; on
// failure the tree still mirrors the repository exactly.
func (e *Engine) Delete(node *tree.Node) error {
	if node == nil || node.IsRoot() {
		return types.ErrRootItem
	}
	victims := append(e.tree.PostOrder(node), node)
	for _, v := range victims {
		if err := e.repoFor(v.Item).RemoveByID(v.Item.ID); err != nil {
			e.log.WithError(err).WithField("id", v.Item.ID).Warn("delete failed")
			return fmt.Errorf("removing %s %s: %w", v.Item.Kind, v.Item.ID, err)
		}
		if err := e.tree.Remove(v); err != nil {
			return err
		}
		e.forget(v)
		e.log.WithFields(logrus.Fields{"op": "delete", "id": v.Item.ID, "name": v.Item.Name}).Debug("item removed")
	}
	return nil
}

// CollisionName returns name, or "(n) name" for the smallest n >= 1 that is
// free among scope's children other than exclude. It returns ErrCapacity
// after MaxRenameAttempts candidates.
func (e *Engine) CollisionName(name string, scope, exclude *tree.Node) (string, error) {
	candidate, ok := freeName(name, func(c string) bool {
		return e.tree.NameCollides(c, scope, exclude)
	})
	if !ok {
		return "", fmt.Errorf("renaming %q in %s: %w", name, scope.Path(), types.ErrCapacity)
	}
	return candidate, nil
}

// freeName returns the first of name, "(1) name", "(2) name", ... that
// taken rejects, or false after MaxRenameAttempts candidates.
func freeName(name string, taken func(string) bool) (string, bool) {
	candidate := name
	for n := 1; taken(candidate); n++ {
		if n > MaxRenameAttempts {
			return "", false
		}
		candidate = fmt.Sprintf("(%d) %s", n, name)
	}
	return candidate, true
}

// Duplicate clones a file next to the original under a collision-free name.
func (e *Engine) Duplicate(node *tree.Node) (*tree.Node, error) {
	if node == nil || node.IsRoot() {
		return nil, types.ErrRootItem
	}
	if !node.Item.IsFile() {
		return nil, types.ErrNotAFile
	}
	parent := node.Parent()
	name, err := e.CollisionName(node.Item.Name, parent, nil)
	if err != nil {
		return nil, err
	}

	clone := node.Item.Clone(e.newID())
	clone.SetName(name)
	if _, err := e.files.Create(clone); err != nil {
		e.log.WithError(err).WithField("id", node.Item.ID).Warn("duplicate failed")
		return nil, fmt.Errorf("creating duplicate of %s: %w", node.Item.ID, err)
	}
	dup, err := e.tree.Insert(parent, clone)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"op": "duplicate", "id": clone.ID, "name": clone.Name, "source": node.Item.ID}).Debug("file duplicated")
	return dup, nil
}

// BeginMove marks a file as the pending move subject.
func (e *Engine) BeginMove(node *tree.Node) error {
	if node == nil || node.IsRoot() {
		return types.ErrRootItem
	}
	if !node.Item.IsFile() {
		return types.ErrNotAFile
	}
	e.pendingMove = node
	return nil
}

// forget drops node as the pending move subject once it left the tree.
func (e *Engine) forget(node *tree.Node) {
	if e.pendingMove == node {
		e.pendingMove = nil
	}
}

// PendingMove returns the pending move subject, or nil.
func (e *Engine) PendingMove() *tree.Node { return e.pendingMove }

// CancelMove clears the pending move subject without mutating anything.
func (e *Engine) CancelMove() { e.pendingMove = nil }

// ConfirmMove moves the pending file into dest, renaming it on collision.
// The pending subject is cleared once the move is committed.
func (e *Engine) ConfirmMove(dest *tree.Node) error {
	node := e.pendingMove
	if node == nil {
		return types.ErrNoPendingMove
	}
	if dest == nil || !dest.IsFolder() {
		return types.ErrNotAFolder
	}
	if err := e.relocate(node, dest, "move"); err != nil {
		return err
	}
	e.pendingMove = nil
	return nil
}

// Move runs BeginMove and ConfirmMove in one call.
func (e *Engine) Move(node, dest *tree.Node) error {
	if err := e.BeginMove(node); err != nil {
		return err
	}
	return e.ConfirmMove(dest)
}

// relocate reparents a file under dest with a collision-free name.
// A name change counts as a mutation; a bare reparent does not.
func (e *Engine) relocate(node, dest *tree.Node, op string) error {
	name, err := e.CollisionName(node.Item.Name, dest, node)
	if err != nil {
		return err
	}
	return e.moveAs(node, dest, name, op)
}

// moveAs reparents a file under dest as name, which must already be free.
func (e *Engine) moveAs(node, dest *tree.Node, name, op string) error {
	candidate := node.Item.Clone(node.Item.ID)
	candidate.ParentID = dest.Item.ID
	if name != candidate.Name {
		candidate.Rename(name, e.now())
	}
	if err := e.files.Update(candidate); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{"op": op, "id": candidate.ID}).Warn("relocate failed")
		return fmt.Errorf("moving file %s: %w", candidate.ID, err)
	}
	*node.Item = *candidate
	if err := e.tree.Move(node, dest); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{"op": op, "id": candidate.ID, "name": candidate.Name, "dest": dest.Item.ID}).Debug("file moved")
	return nil
}

// FlattenResult summarizes a Flatten call.
type FlattenResult struct {
	Promoted       int // files moved up into the flattened folder
	Renamed        int // promoted files that needed a collision rename
	RemovedFolders int
}

// Flatten pulls every file of every descendant folder directly into folder,
// then removes the emptied subfolders, post-order. Every promoted name is
// worked out before anything is written, so running out of rename attempts
// changes nothing. On a repository error the tree reflects exactly what has
// been committed so far.
func (e *Engine) Flatten(folder *tree.Node) (FlattenResult, error) {
	var res FlattenResult
	if folder == nil || !folder.IsFolder() {
		return res, types.ErrNotAFolder
	}
	plan, err := e.planFlatten(folder)
	if err != nil {
		return res, err
	}
	err = e.flattenInto(folder, folder, plan, &res)
	e.log.WithFields(logrus.Fields{
		"op":       "flatten",
		"id":       folder.Item.ID,
		"promoted": res.Promoted,
		"renamed":  res.Renamed,
		"removed":  res.RemovedFolders,
	}).Info("folder flattened")
	return res, err
}

// planFlatten assigns each file below target its name in target, visiting
// nodes in the order flattenInto promotes them. A direct child folder's
// name is released once its subtree is planned because the folder is
// removed before the next sibling is visited.
func (e *Engine) planFlatten(target *tree.Node) (map[*tree.Node]string, error) {
	taken := map[string]bool{}
	for _, c := range target.Children() {
		taken[c.Item.Name] = true
	}
	plan := map[*tree.Node]string{}
	var visit func(current *tree.Node) error
	visit = func(current *tree.Node) error {
		for _, child := range current.Children() {
			if child.Item.IsFile() {
				if current == target {
					continue
				}
				name, ok := freeName(child.Item.Name, func(c string) bool { return taken[c] })
				if !ok {
					return fmt.Errorf("renaming %q in %s: %w", child.Item.Name, target.Path(), types.ErrCapacity)
				}
				taken[name] = true
				plan[child] = name
				continue
			}
			if err := visit(child); err != nil {
				return err
			}
			if current == target {
				delete(taken, child.Item.Name)
			}
		}
		return nil
	}
	if err := visit(target); err != nil {
		return nil, err
	}
	return plan, nil
}

func (e *Engine) flattenInto(current, target *tree.Node, plan map[*tree.Node]string, res *FlattenResult) error {
	for _, child := range current.Children() {
		if child.Item.IsFile() {
			if current == target {
				continue
			}
			before, name := child.Item.Name, plan[child]
			if err := e.moveAs(child, target, name, "flatten"); err != nil {
				return err
			}
			res.Promoted++
			if name != before {
				res.Renamed++
			}
			continue
		}
		if err := e.flattenInto(child, target, plan, res); err != nil {
			return err
		}
		if err := e.folders.RemoveByID(child.Item.ID); err != nil {
			e.log.WithError(err).WithField("id", child.Item.ID).Warn("flatten folder removal failed")
			return fmt.Errorf("removing folder %s: %w", child.Item.ID, err)
		}
		if err := e.tree.Remove(child); err != nil {
			return err
		}
		res.RemovedFolders++
	}
	return nil
}

// CleanupByDateRange removes every file under root whose creation date lies
// within [from, to], comparing calendar dates only. Folders are kept.
func (e *Engine) CleanupByDateRange(root *tree.Node, from, to time.Time) ([]*types.Item, error) {
	fromDay, toDay := dateOf(from), dateOf(to)
	if fromDay.After(toDay) {
		return nil, types.ErrInvalidRange
	}
	return e.cleanup(root, "cleanup_date", func(it *types.Item) bool {
		day := dateOf(it.Created.In(from.Location()))
		return !day.Before(fromDay) && !day.After(toDay)
	})
}

// CleanupByImportanceRange removes every file under root whose importance
// lies within [from, to]. Folders are kept.
func (e *Engine) CleanupByImportanceRange(root *tree.Node, from, to int) ([]*types.Item, error) {
	if err := types.ValidateImportance(from); err != nil {
		return nil, err
	}
	if err := types.ValidateImportance(to); err != nil {
		return nil, err
	}
	if from > to {
		return nil, types.ErrInvalidRange
	}
	return e.cleanup(root, "cleanup_importance", func(it *types.Item) bool {
		return it.File.Importance >= from && it.File.Importance <= to
	})
}

// cleanup collects matching files depth-first, then removes them one by one.
// It returns the items that were removed, also when it stops on an error.
func (e *Engine) cleanup(root *tree.Node, op string, match func(*types.Item) bool) ([]*types.Item, error) {
	if root == nil {
		root = e.tree.Root()
	}
	var victims []*tree.Node
	e.tree.Walk(root, func(n *tree.Node) bool {
		if n.Item.IsFile() && match(n.Item) {
			victims = append(victims, n)
		}
		return true
	})

	removed := make([]*types.Item, 0, len(victims))
	for _, v := range victims {
		if err := e.files.RemoveByID(v.Item.ID); err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{"op": op, "id": v.Item.ID}).Warn("cleanup removal failed")
			return removed, fmt.Errorf("removing file %s: %w", v.Item.ID, err)
		}
		if err := e.tree.Remove(v); err != nil {
			return removed, err
		}
		e.forget(v)
		removed = append(removed, v.Item)
	}
	e.log.WithFields(logrus.Fields{"op": op, "removed": len(removed)}).Info("cleanup finished")
	return removed, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
