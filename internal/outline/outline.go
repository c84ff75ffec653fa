// Package outline implements the outline pass of spec §4.6 (outline ←
// segment_set only): it assembles every segment's chapter-header comments
// into a single tree, mirroring original_source/src/outline.rs's
// OutlineNode/add_child/build_outline.
package outline

import (
	"github.com/mm-tools/mmcore/internal/pass"
	"github.com/mm-tools/mmcore/internal/segment"
)

// Node is one heading in the outline tree. The root Node (returned by
// build) is a LevelDatabase sentinel shallower than any real heading, with
// no Address of its own.
type Node struct {
	Level    segment.HeadingLevel
	Title    string
	Address  segment.Address
	Children []Node
}

// Result is outline's pass result: a single root Node, wrapped in a
// one-entry Index so it shares the same Slot/Reader machinery as every
// other pass. rootKey is its only key.
type Result = pass.Index[rootKeyType, Node]

type rootKeyType struct{}

// rootKey is the sole key Result is ever indexed under.
var rootKey = rootKeyType{}

// Pass computes and maintains the outline Result. Unlike the label-keyed
// analysis passes, outline has no per-segment incremental path: its single
// output is one tree spanning every segment, so any segment_set change
// invalidates and fully rebuilds it (spec §4.6 marks outline's only
// predecessor as segment_set, no Reader-tracked pass dependency).
type Pass struct {
	slot *pass.Slot[*Result]
}

// New returns a Pass.
func New() *Pass {
	return &Pass{slot: pass.NewSlot(func(r *Result) *Result { return r.Clone() })}
}

// Invalidate clears the cached current result.
func (p *Pass) Invalidate() {
	p.slot.Invalidate()
}

// CloneHandle returns a Pass sharing this one's current/previous result
// handles (cheap, O(1)).
func (p *Pass) CloneHandle() *Pass {
	return &Pass{slot: p.slot.CloneHandle()}
}

// Release drops this Pass's handle on its cached result.
func (p *Pass) Release() {
	p.slot.Release()
}

// Compute builds the outline tree over segs, skipping work entirely if
// nothing invalidated the current result.
func (p *Pass) Compute(segs []segment.Segment) (*Result, error) {
	if current, ok := p.slot.Current(); ok {
		return current.Get(), nil
	}

	shared, err := p.slot.Recompute(pass.NewIndex[rootKeyType, Node](), func(idx *Result) error {
		root := build(segs)
		idx.Set(rootKey, root, 0, 1)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return shared.Get(), nil
}

// Root returns the outline's single root Node out of a computed Result.
func Root(r *Result) (Node, bool) {
	e, ok := r.Get(rootKey)
	if !ok {
		return Node{}, false
	}

	return e.Value, true
}

// build walks every segment's headings in order, folding each into the
// tree via addChild, mirroring build_outline's segment/heading loop.
func build(segs []segment.Segment) Node {
	root := Node{Level: segment.LevelDatabase}

	for _, seg := range segs {
		for _, h := range seg.Headings() {
			child := Node{
				Level:   h.Level,
				Title:   h.Title,
				Address: segment.Address{Segment: seg.ID, Stmt: h.Index},
			}

			addChild(&root, child)
		}
	}

	return root
}

// addChild inserts child under parent: if parent has a last child that is
// strictly shallower than child's level, child descends into that last
// child's subtree recursively; otherwise child becomes a new direct child
// of parent. This mirrors outline.rs's add_child exactly, and relies on
// parent.Level < child.Level always holding for every call from build (a
// heading is never shallower than the root sentinel it starts from).
func addChild(parent *Node, child Node) {
	if n := len(parent.Children); n > 0 {
		last := &parent.Children[n-1]
		if child.Level > last.Level {
			addChild(last, child)

			return
		}
	}

	parent.Children = append(parent.Children, child)
}
