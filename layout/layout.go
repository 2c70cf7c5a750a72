// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: layout/layout.go
// Summary: Pure split-tree layout engine for tiling real windows.
// Usage: Used by the mux engine to turn a workspace tree and an output
// rectangle into concrete per-pane geometries.

package layout

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Rect is an integer pixel rectangle in window-manager coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Axis selects the direction a split divides its rectangle.
// Horizontal divides the width (children sit side by side),
// Vertical divides the height (children are stacked).
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// ParseAxis maps the command-surface spelling to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "horizontal", "h":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	}
	return Horizontal, fmt.Errorf("layout: unknown axis %q", s)
}

// Node is one node of a workspace layout tree. A node is either a leaf
// holding a pane ID, or a split holding an axis, a ratio in (0,1) and
// exactly two children. The zero ratio of a leaf is never read.
type Node struct {
	Pane   uuid.UUID `json:"pane,omitempty"`
	Axis   Axis      `json:"axis,omitempty"`
	Ratio  float64   `json:"ratio,omitempty"`
	First  *Node     `json:"first,omitempty"`
	Second *Node     `json:"second,omitempty"`
}

var (
	ErrPaneNotFound = errors.New("layout: pane not in tree")
	ErrBadRatio     = errors.New("layout: ratio must be in (0,1)")
)

// DefaultRatio is used when a split command carries no explicit ratio.
const DefaultRatio = 0.5

// Leaf returns a new leaf node for the given pane.
func Leaf(pane uuid.UUID) *Node {
	return &Node{Pane: pane}
}

// IsLeaf reports whether n holds a pane rather than a split.
func (n *Node) IsLeaf() bool {
	return n != nil && n.First == nil && n.Second == nil
}

// Clone returns a deep copy of the tree. All transforms work on copies so
// a failed mutation can be discarded without unwinding anything.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.First = Clone(n.First)
	c.Second = Clone(n.Second)
	return &c
}

// Resolve computes the geometry of every pane under root when root tiles r.
// The first child of a split receives floor(dimension * ratio) pixels and
// the second child the remainder, so the partition always sums exactly to
// the parent rectangle regardless of rounding.
func Resolve(root *Node, r Rect) map[uuid.UUID]Rect {
	out := make(map[uuid.UUID]Rect)
	resolveInto(root, r, out)
	return out
}

func resolveInto(n *Node, r Rect, out map[uuid.UUID]Rect) {
	if n == nil {
		return
	}
	if n.IsLeaf() {
		out[n.Pane] = r
		return
	}
	first, second := r, r
	if n.Axis == Horizontal {
		fw := int(float64(r.W) * n.Ratio)
		first.W = fw
		second.X = r.X + fw
		second.W = r.W - fw
	} else {
		fh := int(float64(r.H) * n.Ratio)
		first.H = fh
		second.Y = r.Y + fh
		second.H = r.H - fh
	}
	resolveInto(n.First, first, out)
	resolveInto(n.Second, second, out)
}

// Split replaces the target leaf with a split node whose first child is
// the original pane and whose second child is a fresh leaf. It returns
// the new tree and the ID of the new pane. The input tree is not touched.
func Split(root *Node, target uuid.UUID, axis Axis, ratio float64) (*Node, uuid.UUID, error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, uuid.Nil, ErrBadRatio
	}
	newPane := uuid.New()
	tree, replaced := splitNode(root, target, axis, ratio, newPane)
	if !replaced {
		return nil, uuid.Nil, ErrPaneNotFound
	}
	return tree, newPane, nil
}

func splitNode(n *Node, target uuid.UUID, axis Axis, ratio float64, newPane uuid.UUID) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.IsLeaf() {
		if n.Pane != target {
			return &Node{Pane: n.Pane}, false
		}
		return &Node{
			Axis:   axis,
			Ratio:  ratio,
			First:  Leaf(n.Pane),
			Second: Leaf(newPane),
		}, true
	}
	first, okFirst := splitNode(n.First, target, axis, ratio, newPane)
	second, okSecond := splitNode(n.Second, target, axis, ratio, newPane)
	return &Node{
		Axis:   n.Axis,
		Ratio:  n.Ratio,
		First:  first,
		Second: second,
	}, okFirst || okSecond
}

// Remove drops the target leaf from the tree, promoting its sibling over
// the now-degenerate parent split. Removing the only leaf yields a nil
// tree, which signals the caller that the workspace is empty.
func Remove(root *Node, target uuid.UUID) (*Node, error) {
	tree, removed := removeNode(root, target)
	if !removed {
		return nil, ErrPaneNotFound
	}
	return tree, nil
}

func removeNode(n *Node, target uuid.UUID) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.IsLeaf() {
		if n.Pane == target {
			return nil, true
		}
		return &Node{Pane: n.Pane}, false
	}
	if n.First.IsLeaf() && n.First.Pane == target {
		return Clone(n.Second), true
	}
	if n.Second.IsLeaf() && n.Second.Pane == target {
		return Clone(n.First), true
	}
	first, okFirst := removeNode(n.First, target)
	second, okSecond := removeNode(n.Second, target)
	return &Node{
		Axis:   n.Axis,
		Ratio:  n.Ratio,
		First:  first,
		Second: second,
	}, okFirst || okSecond
}

// Leaves returns the pane IDs under root in first-to-second order.
func Leaves(root *Node) []uuid.UUID {
	var out []uuid.UUID
	walk(root, func(n *Node) {
		if n.IsLeaf() {
			out = append(out, n.Pane)
		}
	})
	return out
}

// Contains reports whether the tree holds a leaf for the given pane.
func Contains(root *Node, pane uuid.UUID) bool {
	found := false
	walk(root, func(n *Node) {
		if n.IsLeaf() && n.Pane == pane {
			found = true
		}
	})
	return found
}

// Equal reports structural equality of two trees, used by tests and by
// the snapshot round-trip check.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.IsLeaf() != b.IsLeaf() {
		return false
	}
	if a.IsLeaf() {
		return a.Pane == b.Pane
	}
	if a.Axis != b.Axis || a.Ratio != b.Ratio {
		return false
	}
	return Equal(a.First, b.First) && Equal(a.Second, b.Second)
}

func walk(n *Node, f func(*Node)) {
	if n == nil {
		return
	}
	f(n)
	walk(n.First, f)
	walk(n.Second, f)
}
