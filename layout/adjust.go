// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: layout/adjust.go
// Summary: Fold an externally observed pane geometry back into the
// nearest enclosing split's ratio.

package layout

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotAdjustable means the observed geometry cannot be expressed as a
// ratio change of the pane's parent split (root pane, or a degenerate
// observed size).
var ErrNotAdjustable = errors.New("layout: move not expressible as a ratio change")

// ratio bounds keep a dragged border from starving either side.
const (
	minAdjustRatio = 0.05
	maxAdjustRatio = 0.95
)

// AdjustRatio returns a new tree in which the parent split of the target
// leaf has its ratio recomputed so that the target's resolved size along
// the split axis matches the observed geometry. Only the size along the
// parent's axis is honoured; position changes cannot be expressed as a
// ratio and are ignored.
func AdjustRatio(root *Node, r Rect, target uuid.UUID, observed Rect) (*Node, error) {
	tree, ok := adjustNode(root, r, target, observed)
	if !ok {
		return nil, ErrNotAdjustable
	}
	return tree, nil
}

func adjustNode(n *Node, r Rect, target uuid.UUID, observed Rect) (*Node, bool) {
	if n == nil || n.IsLeaf() {
		return Clone(n), false
	}

	first, second := childRects(n, r)

	if hit, isFirst := directChild(n, target); hit {
		ratio, ok := ratioFor(n.Axis, r, observed, isFirst)
		if !ok {
			return Clone(n), false
		}
		return &Node{
			Axis:   n.Axis,
			Ratio:  ratio,
			First:  Clone(n.First),
			Second: Clone(n.Second),
		}, true
	}

	adjustedFirst, okFirst := adjustNode(n.First, first, target, observed)
	if okFirst {
		return &Node{Axis: n.Axis, Ratio: n.Ratio, First: adjustedFirst, Second: Clone(n.Second)}, true
	}
	adjustedSecond, okSecond := adjustNode(n.Second, second, target, observed)
	if okSecond {
		return &Node{Axis: n.Axis, Ratio: n.Ratio, First: Clone(n.First), Second: adjustedSecond}, true
	}
	return Clone(n), false
}

func directChild(n *Node, target uuid.UUID) (hit, isFirst bool) {
	if n.First.IsLeaf() && n.First.Pane == target {
		return true, true
	}
	if n.Second.IsLeaf() && n.Second.Pane == target {
		return true, false
	}
	return false, false
}

func childRects(n *Node, r Rect) (Rect, Rect) {
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
	return first, second
}

func ratioFor(axis Axis, parent Rect, observed Rect, isFirst bool) (float64, bool) {
	var frac float64
	if axis == Horizontal {
		if parent.W <= 0 || observed.W <= 0 {
			return 0, false
		}
		frac = float64(observed.W) / float64(parent.W)
	} else {
		if parent.H <= 0 || observed.H <= 0 {
			return 0, false
		}
		frac = float64(observed.H) / float64(parent.H)
	}
	if !isFirst {
		frac = 1 - frac
	}
	if frac < minAdjustRatio {
		frac = minAdjustRatio
	}
	if frac > maxAdjustRatio {
		frac = maxAdjustRatio
	}
	return frac, true
}
