package layout

import (
	"testing"

	"github.com/google/uuid"
)

// checkTiling verifies that the resolved geometries exactly tile r:
// total area matches, no rect overlaps another, no rect leaves r.
func checkTiling(t *testing.T, root *Node, r Rect) map[uuid.UUID]Rect {
	t.Helper()
	geoms := Resolve(root, r)

	area := 0
	rects := make([]Rect, 0, len(geoms))
	for id, g := range geoms {
		if g.W <= 0 || g.H <= 0 {
			t.Fatalf("pane %s has empty geometry %+v", id, g)
		}
		if g.X < r.X || g.Y < r.Y || g.X+g.W > r.X+r.W || g.Y+g.H > r.Y+r.H {
			t.Fatalf("pane %s geometry %+v escapes %+v", id, g, r)
		}
		area += g.W * g.H
		rects = append(rects, g)
	}
	if area != r.W*r.H {
		t.Fatalf("geometries cover area %d, want %d", area, r.W*r.H)
	}
	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			a, b := rects[i], rects[j]
			if a.X < b.X+b.W && b.X < a.X+a.W && a.Y < b.Y+b.H && b.Y < a.Y+a.H {
				t.Fatalf("geometries overlap: %+v and %+v", a, b)
			}
		}
	}
	return geoms
}

func TestResolveSingleLeaf(t *testing.T) {
	p := uuid.New()
	r := Rect{X: 10, Y: 20, W: 640, H: 480}
	geoms := Resolve(Leaf(p), r)
	if len(geoms) != 1 || geoms[p] != r {
		t.Fatalf("expected single pane at %+v, got %v", r, geoms)
	}
}

func TestResolveHorizontalHalves(t *testing.T) {
	a := uuid.New()
	root := Leaf(a)
	root, b, err := Split(root, a, Horizontal, 0.5)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	geoms := checkTiling(t, root, Rect{W: 1000, H: 800})
	want := map[uuid.UUID]Rect{
		a: {X: 0, Y: 0, W: 500, H: 800},
		b: {X: 500, Y: 0, W: 500, H: 800},
	}
	for id, g := range want {
		if geoms[id] != g {
			t.Fatalf("pane geometry = %+v, want %+v", geoms[id], g)
		}
	}
}

func TestResolveRemainderGoesToSecondChild(t *testing.T) {
	a := uuid.New()
	root, b, err := Split(Leaf(a), a, Vertical, 0.3)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	geoms := checkTiling(t, root, Rect{W: 100, H: 101})
	// floor(101*0.3)=30 for the first child, the odd pixel lands on the second.
	if geoms[a].H != 30 {
		t.Fatalf("first child height = %d, want 30", geoms[a].H)
	}
	if geoms[b].Y != 30 || geoms[b].H != 71 {
		t.Fatalf("second child = %+v, want Y=30 H=71", geoms[b])
	}
}

func TestResolveDeepNestingTiles(t *testing.T) {
	root := Leaf(uuid.New())
	ratios := []float64{0.5, 0.33, 0.77, 0.11, 0.619, 0.5, 0.9}
	for i, ratio := range ratios {
		leaves := Leaves(root)
		target := leaves[i%len(leaves)]
		axis := Horizontal
		if i%2 == 1 {
			axis = Vertical
		}
		var err error
		root, _, err = Split(root, target, axis, ratio)
		if err != nil {
			t.Fatalf("split %d failed: %v", i, err)
		}
	}
	checkTiling(t, root, Rect{X: 3, Y: 7, W: 1917, H: 1033})
	checkTiling(t, root, Rect{W: 11, H: 13})
}

func TestSplitRemoveRoundTrip(t *testing.T) {
	a := uuid.New()
	base, b, err := Split(Leaf(a), a, Horizontal, 0.5)
	if err != nil {
		t.Fatalf("initial split failed: %v", err)
	}

	grown, c, err := Split(base, b, Vertical, 0.25)
	if err != nil {
		t.Fatalf("second split failed: %v", err)
	}
	shrunk, err := Remove(grown, c)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !Equal(base, shrunk) {
		t.Fatalf("split+remove did not round-trip")
	}
}

func TestSplitDoesNotMutateInput(t *testing.T) {
	a := uuid.New()
	orig := Leaf(a)
	snapshot := Clone(orig)

	if _, _, err := Split(orig, a, Vertical, 0.4); err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if !Equal(orig, snapshot) {
		t.Fatalf("Split mutated its input tree")
	}
}

func TestSplitRejectsBadRatio(t *testing.T) {
	a := uuid.New()
	for _, ratio := range []float64{0, 1, -0.5, 1.5} {
		if _, _, err := Split(Leaf(a), a, Horizontal, ratio); err != ErrBadRatio {
			t.Fatalf("ratio %v: err = %v, want ErrBadRatio", ratio, err)
		}
	}
}

func TestSplitMissingPane(t *testing.T) {
	if _, _, err := Split(Leaf(uuid.New()), uuid.New(), Horizontal, 0.5); err != ErrPaneNotFound {
		t.Fatalf("err = %v, want ErrPaneNotFound", err)
	}
}

func TestRemoveLastLeafYieldsEmptyTree(t *testing.T) {
	a := uuid.New()
	tree, err := Remove(Leaf(a), a)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if tree != nil {
		t.Fatalf("expected empty tree, got %+v", tree)
	}
}

func TestRemoveCollapsesDegenerateSplit(t *testing.T) {
	a := uuid.New()
	root, b, err := Split(Leaf(a), a, Horizontal, 0.5)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	root, c, err := Split(root, a, Vertical, 0.5)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	// Removing a leaves the b/c split only; no single-child nodes remain.
	tree, err := Remove(root, a)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	leaves := Leaves(tree)
	if len(leaves) != 2 {
		t.Fatalf("expected 2 leaves, got %d", len(leaves))
	}
	if !Contains(tree, b) || !Contains(tree, c) {
		t.Fatalf("surviving panes missing from tree")
	}
	walkCheck := func(n *Node) {
		if !n.IsLeaf() && (n.First == nil || n.Second == nil) {
			t.Fatalf("degenerate split survived: %+v", n)
		}
	}
	walk(tree, walkCheck)
}

func TestParseAxis(t *testing.T) {
	cases := map[string]Axis{"horizontal": Horizontal, "h": Horizontal, "vertical": Vertical, "v": Vertical}
	for in, want := range cases {
		got, err := ParseAxis(in)
		if err != nil || got != want {
			t.Fatalf("ParseAxis(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseAxis("diagonal"); err == nil {
		t.Fatalf("expected error for unknown axis")
	}
}
