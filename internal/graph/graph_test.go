package graph

import "testing"

func build(t *testing.T, n int, edges [][3]int32) *Graph[int32] {
	t.Helper()
	g := New[int32](n, len(edges))
	for i := 0; i < n; i++ {
		g.AddNode()
	}
	for _, e := range edges {
		g.AddEdge(NodeID(e[0]), NodeID(e[1]), e[2])
	}
	if !g.WellFormed() {
		t.Fatal("built graph is not well formed")
	}
	return g
}

func outLabels(g *Graph[int32], n NodeID) []int32 {
	var out []int32
	g.OutEdges(n, func(id EdgeID) bool {
		out = append(out, g.Label(id))
		return true
	})
	return out
}

func TestAddRemoveEdge(t *testing.T) {
	g := build(t, 3, [][3]int32{{0, 1, 10}, {0, 2, 20}, {1, 2, 30}})
	if g.NumNodes() != 3 || g.NumEdges() != 3 {
		t.Fatalf("got %d nodes, %d edges; want 3, 3", g.NumNodes(), g.NumEdges())
	}
	if g.OutDegree(0) != 2 || g.InDegree(2) != 2 {
		t.Errorf("degrees: out(0)=%d in(2)=%d, want 2, 2", g.OutDegree(0), g.InDegree(2))
	}

	ids := g.EdgesBetween(0, 2)
	if len(ids) != 1 || g.Label(ids[0]) != 20 {
		t.Fatalf("EdgesBetween(0,2) = %v", ids)
	}
	g.RemoveEdge(ids[0])
	if g.NumEdges() != 2 || g.OutDegree(0) != 1 || g.InDegree(2) != 1 {
		t.Error("removal did not unlink both chains")
	}
	if !g.WellFormed() {
		t.Error("graph not well formed after removal")
	}
}

func TestEdgeSlotReuse(t *testing.T) {
	g := build(t, 2, [][3]int32{{0, 1, 1}})
	id := g.EdgesBetween(0, 1)[0]
	g.RemoveEdge(id)
	reused := g.AddEdge(1, 0, 2)
	if reused != id {
		t.Errorf("freed slot not reused: got %d, want %d", reused, id)
	}
	if g.Src(reused) != 1 || g.Dst(reused) != 0 || g.Label(reused) != 2 {
		t.Error("reused edge carries stale fields")
	}
}

func TestMultigraphEdges(t *testing.T) {
	g := build(t, 2, [][3]int32{{0, 1, 1}, {0, 1, 1}, {0, 1, 2}})
	if got := g.EdgesBetween(0, 1); len(got) != 3 {
		t.Errorf("got %d parallel edges, want 3", len(got))
	}
}

func TestCoalesce(t *testing.T) {
	// 0 -> 1 -> 2 with a 1->1 self-loop and a 0->2 bypass.
	g := build(t, 3, [][3]int32{{0, 1, 1}, {1, 2, 2}, {1, 1, 3}, {0, 2, 4}})
	g.Coalesce(0, 1)
	if !g.WellFormed() {
		t.Fatal("graph not well formed after coalesce")
	}
	if g.OutDegree(1) != 0 || g.InDegree(1) != 0 {
		t.Error("coalesced node must end with no edges")
	}
	// The 0->1 edge and the self-loop vanish; 1->2 is rewired to 0->2.
	labels := outLabels(g, 0)
	if len(labels) != 2 {
		t.Fatalf("out labels of merged node = %v, want two edges to 2", labels)
	}
}

func TestReachable(t *testing.T) {
	// 3 is an island; BFS from 0 orders 0, 1, 2.
	g := build(t, 4, [][3]int32{{0, 1, 1}, {1, 2, 2}, {3, 2, 3}})
	mapping, n, roots := g.Reachable([]NodeID{0})
	if n != 3 {
		t.Fatalf("reachable count = %d, want 3", n)
	}
	if roots[0] != 0 || mapping[0] != 0 || mapping[1] != 1 || mapping[2] != 2 {
		t.Errorf("mapping = %v, roots = %v", mapping, roots)
	}
	if mapping[3] != NoNode {
		t.Error("island must map to NoNode")
	}
}

func TestCSRRoundTrip(t *testing.T) {
	rows := [][]int32{{1, 2, 3}, {}, {4}}
	c := BuildCSR(rows)
	if c.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", c.NumRows())
	}
	for i, want := range rows {
		got := c.Row(int32(i))
		if len(got) != len(want) {
			t.Fatalf("row %d = %v, want %v", i, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("row %d = %v, want %v", i, got, want)
			}
		}
	}
	back := FromArrays(c.Data(), c.Indptr())
	if back.NumRows() != c.NumRows() || len(back.Row(0)) != 3 {
		t.Error("FromArrays(Data, Indptr) must reproduce the CSR")
	}
}

func TestCSRBuilder(t *testing.T) {
	b := NewCSRBuilder[int32]()
	if id := b.AppendRow([]int32{7}); id != 0 {
		t.Fatalf("first row id = %d, want 0", id)
	}
	b.AppendRow(nil)
	b.AppendRow([]int32{8, 9})
	c := b.Freeze()
	if c.NumRows() != 3 || len(c.Row(1)) != 0 || c.Row(2)[1] != 9 {
		t.Error("frozen CSR does not match appended rows")
	}
}

func TestCSRMemorySize(t *testing.T) {
	c := BuildCSR([][]int32{{1, 2}, {3}})
	if c.MemorySize(4) <= 0 {
		t.Error("size must be positive")
	}
}
