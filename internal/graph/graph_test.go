package graph

import "testing"

func TestNewDetectsNoCycle(t *testing.T) {
	g, err := New([]Node{
		{ID: "T1"},
		{ID: "T2", DependsOn: []string{"T1"}},
		{ID: "T3", DependsOn: []string{"T1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order := g.TopologicalOrder()
	if len(order) != 3 || order[0] != "T1" {
		t.Fatalf("expected T1 first, got %v", order)
	}
}

func TestNewDetectsCycle(t *testing.T) {
	_, err := New([]Node{
		{ID: "T1", DependsOn: []string{"T2"}},
		{ID: "T2", DependsOn: []string{"T1"}},
	})
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
}

func TestDiamond(t *testing.T) {
	g, err := New([]Node{
		{ID: "T1"},
		{ID: "T2"},
		{ID: "T3", DependsOn: []string{"T1", "T2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ready := g.ReadyNodes()
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready nodes, got %v", ready)
	}
}

func TestDeterminism(t *testing.T) {
	nodes := []Node{
		{ID: "T2", DependsOn: []string{"T1"}},
		{ID: "T1"},
		{ID: "T3", DependsOn: []string{"T1"}},
	}
	g1, err := New(nodes)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := New(nodes)
	if err != nil {
		t.Fatal(err)
	}
	o1, o2 := g1.TopologicalOrder(), g2.TopologicalOrder()
	if len(o1) != len(o2) {
		t.Fatal("order length mismatch")
	}
	for i := range o1 {
		if o1[i] != o2[i] {
			t.Fatalf("non-deterministic order: %v vs %v", o1, o2)
		}
	}
}
