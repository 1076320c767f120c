package query

import (
	"testing"
)

func TestBuildWhereEmptyFilter(t *testing.T) {
	where, args := buildWhere(Filter{})
	if where != "" {
		t.Errorf("Expected no WHERE clause, got %q", where)
	}
	if len(args) != 0 {
		t.Errorf("Expected no args, got %v", args)
	}
}

func TestBuildWhereCombinesClauses(t *testing.T) {
	f := Filter{
		Src:     "10.0.0.1",
		MinSize: 1000,
		Until:   99.5,
	}
	where, args := buildWhere(f)

	want := " WHERE Src = ? AND SizeBytes >= ? AND CompletionTime <= ?"
	if where != want {
		t.Errorf("Unexpected WHERE clause:\n got %q\nwant %q", where, want)
	}
	if len(args) != 3 {
		t.Fatalf("Expected 3 args, got %d", len(args))
	}
	if args[0] != "10.0.0.1" || args[1] != uint64(1000) || args[2] != 99.5 {
		t.Errorf("Unexpected args: %v", args)
	}
}

func TestBuildWhereAllFields(t *testing.T) {
	f := Filter{
		Src:        "10.0.0.1",
		Dst:        "10.0.0.2",
		MinSize:    1,
		MinPackets: 2,
		Since:      3.0,
		Until:      4.0,
	}
	where, args := buildWhere(f)
	want := " WHERE Src = ? AND Dst = ? AND SizeBytes >= ? AND NumPackets >= ? AND CompletionTime >= ? AND CompletionTime <= ?"
	if where != want {
		t.Errorf("Unexpected WHERE clause:\n got %q\nwant %q", where, want)
	}
	if len(args) != 6 {
		t.Errorf("Expected 6 args, got %d", len(args))
	}
}
