package model

import (
	"slices"
	"testing"
)

func TestMasterHierarchy(t *testing.T) {
	if got := MasterParent(MasterFloor); got != MasterBuilding {
		t.Errorf("parent of floor = %q", got)
	}
	if got := MasterParent(MasterCategory); got != "" {
		t.Errorf("category should be a root, got parent %q", got)
	}
	want := []string{MasterDepartment, MasterDivision, MasterRoom}
	if got := MasterDescendants(MasterFloor); !slices.Equal(got, want) {
		t.Errorf("descendants of floor = %v, want %v", got, want)
	}
	if got := MasterDescendants(MasterModel); len(got) != 0 {
		t.Errorf("model should be a leaf, got %v", got)
	}
	if ValidMasterKind("planet") {
		t.Error("unknown kind reported valid")
	}
	if len(MasterKinds()) != 10 {
		t.Errorf("expected 10 kinds, got %d", len(MasterKinds()))
	}
}
