package model

// Master is a read-only reference record (location or product taxonomy).
type Master struct {
	Kind     string            `json:"kind"`
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	ParentID string            `json:"parent_id,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// Master kinds.
const (
	MasterBuilding    = "building"
	MasterFloor       = "floor"
	MasterDepartment  = "department"
	MasterDivision    = "division"
	MasterRoom        = "room"
	MasterCategory    = "category"
	MasterSubcategory = "subcategory"
	MasterItem        = "item"
	MasterMaker       = "maker"
	MasterModel       = "model"
)

// masterChains lists each hierarchy from root to leaf.
var masterChains = [][]string{
	{MasterBuilding, MasterFloor, MasterDepartment, MasterDivision, MasterRoom},
	{MasterCategory, MasterSubcategory, MasterItem, MasterMaker, MasterModel},
}

// MasterKinds returns every known kind, location kinds first.
func MasterKinds() []string {
	var kinds []string
	for _, chain := range masterChains {
		kinds = append(kinds, chain...)
	}
	return kinds
}

// ValidMasterKind reports whether kind is a known master kind.
func ValidMasterKind(kind string) bool {
	_, _, ok := masterPosition(kind)
	return ok
}

// MasterParent returns the parent kind of kind, or "" for a root kind.
func MasterParent(kind string) string {
	chain, i, ok := masterPosition(kind)
	if !ok || i == 0 {
		return ""
	}
	return chain[i-1]
}

// MasterDescendants returns the kinds below kind in its hierarchy.
func MasterDescendants(kind string) []string {
	chain, i, ok := masterPosition(kind)
	if !ok {
		return nil
	}
	return chain[i+1:]
}

// MasterIDField is the draft field holding the selected id of kind.
func MasterIDField(kind string) string { return kind + "Id" }

// MasterNameField is the draft field holding the denormalized name of kind.
func MasterNameField(kind string) string { return kind + "Name" }

func masterPosition(kind string) ([]string, int, bool) {
	for _, chain := range masterChains {
		for i, k := range chain {
			if k == kind {
				return chain, i, true
			}
		}
	}
	return nil, 0, false
}
