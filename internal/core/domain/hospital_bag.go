package domain

// BagCategory groups hospital bag items
type BagCategory string

const (
	BagCategoryDocs BagCategory = "docs" // Documents to carry
	BagCategoryMom  BagCategory = "mom"  // Items for the mother
	BagCategoryBaby BagCategory = "baby" // Items for the newborn
)

// BagGroup is one category of the hospital bag checklist
type BagGroup struct {
	Category BagCategory `json:"category"`
	Items    []string    `json:"items"`
}

// HospitalBagGroups returns the fixed hospital bag checklist
func HospitalBagGroups() []BagGroup {
	return []BagGroup{
		{Category: BagCategoryDocs, Items: []string{"mcp", "id", "bank", "ins"}},
		{Category: BagCategoryMom, Items: []string{"clothes", "towels", "toiletries", "slippers"}},
		{Category: BagCategoryBaby, Items: []string{"blanket", "diapers", "wipes", "socks"}},
	}
}

// IsValidBagItem checks if an item id is part of the checklist
func IsValidBagItem(itemID string) bool {
	for _, g := range HospitalBagGroups() {
		for _, item := range g.Items {
			if item == itemID {
				return true
			}
		}
	}
	return false
}

// BagItem is a checklist item with its checked flag
type BagItem struct {
	ID       string      `json:"id"`
	Category BagCategory `json:"category"`
	Checked  bool        `json:"checked"`
}

// ToggleID adds id to ids if absent, or removes it if present, preserving order
func ToggleID(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	found := false
	for _, existing := range ids {
		if existing == id {
			found = true
			continue
		}
		out = append(out, existing)
	}
	if !found {
		out = append(out, id)
	}
	return out
}

// ContainsID reports whether id is in ids
func ContainsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
