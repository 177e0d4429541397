package services

import (
	"context"
	"fmt"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
)

// HospitalBag is the packing checklist; checked item ids are persisted under hospital_bag
type HospitalBag struct {
	e       *Engine
	checked []string
}

func (b *HospitalBag) load(ctx context.Context) error {
	if err := b.e.state.loadJSON(ctx, ports.KeyHospitalBag, &b.checked); err != nil {
		return err
	}
	if b.checked == nil {
		b.checked = []string{}
	}
	return nil
}

// Items returns every checklist item in group order
func (b *HospitalBag) Items() []domain.BagItem {
	b.e.mu.Lock()
	defer b.e.mu.Unlock()

	var items []domain.BagItem
	for _, g := range domain.HospitalBagGroups() {
		for _, id := range g.Items {
			items = append(items, domain.BagItem{ID: id, Category: g.Category, Checked: domain.ContainsID(b.checked, id)})
		}
	}
	return items
}

// Toggle flips an item's checked flag
func (b *HospitalBag) Toggle(ctx context.Context, itemID string) (domain.BagItem, error) {
	if !domain.IsValidBagItem(itemID) {
		return domain.BagItem{}, fmt.Errorf("%w: %s", domain.ErrUnknownBagItem, itemID)
	}

	b.e.mu.Lock()
	defer b.e.mu.Unlock()

	checked := domain.ToggleID(b.checked, itemID)
	if err := b.e.state.saveJSON(ctx, ports.KeyHospitalBag, checked); err != nil {
		return domain.BagItem{}, err
	}
	b.checked = checked

	item := domain.BagItem{ID: itemID, Checked: domain.ContainsID(checked, itemID)}
	for _, g := range domain.HospitalBagGroups() {
		if domain.ContainsID(g.Items, itemID) {
			item.Category = g.Category
		}
	}
	return item, nil
}

var _ ports.HospitalBag = (*HospitalBag)(nil)
