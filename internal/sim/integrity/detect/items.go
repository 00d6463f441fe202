package detect

import (
	"strings"

	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/model"
)

// ItemLegality checks the held item. Banned ids, oversized stacks and
// over-level enchantments clear the slot; an enchantment the item cannot
// carry is stripped.
func ItemLegality(in *Input) Result {
	it, ok := in.Snap.Held()
	if !ok {
		return none
	}
	slot := in.Snap.SelectedSlot
	for _, p := range in.Cfg.BannedPrefixes {
		if p != "" && strings.HasPrefix(it.ID, p) {
			return fire(model.Evidence{"item": it.ID, "reason": "banned"}, correct.ClearSlot(slot))
		}
	}
	max := it.MaxAmount
	if in.Items != nil {
		if n, ok := in.Items.MaxStack(it.ID); ok {
			max = n
		}
	}
	if max > 0 && it.Amount > max {
		return fire(model.Evidence{"item": it.ID, "amount": it.Amount, "max": max}, correct.ClearSlot(slot))
	}
	if in.Items == nil {
		return none
	}
	for _, e := range it.Enchantments {
		maxLevel, legal := in.Items.EnchantmentAllowed(it.ID, e.ID)
		if !legal && maxLevel <= 0 {
			// Not in the catalog, so no item can carry it.
			return fire(model.Evidence{
				"item": it.ID, "enchantment": e.ID, "reason": "unknown enchantment",
			}, correct.StripEnchantment(slot, e.ID))
		}
		if e.Level > maxLevel {
			return fire(model.Evidence{
				"item": it.ID, "enchantment": e.ID, "level": e.Level, "max_level": maxLevel,
			}, correct.ClearSlot(slot))
		}
		if !legal {
			return fire(model.Evidence{
				"item": it.ID, "enchantment": e.ID, "reason": "not applicable",
			}, correct.StripEnchantment(slot, e.ID))
		}
	}
	return none
}

// InventoryEnchant sweeps every slot and strips the first enchantment that
// is not legal for its item. Remaining ones are caught on later ticks.
func InventoryEnchant(in *Input) Result {
	if in.Items == nil {
		return none
	}
	for slot, it := range in.Snap.Inventory {
		if it.Empty() {
			continue
		}
		for _, e := range it.Enchantments {
			if _, legal := in.Items.EnchantmentAllowed(it.ID, e.ID); !legal {
				return fire(model.Evidence{
					"slot": slot, "item": it.ID, "enchantment": e.ID,
				}, correct.StripEnchantment(slot, e.ID))
			}
		}
	}
	return none
}

// ClickRate reports a use-item burst. The counter is fed by the use-item
// hook and decayed by the engine after the pipeline runs.
func ClickRate(in *Input) Result {
	count := in.Rec.ClickCounter
	if float64(count) > in.th(model.KindClickRate, "max") {
		return fire(model.Evidence{"counter": count}, nil)
	}
	return none
}
