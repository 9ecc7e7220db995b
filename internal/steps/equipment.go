package steps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

// MaxCustomItemName bounds a custom item's name in runes
const MaxCustomItemName = 100

func equipmentStep() *Definition {
	return define(entities.StepEquipment, validateEquipment, equipmentComplete)
}

func validateEquipment(p *entities.EquipmentPayload, sc *Context, vb *errors.ValidationBuilder) *entities.EquipmentPayload {
	c := sc.Catalog

	out := &entities.EquipmentPayload{
		Weapons:     collect("weapons", p.Weapons, false, c.HasWeapon, vb),
		Armor:       collect("armor", p.Armor, false, c.HasArmor, vb),
		Packs:       collect("packs", p.Packs, false, c.HasPack, vb),
		Currency:    make(map[string]int, len(p.Currency)),
		CustomItems: make([]entities.CustomItem, 0, len(p.CustomItems)),
	}

	coins := make([]string, 0, len(p.Currency))
	for coin := range p.Currency {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	for _, coin := range coins {
		amount := p.Currency[coin]
		field := "currency." + coin
		if !c.HasCurrency(coin) {
			vb.UnknownID(field, coin)
			continue
		}
		if amount < 0 {
			vb.Violation(field, errors.ReasonOutOfRange, "amount must not be negative")
			continue
		}
		out.Currency[coin] = amount
	}

	for i, item := range p.CustomItems {
		field := fmt.Sprintf("custom_items[%d].name", i)
		name := strings.TrimSpace(item.Name)
		errors.ValidateRequired(field, name, vb)
		errors.ValidateMaxLength(field, name, MaxCustomItemName, vb)
		out.CustomItems = append(out.CustomItems, entities.CustomItem{
			Name:        name,
			Description: strings.TrimSpace(item.Description),
		})
	}

	return out
}

func equipmentComplete(_ *entities.EquipmentPayload, _ *Context) bool {
	return true
}
