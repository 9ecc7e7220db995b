package steps

import (
	"fmt"
	"slices"

	"github.com/KirkDiggler/rpg-builder/internal/catalog"
	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

func spellsStep() *Definition {
	return define(entities.StepSpells, validateSpells, spellsComplete)
}

// spellList is one of the three selection lists with its cap
type spellList struct {
	field   string
	ids     []string
	cap     int
	cantrip bool
}

func validateSpells(p *entities.SpellsPayload, sc *Context, vb *errors.ValidationBuilder) *entities.SpellsPayload {
	class, hasClass := selectedClass(sc)

	// A class without a progression row at this level gets caps of zero
	var row catalog.SpellProgression
	if hasClass {
		row, _ = sc.Catalog.Progression(class.ID, sc.StartingLevel)
	}

	lists := []spellList{
		{field: "cantrips", ids: p.Cantrips, cap: row.Cantrips, cantrip: true},
		{field: "known", ids: p.Known, cap: row.Known},
		{field: "prepared", ids: p.Prepared, cap: row.Prepared},
	}

	out := make([][]string, len(lists))
	for i, list := range lists {
		out[i] = validateSpellList(list, class, row, sc.Catalog, vb)
	}

	return &entities.SpellsPayload{
		Cantrips: out[0],
		Known:    out[1],
		Prepared: out[2],
	}
}

func validateSpellList(list spellList, class *catalog.Class, row catalog.SpellProgression, c *catalog.Catalog, vb *errors.ValidationBuilder) []string {
	valid := make([]string, 0, len(list.ids))
	seen := make(map[string]struct{}, len(list.ids))

	for i, id := range list.ids {
		field := fmt.Sprintf("%s[%d]", list.field, i)
		if _, dup := seen[id]; dup {
			vb.Violationf(field, errors.ReasonDuplicate, "%q selected more than once", id)
			continue
		}
		seen[id] = struct{}{}

		spell, ok := c.Spell(id)
		if !ok {
			vb.UnknownID(field, id)
			continue
		}
		if class == nil {
			vb.Violation(field, errors.ReasonInvalidSelection, "choose a class before selecting spells")
			continue
		}
		if !slices.Contains(spell.Classes, class.ID) {
			vb.Violationf(field, errors.ReasonInvalidSelection, "%q is not on the %s spell list", id, class.ID)
			continue
		}
		switch {
		case list.cantrip && spell.Level != 0:
			vb.Violationf(field, errors.ReasonWrongLevel, "%q is a level %d spell, not a cantrip", id, spell.Level)
			continue
		case !list.cantrip && spell.Level == 0:
			vb.Violationf(field, errors.ReasonWrongLevel, "%q is a cantrip", id)
			continue
		case !list.cantrip && !row.HasSlot(spell.Level):
			vb.Violationf(field, errors.ReasonWrongLevel, "no level %d spell slots at this level", spell.Level)
			continue
		}
		valid = append(valid, id)
	}

	if len(seen) > list.cap {
		vb.Violationf(list.field, errors.ReasonTooMany, "at most %d %s allowed, got %d", list.cap, list.field, len(seen))
	}
	return valid
}

// Complete once a class is chosen and every selection is still legal for it
func spellsComplete(p *entities.SpellsPayload, sc *Context) bool {
	if _, ok := selectedClass(sc); !ok {
		return false
	}
	vb := errors.NewValidationBuilder()
	validateSpells(p, sc, vb)
	return !vb.HasErrors()
}
