// Package catalog holds the read-only reference data that step payloads
// are validated against.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

// Collection names exposed to callers
const (
	CollectionSpecies     = "species"
	CollectionBackgrounds = "backgrounds"
	CollectionClasses     = "classes"
	CollectionSkills      = "skills"
	CollectionTools       = "tools"
	CollectionArmor       = "armor"
	CollectionWeapons     = "weapons"
	CollectionPacks       = "equipment-packs"
	CollectionCurrency    = "currency"
	CollectionLanguages   = "languages"
	CollectionSpells      = "spells"
	CollectionSpellSlots  = "spell-slots"
)

// Catalog is an immutable, indexed snapshot of Data.
// It is shared by every validator and must never be modified after New.
type Catalog struct {
	data Data

	species     map[string]*Species
	backgrounds map[string]*Background
	classes     map[string]*Class
	skills      map[string]*Skill
	tools       map[string]*Tool
	armor       map[string]*Armor
	weapons     map[string]*Weapon
	packs       map[string]*Pack
	spells      map[string]*Spell
	currencies  map[string]struct{}
	languages   map[string]struct{}
}

// New indexes data and checks that class skill options reference known skills
func New(data Data) (*Catalog, error) {
	c := &Catalog{
		data:        data,
		species:     make(map[string]*Species, len(data.Species)),
		backgrounds: make(map[string]*Background, len(data.Backgrounds)),
		classes:     make(map[string]*Class, len(data.Classes)),
		skills:      make(map[string]*Skill, len(data.Skills)),
		tools:       make(map[string]*Tool, len(data.Tools)),
		armor:       make(map[string]*Armor, len(data.Armor)),
		weapons:     make(map[string]*Weapon, len(data.Weapons)),
		packs:       make(map[string]*Pack, len(data.Packs)),
		spells:      make(map[string]*Spell, len(data.Spells)),
		currencies:  make(map[string]struct{}, len(data.Currencies)),
		languages:   make(map[string]struct{}, len(data.Languages)),
	}

	var dupes []string
	seen := make(map[string]struct{})
	check := func(kind, id string) {
		key := kind + ":" + id
		if _, ok := seen[key]; ok {
			dupes = append(dupes, key)
		}
		seen[key] = struct{}{}
	}

	for i := range c.data.Species {
		s := &c.data.Species[i]
		check(CollectionSpecies, s.ID)
		c.species[s.ID] = s
	}
	for i := range c.data.Backgrounds {
		b := &c.data.Backgrounds[i]
		check(CollectionBackgrounds, b.ID)
		c.backgrounds[b.ID] = b
	}
	for i := range c.data.Classes {
		cl := &c.data.Classes[i]
		check(CollectionClasses, cl.ID)
		c.classes[cl.ID] = cl
	}
	for i := range c.data.Skills {
		s := &c.data.Skills[i]
		check(CollectionSkills, s.ID)
		c.skills[s.ID] = s
	}
	for i := range c.data.Tools {
		t := &c.data.Tools[i]
		c.tools[t.ID] = t
	}
	for i := range c.data.Armor {
		a := &c.data.Armor[i]
		c.armor[a.ID] = a
	}
	for i := range c.data.Weapons {
		w := &c.data.Weapons[i]
		c.weapons[w.ID] = w
	}
	for i := range c.data.Packs {
		p := &c.data.Packs[i]
		c.packs[p.ID] = p
	}
	for i := range c.data.Spells {
		s := &c.data.Spells[i]
		check(CollectionSpells, s.ID)
		c.spells[s.ID] = s
	}
	for _, id := range c.data.Currencies {
		c.currencies[id] = struct{}{}
	}
	for _, name := range c.data.Languages {
		c.languages[name] = struct{}{}
	}

	if len(dupes) > 0 {
		return nil, errors.InvalidArgumentf("catalog has duplicate ids: %s", strings.Join(dupes, ", "))
	}

	for _, cl := range c.data.Classes {
		for _, option := range cl.SkillChoices.Options {
			if _, ok := c.skills[option]; !ok {
				return nil, errors.InvalidArgumentf("class %s offers unknown skill %s", cl.ID, option)
			}
		}
	}

	progressions := make(map[string][]SpellProgression, len(data.SpellProgressions))
	for classID, rows := range data.SpellProgressions {
		sorted := make([]SpellProgression, len(rows))
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })
		progressions[classID] = sorted
	}
	c.data.SpellProgressions = progressions

	return c, nil
}

// Species returns a species by id
func (c *Catalog) Species(id string) (*Species, bool) {
	s, ok := c.species[id]
	return s, ok
}

// Background returns a background by id
func (c *Catalog) Background(id string) (*Background, bool) {
	b, ok := c.backgrounds[id]
	return b, ok
}

// Class returns a class by id
func (c *Catalog) Class(id string) (*Class, bool) {
	cl, ok := c.classes[id]
	return cl, ok
}

// Skill returns a skill by id
func (c *Catalog) Skill(id string) (*Skill, bool) {
	s, ok := c.skills[id]
	return s, ok
}

// HasTool reports whether the tool id exists
func (c *Catalog) HasTool(id string) bool {
	_, ok := c.tools[id]
	return ok
}

// HasArmor reports whether the armor id exists
func (c *Catalog) HasArmor(id string) bool {
	_, ok := c.armor[id]
	return ok
}

// HasWeapon reports whether the weapon id exists
func (c *Catalog) HasWeapon(id string) bool {
	_, ok := c.weapons[id]
	return ok
}

// HasPack reports whether the equipment pack id exists
func (c *Catalog) HasPack(id string) bool {
	_, ok := c.packs[id]
	return ok
}

// HasCurrency reports whether the currency type exists
func (c *Catalog) HasCurrency(id string) bool {
	_, ok := c.currencies[id]
	return ok
}

// HasLanguage reports whether the language exists
func (c *Catalog) HasLanguage(name string) bool {
	_, ok := c.languages[name]
	return ok
}

// Spell returns a spell by id
func (c *Catalog) Spell(id string) (*Spell, bool) {
	s, ok := c.spells[id]
	return s, ok
}

// Progression returns the row of classID's spell table in effect at
// characterLevel: the one with the greatest level not above it.
// Classes without a table, or levels below the first row, return false.
func (c *Catalog) Progression(classID string, characterLevel int) (SpellProgression, bool) {
	var (
		found SpellProgression
		ok    bool
	)
	for _, row := range c.data.SpellProgressions[classID] {
		if row.Level > characterLevel {
			break
		}
		found, ok = row, true
	}
	return found, ok
}

// Collection returns one named collection for read-only listing
func (c *Catalog) Collection(name string) (any, error) {
	switch name {
	case CollectionSpecies:
		return c.data.Species, nil
	case CollectionBackgrounds:
		return c.data.Backgrounds, nil
	case CollectionClasses:
		return c.data.Classes, nil
	case CollectionSkills:
		return c.data.Skills, nil
	case CollectionTools:
		return c.data.Tools, nil
	case CollectionArmor:
		return c.data.Armor, nil
	case CollectionWeapons:
		return c.data.Weapons, nil
	case CollectionPacks:
		return c.data.Packs, nil
	case CollectionCurrency:
		return c.data.Currencies, nil
	case CollectionLanguages:
		return c.data.Languages, nil
	case CollectionSpells:
		return c.data.Spells, nil
	case CollectionSpellSlots:
		return c.data.SpellProgressions, nil
	default:
		return nil, errors.NotFound(fmt.Sprintf("unknown catalog collection %q", name))
	}
}

// Summary returns per-collection sizes, used for load logging
func (c *Catalog) Summary() map[string]int {
	return map[string]int{
		CollectionSpecies:     len(c.data.Species),
		CollectionBackgrounds: len(c.data.Backgrounds),
		CollectionClasses:     len(c.data.Classes),
		CollectionSkills:      len(c.data.Skills),
		CollectionTools:       len(c.data.Tools),
		CollectionArmor:       len(c.data.Armor),
		CollectionWeapons:     len(c.data.Weapons),
		CollectionPacks:       len(c.data.Packs),
		CollectionLanguages:   len(c.data.Languages),
		CollectionSpells:      len(c.data.Spells),
	}
}
