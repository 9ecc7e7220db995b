package catalog

// Data is the raw reference dataset a Source produces.
// Identifiers are lower snake_case throughout.
type Data struct {
	Species           []Species                     `yaml:"species" json:"species"`
	Backgrounds       []Background                  `yaml:"backgrounds" json:"backgrounds"`
	Classes           []Class                       `yaml:"classes" json:"classes"`
	Skills            []Skill                       `yaml:"skills" json:"skills"`
	Tools             []Tool                        `yaml:"tools" json:"tools"`
	Armor             []Armor                       `yaml:"armor" json:"armor"`
	Weapons           []Weapon                      `yaml:"weapons" json:"weapons"`
	Packs             []Pack                        `yaml:"equipment_packs" json:"equipment_packs"`
	Currencies        []string                      `yaml:"currencies" json:"currencies"`
	Languages         []string                      `yaml:"languages" json:"languages"`
	Spells            []Spell                       `yaml:"spells" json:"spells"`
	SpellProgressions map[string][]SpellProgression `yaml:"spell_progressions" json:"spell_progressions"`
}

// Species is a playable ancestry
type Species struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Speed     int            `yaml:"speed" json:"speed"`
	Size      string         `yaml:"size" json:"size"`
	Abilities map[string]int `yaml:"abilities" json:"abilities,omitempty"`
	Languages []string       `yaml:"languages" json:"languages,omitempty"`
	Traits    []string       `yaml:"traits" json:"traits,omitempty"`
}

// Background grants fixed skills and tools
type Background struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Skills    []string `yaml:"skills" json:"skills,omitempty"`
	Tools     []string `yaml:"tools" json:"tools,omitempty"`
	Languages int      `yaml:"languages" json:"languages,omitempty"`
	Feature   string   `yaml:"feature" json:"feature,omitempty"`
}

// SkillChoices is how many skills a class picks and from which options
type SkillChoices struct {
	Count   int      `yaml:"count" json:"count"`
	Options []string `yaml:"options" json:"options"`
}

// Spellcasting marks a class as a caster
type Spellcasting struct {
	Ability string `yaml:"ability" json:"ability"`
}

// Class is a character class with its proficiency rules
type Class struct {
	ID               string        `yaml:"id" json:"id"`
	Name             string        `yaml:"name" json:"name"`
	HitDie           int           `yaml:"hit_die" json:"hit_die"`
	PrimaryAbilities []string      `yaml:"primary_abilities" json:"primary_abilities,omitempty"`
	SavingThrows     []string      `yaml:"saving_throws" json:"saving_throws,omitempty"`
	Spellcasting     *Spellcasting `yaml:"spellcasting" json:"spellcasting,omitempty"`
	SkillChoices     SkillChoices  `yaml:"skill_choices" json:"skill_choices"`
}

// Skill is a proficiency keyed to an ability
type Skill struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Ability string `yaml:"ability" json:"ability"`
}

// Tool is a tool proficiency
type Tool struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Armor is a wearable armor entry
type Armor struct {
	ID   string         `yaml:"id" json:"id"`
	Name string         `yaml:"name" json:"name"`
	Type string         `yaml:"type" json:"type"`
	AC   int            `yaml:"ac" json:"ac"`
	Cost map[string]int `yaml:"cost" json:"cost,omitempty"`
}

// Weapon is a weapon entry
type Weapon struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Damage string `yaml:"damage" json:"damage"`
	Type   string `yaml:"type" json:"type"`
}

// PackItem is one line of an equipment pack
type PackItem struct {
	Item     string `yaml:"item" json:"item"`
	Quantity int    `yaml:"quantity" json:"quantity"`
}

// Pack is a bundled equipment pack
type Pack struct {
	ID       string     `yaml:"id" json:"id"`
	Name     string     `yaml:"name" json:"name"`
	Contents []PackItem `yaml:"contents" json:"contents,omitempty"`
}

// Spell is a castable spell. Level 0 is a cantrip.
type Spell struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Level       int      `yaml:"level" json:"level"`
	School      string   `yaml:"school" json:"school,omitempty"`
	Classes     []string `yaml:"classes" json:"classes"`
	CastingTime string   `yaml:"casting_time" json:"casting_time,omitempty"`
	Range       string   `yaml:"range" json:"range,omitempty"`
	Components  []string `yaml:"components" json:"components,omitempty"`
	Duration    string   `yaml:"duration" json:"duration,omitempty"`
}

// SpellProgression is one row of a class's spellcasting table.
// Slots maps spell level to the number of slots at that character level.
type SpellProgression struct {
	Level    int         `yaml:"level" json:"level"`
	Cantrips int         `yaml:"cantrips" json:"cantrips"`
	Known    int         `yaml:"known" json:"known"`
	Prepared int         `yaml:"prepared" json:"prepared"`
	Slots    map[int]int `yaml:"slots" json:"slots"`
}

// HasSlot reports whether the row grants at least one slot of spellLevel
func (p SpellProgression) HasSlot(spellLevel int) bool {
	return p.Slots[spellLevel] > 0
}
