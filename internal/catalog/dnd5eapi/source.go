// Package dnd5eapi builds a catalog from the D&D 5e SRD API
package dnd5eapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fadedpez/dnd5e-api/clients/dnd5e"
	"github.com/fadedpez/dnd5e-api/entities"
	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/rpg-builder/internal/catalog"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

const (
	maxCharacterLevel = 20
	maxSpellLevel     = 9

	// preparedAllowance bounds the spellcasting modifier a new character can
	// have; the API has no prepared-spell column so casters that prepare get
	// level plus this many.
	preparedAllowance = 5
)

// Equipment category keys in the SRD API
const (
	categoryWeapons = "weapon"
	categoryArmor   = "armor"
	categoryTools   = "tools"
	categoryPacks   = "equipment-packs"
)

var abilityNames = map[string]string{
	"str": "strength",
	"dex": "dexterity",
	"con": "constitution",
	"int": "intelligence",
	"wis": "wisdom",
	"cha": "charisma",
}

// API is the part of dnd5e.Interface the source reads from
type API interface {
	ListRaces() ([]*entities.ReferenceItem, error)
	GetRace(key string) (*entities.Race, error)
	ListClasses() ([]*entities.ReferenceItem, error)
	GetClass(key string) (*entities.Class, error)
	GetClassLevel(key string, level int) (*entities.Level, error)
	ListSpells(input *dnd5e.ListSpellsInput) ([]*entities.ReferenceItem, error)
	ListSkills() ([]*entities.ReferenceItem, error)
	ListBackgrounds() ([]*entities.ReferenceItem, error)
	GetEquipmentCategory(key string) (*entities.EquipmentCategory, error)
}

// Config contains configuration options for the API source
type Config struct {
	// BaseURL for the D&D 5e API (optional, defaults to https://www.dnd5eapi.co/api/2014/)
	BaseURL string
	// HTTPTimeout for API requests (optional, defaults to 30 seconds)
	HTTPTimeout time.Duration
	// CacheTTL for the cached client (optional, defaults to 24 hours)
	CacheTTL time.Duration
	// Concurrency caps in-flight requests (optional, defaults to 8)
	Concurrency int
	// Fallback supplies collections the API does not expose, such as
	// languages and currencies (optional, defaults to the builtin dataset)
	Fallback *catalog.Data
	// Client overrides the HTTP client, mainly for tests
	Client API
}

// Validate validates the Config and sets defaults if not provided.
func (cfg *Config) Validate() error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.dnd5eapi.co/api/2014/"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return nil
}

type source struct {
	api         API
	fallback    *catalog.Data
	concurrency int
}

// New creates a catalog source backed by the SRD API
func New(cfg *Config) (catalog.Source, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	api := cfg.Client
	if api == nil {
		baseClient, err := dnd5e.NewDND5eAPI(&dnd5e.DND5eAPIConfig{
			Client:  &http.Client{Timeout: cfg.HTTPTimeout},
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create D&D 5e API client: %w", err)
		}
		api = dnd5e.NewCachedClient(baseClient, cfg.CacheTTL)
	}

	fallback := cfg.Fallback
	if fallback == nil {
		data, err := catalog.BuiltinData()
		if err != nil {
			return nil, err
		}
		fallback = data
	}

	return &source{
		api:         api,
		fallback:    fallback,
		concurrency: cfg.Concurrency,
	}, nil
}

type listing struct {
	races       []*entities.ReferenceItem
	classes     []*entities.ReferenceItem
	skills      []*entities.ReferenceItem
	backgrounds []*entities.ReferenceItem
	categories  map[string][]*entities.ReferenceItem
}

func (s *source) Fetch(ctx context.Context) (*catalog.Data, error) {
	start := time.Now()

	refs, err := s.list(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to list reference data")
	}

	data := &catalog.Data{
		Skills:      s.skills(refs.skills),
		Backgrounds: s.backgrounds(refs.backgrounds),
		Tools:       s.tools(refs.categories[categoryTools]),
		Armor:       s.armor(refs.categories[categoryArmor]),
		Weapons:     s.weapons(refs.categories[categoryWeapons]),
		Packs:       s.packs(refs.categories[categoryPacks]),
		Currencies:  s.fallback.Currencies,
		Languages:   s.fallback.Languages,
	}

	if err := s.details(ctx, refs, data); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to load reference details")
	}

	slog.Info("fetched catalog from D&D 5e API",
		"duration", time.Since(start),
		"classes", len(data.Classes),
		"spells", len(data.Spells))

	return data, nil
}

// list fetches every top-level collection in parallel
func (s *source) list(ctx context.Context) (*listing, error) {
	out := &listing{categories: make(map[string][]*entities.ReferenceItem)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	fetch := func(name string, call func() ([]*entities.ReferenceItem, error), dst *[]*entities.ReferenceItem) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items, err := call()
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", name, err)
			}
			*dst = items
			return nil
		})
	}

	fetch("races", s.api.ListRaces, &out.races)
	fetch("classes", s.api.ListClasses, &out.classes)
	fetch("skills", s.api.ListSkills, &out.skills)
	fetch("backgrounds", s.api.ListBackgrounds, &out.backgrounds)

	for _, key := range []string{categoryWeapons, categoryArmor, categoryTools, categoryPacks} {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			category, err := s.api.GetEquipmentCategory(key)
			if err != nil {
				return fmt.Errorf("failed to get equipment category %s: %w", key, err)
			}
			if category == nil {
				return nil
			}
			mu.Lock()
			out.categories[key] = category.Equipment
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// details resolves races, classes, spell tables and spell lists
func (s *source) details(ctx context.Context, refs *listing, data *catalog.Data) error {
	species := make([]catalog.Species, len(refs.races))
	classes := make([]catalog.Class, len(refs.classes))
	rows := make([][]*entities.Level, len(refs.classes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, ref := range refs.races {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			race, err := s.api.GetRace(ref.Key)
			if err != nil {
				return fmt.Errorf("failed to get race %s: %w", ref.Key, err)
			}
			species[i] = toSpecies(ref, race)
			return nil
		})
	}

	for i, ref := range refs.classes {
		rows[i] = make([]*entities.Level, maxCharacterLevel)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			class, err := s.api.GetClass(ref.Key)
			if err != nil {
				return fmt.Errorf("failed to get class %s: %w", ref.Key, err)
			}
			classes[i] = s.toClass(ref, class)
			return nil
		})

		// Half casters such as paladin and ranger gain spellcasting after
		// level 1, so every class reads its whole table
		for level := 1; level <= maxCharacterLevel; level++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				row, err := s.api.GetClassLevel(ref.Key, level)
				if err != nil {
					return fmt.Errorf("failed to get %s level %d: %w", ref.Key, level, err)
				}
				rows[i][level-1] = row
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}

	data.Species = species
	data.Classes = classes
	data.SpellProgressions = make(map[string][]catalog.SpellProgression)

	casters := make([]bool, len(classes))
	for i := range classes {
		for level, row := range rows[i] {
			progression, ok := toProgression(level+1, row)
			if !ok {
				continue
			}
			casters[i] = true
			data.SpellProgressions[classes[i].ID] = append(data.SpellProgressions[classes[i].ID], progression)
		}
		if casters[i] && classes[i].Spellcasting == nil {
			classes[i].Spellcasting = &catalog.Spellcasting{}
		}
	}

	var (
		mu     sync.Mutex
		spells = make(map[string]*catalog.Spell)
	)

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, ref := range refs.classes {
		if !casters[i] {
			continue
		}
		classID := classes[i].ID

		for spellLevel := 0; spellLevel <= maxSpellLevel; spellLevel++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				items, err := s.api.ListSpells(&dnd5e.ListSpellsInput{Level: &spellLevel, Class: ref.Key})
				if err != nil {
					return fmt.Errorf("failed to list %s level %d spells: %w", ref.Key, spellLevel, err)
				}
				mu.Lock()
				defer mu.Unlock()
				for _, item := range items {
					id := normalizeID(item.Key)
					spell, ok := spells[id]
					if !ok {
						spell = &catalog.Spell{ID: id, Name: item.Name, Level: spellLevel}
						spells[id] = spell
					}
					spell.Classes = append(spell.Classes, classID)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}

	data.Spells = make([]catalog.Spell, 0, len(spells))
	for _, spell := range spells {
		sort.Strings(spell.Classes)
		data.Spells = append(data.Spells, *spell)
	}
	sort.Slice(data.Spells, func(i, j int) bool { return data.Spells[i].ID < data.Spells[j].ID })

	return nil
}

func (s *source) skills(refs []*entities.ReferenceItem) []catalog.Skill {
	known := make(map[string]catalog.Skill, len(s.fallback.Skills))
	for _, skill := range s.fallback.Skills {
		known[skill.ID] = skill
	}

	out := make([]catalog.Skill, 0, len(refs))
	for _, ref := range refs {
		id := normalizeID(ref.Key)
		skill := catalog.Skill{ID: id, Name: ref.Name}
		if fb, ok := known[id]; ok {
			skill.Ability = fb.Ability
		}
		out = append(out, skill)
	}
	return out
}

func (s *source) backgrounds(refs []*entities.ReferenceItem) []catalog.Background {
	known := make(map[string]catalog.Background, len(s.fallback.Backgrounds))
	for _, bg := range s.fallback.Backgrounds {
		known[bg.ID] = bg
	}

	out := make([]catalog.Background, 0, len(refs))
	for _, ref := range refs {
		id := normalizeID(ref.Key)
		if fb, ok := known[id]; ok {
			out = append(out, fb)
			continue
		}
		out = append(out, catalog.Background{ID: id, Name: ref.Name})
	}
	return out
}

func (s *source) tools(refs []*entities.ReferenceItem) []catalog.Tool {
	out := make([]catalog.Tool, 0, len(refs))
	for _, ref := range refs {
		out = append(out, catalog.Tool{ID: normalizeID(ref.Key), Name: ref.Name})
	}
	return out
}

func (s *source) armor(refs []*entities.ReferenceItem) []catalog.Armor {
	known := make(map[string]catalog.Armor, len(s.fallback.Armor))
	for _, a := range s.fallback.Armor {
		known[a.ID] = a
	}

	out := make([]catalog.Armor, 0, len(refs))
	for _, ref := range refs {
		id := normalizeID(ref.Key)
		if fb, ok := known[id]; ok {
			out = append(out, fb)
			continue
		}
		out = append(out, catalog.Armor{ID: id, Name: ref.Name})
	}
	return out
}

func (s *source) weapons(refs []*entities.ReferenceItem) []catalog.Weapon {
	known := make(map[string]catalog.Weapon, len(s.fallback.Weapons))
	for _, w := range s.fallback.Weapons {
		known[w.ID] = w
	}

	out := make([]catalog.Weapon, 0, len(refs))
	for _, ref := range refs {
		id := normalizeID(ref.Key)
		if fb, ok := known[id]; ok {
			out = append(out, fb)
			continue
		}
		out = append(out, catalog.Weapon{ID: id, Name: ref.Name})
	}
	return out
}

func (s *source) packs(refs []*entities.ReferenceItem) []catalog.Pack {
	known := make(map[string]catalog.Pack, len(s.fallback.Packs))
	for _, p := range s.fallback.Packs {
		known[p.ID] = p
	}

	out := make([]catalog.Pack, 0, len(refs))
	for _, ref := range refs {
		id := normalizeID(ref.Key)
		if fb, ok := known[id]; ok {
			out = append(out, fb)
			continue
		}
		out = append(out, catalog.Pack{ID: id, Name: ref.Name})
	}
	return out
}

func toSpecies(ref *entities.ReferenceItem, race *entities.Race) catalog.Species {
	species := catalog.Species{ID: normalizeID(ref.Key), Name: ref.Name}
	if race == nil {
		return species
	}

	species.Speed = race.Speed
	species.Size = strings.ToLower(race.Size)

	if len(race.AbilityBonuses) > 0 {
		species.Abilities = make(map[string]int, len(race.AbilityBonuses))
		for _, bonus := range race.AbilityBonuses {
			if bonus == nil || bonus.AbilityScore == nil {
				continue
			}
			name, ok := abilityNames[bonus.AbilityScore.Key]
			if !ok {
				name = bonus.AbilityScore.Key
			}
			species.Abilities[name] = bonus.Bonus
		}
	}

	for _, lang := range race.Languages {
		if lang != nil {
			species.Languages = append(species.Languages, lang.Name)
		}
	}

	return species
}

func (s *source) toClass(ref *entities.ReferenceItem, class *entities.Class) catalog.Class {
	out := catalog.Class{ID: normalizeID(ref.Key), Name: ref.Name}
	for _, fb := range s.fallback.Classes {
		if fb.ID == out.ID {
			out.PrimaryAbilities = fb.PrimaryAbilities
			out.Spellcasting = fb.Spellcasting
		}
	}
	if class == nil {
		return out
	}

	out.HitDie = class.HitDie
	for _, st := range class.SavingThrows {
		if st == nil {
			continue
		}
		if name, ok := abilityNames[st.Key]; ok {
			out.SavingThrows = append(out.SavingThrows, name)
		}
	}

	// Skill picks arrive as proficiency choices whose options reference "skill-*" keys
	for _, choice := range class.ProficiencyChoices {
		if choice == nil || choice.OptionList == nil {
			continue
		}
		var options []string
		for _, option := range choice.OptionList.Options {
			refOpt, ok := option.(*entities.ReferenceOption)
			if !ok || refOpt.Reference == nil {
				continue
			}
			if strings.HasPrefix(refOpt.Reference.Key, "skill-") {
				options = append(options, normalizeID(refOpt.Reference.Key))
			}
		}
		if len(options) > 0 {
			out.SkillChoices = catalog.SkillChoices{Count: choice.ChoiceCount, Options: options}
			break
		}
	}

	return out
}

func toProgression(level int, row *entities.Level) (catalog.SpellProgression, bool) {
	if row == nil || row.SpellCasting == nil {
		return catalog.SpellProgression{}, false
	}

	sc := row.SpellCasting
	slots := map[int]int{}
	for spellLevel, count := range []int{
		sc.SpellSlotsLevel1, sc.SpellSlotsLevel2, sc.SpellSlotsLevel3,
		sc.SpellSlotsLevel4, sc.SpellSlotsLevel5, sc.SpellSlotsLevel6,
		sc.SpellSlotsLevel7, sc.SpellSlotsLevel8, sc.SpellSlotsLevel9,
	} {
		if count > 0 {
			slots[spellLevel+1] = count
		}
	}
	if sc.CantripsKnown == 0 && sc.SpellsKnown == 0 && len(slots) == 0 {
		return catalog.SpellProgression{}, false
	}

	progression := catalog.SpellProgression{
		Level:    level,
		Cantrips: sc.CantripsKnown,
		Known:    sc.SpellsKnown,
		Prepared: sc.SpellsKnown,
		Slots:    slots,
	}
	if progression.Known == 0 {
		progression.Known = level + preparedAllowance
		progression.Prepared = level + preparedAllowance
	}
	return progression, true
}

// normalizeID maps API keys such as "skill-animal-handling" onto catalog ids
func normalizeID(key string) string {
	key = strings.TrimPrefix(key, "skill-")
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}
