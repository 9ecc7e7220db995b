package dnd5eapi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fadedpez/dnd5e-api/clients/dnd5e"
	"github.com/fadedpez/dnd5e-api/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/rpg-builder/internal/catalog"
	"github.com/KirkDiggler/rpg-builder/internal/catalog/dnd5eapi"
	builderrors "github.com/KirkDiggler/rpg-builder/internal/errors"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListRaces() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockAPI) GetRace(key string) (*entities.Race, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Race), args.Error(1)
}

func (m *mockAPI) ListClasses() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockAPI) GetClass(key string) (*entities.Class, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Class), args.Error(1)
}

func (m *mockAPI) GetClassLevel(key string, level int) (*entities.Level, error) {
	args := m.Called(key, level)
	return args.Get(0).(*entities.Level), args.Error(1)
}

func (m *mockAPI) ListSpells(input *dnd5e.ListSpellsInput) ([]*entities.ReferenceItem, error) {
	args := m.Called(input)
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockAPI) ListSkills() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockAPI) ListBackgrounds() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockAPI) GetEquipmentCategory(key string) (*entities.EquipmentCategory, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.EquipmentCategory), args.Error(1)
}

func fallback() *catalog.Data {
	return &catalog.Data{
		Skills: []catalog.Skill{
			{ID: "arcana", Name: "Arcana", Ability: "intelligence"},
			{ID: "animal_handling", Name: "Animal Handling", Ability: "wisdom"},
		},
		Backgrounds: []catalog.Background{
			{ID: "acolyte", Name: "Acolyte", Skills: []string{"arcana"}, Languages: 2},
		},
		Classes: []catalog.Class{
			{ID: "wizard", Spellcasting: &catalog.Spellcasting{Ability: "intelligence"}},
		},
		Currencies: []string{"cp", "gp"},
		Languages:  []string{"Common", "Elvish"},
	}
}

func spellLevel(level int) interface{} {
	return mock.MatchedBy(func(input *dnd5e.ListSpellsInput) bool {
		return input != nil && input.Level != nil && *input.Level == level && input.Class == "wizard"
	})
}

func setupHappyPath(api *mockAPI) {
	api.On("ListRaces").Return([]*entities.ReferenceItem{{Key: "high-elf", Name: "High Elf"}}, nil)
	api.On("ListClasses").Return([]*entities.ReferenceItem{
		{Key: "wizard", Name: "Wizard"},
		{Key: "fighter", Name: "Fighter"},
	}, nil)
	api.On("ListSkills").Return([]*entities.ReferenceItem{
		{Key: "skill-arcana", Name: "Arcana"},
		{Key: "skill-animal-handling", Name: "Animal Handling"},
	}, nil)
	api.On("ListBackgrounds").Return([]*entities.ReferenceItem{{Key: "acolyte", Name: "Acolyte"}}, nil)

	api.On("GetEquipmentCategory", "weapon").Return(&entities.EquipmentCategory{
		Equipment: []*entities.ReferenceItem{{Key: "longsword", Name: "Longsword"}},
	}, nil)
	api.On("GetEquipmentCategory", "armor").Return(&entities.EquipmentCategory{
		Equipment: []*entities.ReferenceItem{{Key: "chain-mail", Name: "Chain Mail"}},
	}, nil)
	api.On("GetEquipmentCategory", "tools").Return(&entities.EquipmentCategory{
		Equipment: []*entities.ReferenceItem{{Key: "thieves-tools", Name: "Thieves' Tools"}},
	}, nil)
	api.On("GetEquipmentCategory", "equipment-packs").Return(&entities.EquipmentCategory{
		Equipment: []*entities.ReferenceItem{{Key: "explorers-pack", Name: "Explorer's Pack"}},
	}, nil)

	api.On("GetRace", "high-elf").Return(&entities.Race{
		Key:   "high-elf",
		Name:  "High Elf",
		Speed: 30,
		Size:  "Medium",
		AbilityBonuses: []*entities.AbilityBonus{
			{AbilityScore: &entities.ReferenceItem{Key: "dex"}, Bonus: 2},
		},
	}, nil)

	api.On("GetClass", "wizard").Return(&entities.Class{
		Key:          "wizard",
		Name:         "Wizard",
		HitDie:       6,
		SavingThrows: []*entities.ReferenceItem{{Key: "int"}, {Key: "wis"}},
		ProficiencyChoices: []*entities.ChoiceOption{{
			ChoiceCount: 1,
			OptionList: &entities.OptionList{Options: []entities.Option{
				&entities.ReferenceOption{Reference: &entities.ReferenceItem{Key: "skill-arcana"}},
				&entities.ReferenceOption{Reference: &entities.ReferenceItem{Key: "skill-animal-handling"}},
			}},
		}},
	}, nil)
	api.On("GetClass", "fighter").Return(&entities.Class{Key: "fighter", Name: "Fighter", HitDie: 10}, nil)
	api.On("GetClassLevel", "fighter", mock.Anything).Return(&entities.Level{}, nil)

	api.On("GetClassLevel", "wizard", 1).Return(&entities.Level{
		SpellCasting: &entities.SpellCasting{CantripsKnown: 3, SpellSlotsLevel1: 2},
	}, nil)
	api.On("GetClassLevel", "wizard", mock.MatchedBy(func(level int) bool { return level > 1 })).
		Return((*entities.Level)(nil), nil)

	api.On("ListSpells", spellLevel(0)).Return([]*entities.ReferenceItem{{Key: "fire-bolt", Name: "Fire Bolt"}}, nil)
	api.On("ListSpells", spellLevel(1)).Return([]*entities.ReferenceItem{{Key: "magic-missile", Name: "Magic Missile"}}, nil)
	api.On("ListSpells", mock.Anything).Return([]*entities.ReferenceItem{}, nil)
}

func TestFetch(t *testing.T) {
	api := new(mockAPI)
	setupHappyPath(api)

	source, err := dnd5eapi.New(&dnd5eapi.Config{Client: api, Fallback: fallback()})
	require.NoError(t, err)

	data, err := source.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, data.Species, 1)
	assert.Equal(t, "high_elf", data.Species[0].ID)
	assert.Equal(t, "medium", data.Species[0].Size)
	assert.Equal(t, 2, data.Species[0].Abilities["dexterity"])

	require.Len(t, data.Skills, 2)
	assert.Equal(t, "animal_handling", data.Skills[1].ID)
	assert.Equal(t, "wisdom", data.Skills[1].Ability)

	// Backgrounds known to the fallback keep their grants
	require.Len(t, data.Backgrounds, 1)
	assert.Equal(t, []string{"arcana"}, data.Backgrounds[0].Skills)

	assert.Equal(t, "chain_mail", data.Armor[0].ID)
	assert.Equal(t, "thieves_tools", data.Tools[0].ID)
	assert.Equal(t, []string{"Common", "Elvish"}, data.Languages)

	var wizard catalog.Class
	for _, class := range data.Classes {
		if class.ID == "wizard" {
			wizard = class
		}
	}
	require.NotNil(t, wizard.Spellcasting)
	assert.Equal(t, "intelligence", wizard.Spellcasting.Ability)
	assert.Equal(t, []string{"intelligence", "wisdom"}, wizard.SavingThrows)
	assert.Equal(t, 1, wizard.SkillChoices.Count)
	assert.Equal(t, []string{"arcana", "animal_handling"}, wizard.SkillChoices.Options)

	rows := data.SpellProgressions["wizard"]
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Cantrips)
	assert.Equal(t, 6, rows[0].Known)
	assert.True(t, rows[0].HasSlot(1))
	assert.NotContains(t, data.SpellProgressions, "fighter")

	require.Len(t, data.Spells, 2)
	assert.Equal(t, "fire_bolt", data.Spells[0].ID)
	assert.Equal(t, 0, data.Spells[0].Level)
	assert.Equal(t, []string{"wizard"}, data.Spells[0].Classes)
	assert.Equal(t, 1, data.Spells[1].Level)

	// The result must index cleanly
	c, err := catalog.New(*data)
	require.NoError(t, err)
	_, ok := c.Progression("wizard", 4)
	assert.True(t, ok)
}

func TestFetchSlotsAndLateCasters(t *testing.T) {
	api := new(mockAPI)
	api.On("ListRaces").Return([]*entities.ReferenceItem{}, nil)
	api.On("ListClasses").Return([]*entities.ReferenceItem{
		{Key: "wizard", Name: "Wizard"},
		{Key: "paladin", Name: "Paladin"},
	}, nil)
	api.On("ListSkills").Return([]*entities.ReferenceItem{}, nil)
	api.On("ListBackgrounds").Return([]*entities.ReferenceItem{}, nil)
	api.On("GetEquipmentCategory", mock.Anything).Return(&entities.EquipmentCategory{}, nil)
	api.On("GetClass", "wizard").Return(&entities.Class{Key: "wizard", Name: "Wizard", HitDie: 6}, nil)
	api.On("GetClass", "paladin").Return(&entities.Class{Key: "paladin", Name: "Paladin", HitDie: 10}, nil)

	api.On("GetClassLevel", "wizard", 5).Return(&entities.Level{
		SpellCasting: &entities.SpellCasting{
			CantripsKnown:    4,
			SpellSlotsLevel1: 4,
			SpellSlotsLevel2: 3,
			SpellSlotsLevel3: 2,
		},
	}, nil)
	api.On("GetClassLevel", "wizard", mock.Anything).Return((*entities.Level)(nil), nil)

	// Paladins have no spellcasting until level 2
	api.On("GetClassLevel", "paladin", 1).Return(&entities.Level{}, nil)
	api.On("GetClassLevel", "paladin", 2).Return(&entities.Level{
		SpellCasting: &entities.SpellCasting{SpellSlotsLevel1: 2},
	}, nil)
	api.On("GetClassLevel", "paladin", mock.Anything).Return((*entities.Level)(nil), nil)

	api.On("ListSpells", mock.MatchedBy(func(input *dnd5e.ListSpellsInput) bool {
		return input != nil && input.Level != nil && *input.Level == 1 && input.Class == "paladin"
	})).Return([]*entities.ReferenceItem{{Key: "bless", Name: "Bless"}}, nil)
	api.On("ListSpells", mock.Anything).Return([]*entities.ReferenceItem{}, nil)

	source, err := dnd5eapi.New(&dnd5eapi.Config{Client: api, Fallback: fallback()})
	require.NoError(t, err)

	data, err := source.Fetch(context.Background())
	require.NoError(t, err)

	wizard := data.SpellProgressions["wizard"]
	require.Len(t, wizard, 1)
	assert.Equal(t, 5, wizard[0].Level)
	assert.True(t, wizard[0].HasSlot(1))
	assert.True(t, wizard[0].HasSlot(2))
	assert.True(t, wizard[0].HasSlot(3))
	assert.False(t, wizard[0].HasSlot(4))
	assert.Equal(t, 3, wizard[0].Slots[2])

	paladin := data.SpellProgressions["paladin"]
	require.Len(t, paladin, 1)
	assert.Equal(t, 2, paladin[0].Level)
	assert.True(t, paladin[0].HasSlot(1))

	for _, class := range data.Classes {
		if class.ID == "paladin" {
			assert.NotNil(t, class.Spellcasting)
		}
	}

	require.Len(t, data.Spells, 1)
	assert.Equal(t, "bless", data.Spells[0].ID)
	assert.Equal(t, []string{"paladin"}, data.Spells[0].Classes)

	c, err := catalog.New(*data)
	require.NoError(t, err)
	_, ok := c.Progression("paladin", 1)
	assert.False(t, ok)
	_, ok = c.Progression("paladin", 3)
	assert.True(t, ok)
}

func TestFetchListFailure(t *testing.T) {
	api := new(mockAPI)
	api.On("ListRaces").Return(([]*entities.ReferenceItem)(nil), errors.New("API error"))
	api.On("ListClasses").Return([]*entities.ReferenceItem{}, nil).Maybe()
	api.On("ListSkills").Return([]*entities.ReferenceItem{}, nil).Maybe()
	api.On("ListBackgrounds").Return([]*entities.ReferenceItem{}, nil).Maybe()
	api.On("GetEquipmentCategory", mock.Anything).Return(&entities.EquipmentCategory{}, nil).Maybe()

	source, err := dnd5eapi.New(&dnd5eapi.Config{Client: api, Fallback: fallback()})
	require.NoError(t, err)

	data, err := source.Fetch(context.Background())
	assert.Nil(t, data)
	assert.True(t, builderrors.IsUnavailable(err))
	assert.Contains(t, err.Error(), "API error")
}

func TestFetchDetailFailure(t *testing.T) {
	api := new(mockAPI)
	api.On("ListRaces").Return([]*entities.ReferenceItem{}, nil)
	api.On("ListClasses").Return([]*entities.ReferenceItem{{Key: "wizard", Name: "Wizard"}}, nil)
	api.On("ListSkills").Return([]*entities.ReferenceItem{}, nil)
	api.On("ListBackgrounds").Return([]*entities.ReferenceItem{}, nil)
	api.On("GetEquipmentCategory", mock.Anything).Return(&entities.EquipmentCategory{}, nil)
	api.On("GetClass", "wizard").Return((*entities.Class)(nil), errors.New("timeout"))
	api.On("GetClassLevel", "wizard", mock.Anything).Return(&entities.Level{}, nil).Maybe()

	source, err := dnd5eapi.New(&dnd5eapi.Config{Client: api, Fallback: fallback()})
	require.NoError(t, err)

	_, err = source.Fetch(context.Background())
	assert.True(t, builderrors.IsUnavailable(err))
	api.AssertExpectations(t)
}

func TestFetchCanceled(t *testing.T) {
	api := new(mockAPI)
	api.On("ListRaces").Return([]*entities.ReferenceItem{}, nil).Maybe()
	api.On("ListClasses").Return([]*entities.ReferenceItem{}, nil).Maybe()
	api.On("ListSkills").Return([]*entities.ReferenceItem{}, nil).Maybe()
	api.On("ListBackgrounds").Return([]*entities.ReferenceItem{}, nil).Maybe()
	api.On("GetEquipmentCategory", mock.Anything).Return(&entities.EquipmentCategory{}, nil).Maybe()

	source, err := dnd5eapi.New(&dnd5eapi.Config{Client: api, Fallback: fallback()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = source.Fetch(ctx)
	assert.Error(t, err)
}
