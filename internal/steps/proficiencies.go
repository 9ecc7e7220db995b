package steps

import (
	"fmt"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

func proficienciesStep() *Definition {
	return define(entities.StepProficiencies, validateProficiencies, proficienciesComplete)
}

// skillOptions is the option set of the selected class, empty without one
func skillOptions(sc *Context) (map[string]struct{}, int) {
	class, ok := selectedClass(sc)
	if !ok {
		return map[string]struct{}{}, 0
	}
	options := make(map[string]struct{}, len(class.SkillChoices.Options))
	for _, id := range class.SkillChoices.Options {
		options[id] = struct{}{}
	}
	return options, class.SkillChoices.Count
}

func validateProficiencies(p *entities.ProficienciesPayload, sc *Context, vb *errors.ValidationBuilder) *entities.ProficienciesPayload {
	c := sc.Catalog
	options, count := skillOptions(sc)

	skills := make([]string, 0, len(p.Skills))
	seen := make(map[string]struct{}, len(p.Skills))
	for i, id := range p.Skills {
		field := fmt.Sprintf("skills[%d]", i)
		if _, dup := seen[id]; dup {
			vb.Violationf(field, errors.ReasonDuplicate, "%q selected more than once", id)
			continue
		}
		seen[id] = struct{}{}

		if _, ok := c.Skill(id); !ok {
			vb.UnknownID(field, id)
			continue
		}
		if _, ok := options[id]; !ok {
			vb.Violationf(field, errors.ReasonInvalidSelection, "%q is not a skill option of the selected class", id)
			continue
		}
		skills = append(skills, id)
	}

	if len(seen) > count {
		vb.Violationf("skills", errors.ReasonTooMany, "at most %d skills may be chosen, got %d", count, len(seen))
	}

	tools := collect("tools", p.Tools, false, c.HasTool, vb)

	expertise := make([]string, 0, len(p.Expertise))
	picked := make(map[string]struct{}, len(p.Expertise))
	for i, id := range p.Expertise {
		if _, dup := picked[id]; dup {
			continue
		}
		picked[id] = struct{}{}
		if _, ok := seen[id]; !ok {
			vb.Violationf(fmt.Sprintf("expertise[%d]", i), errors.ReasonNotProficient,
				"expertise in %q requires proficiency in it", id)
			continue
		}
		expertise = append(expertise, id)
	}

	return &entities.ProficienciesPayload{
		Skills:    skills,
		Tools:     tools,
		Expertise: expertise,
	}
}

// Complete once the selected class's full skill allowance is picked from its options
func proficienciesComplete(p *entities.ProficienciesPayload, sc *Context) bool {
	if _, ok := selectedClass(sc); !ok {
		return false
	}
	options, count := skillOptions(sc)
	if len(p.Skills) != count {
		return false
	}
	for _, id := range p.Skills {
		if _, ok := options[id]; !ok {
			return false
		}
	}
	return true
}
