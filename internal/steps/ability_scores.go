package steps

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

// Variant flags read by the ability score step
const (
	FlagStrictStandardArray = "strict_standard_array"
	FlagPointBuyBudget      = "point_buy_budget"
)

// PointBuyBudget is the total cost allowed when the budget flag is on
const PointBuyBudget = 27

var (
	standardArray = []int{15, 14, 13, 12, 10, 8}

	pointBuyCosts = map[int]int{8: 0, 9: 1, 10: 2, 11: 3, 12: 4, 13: 5, 14: 7, 15: 9}

	methodBounds = map[string][2]int{
		entities.MethodStandardArray: {8, 15},
		entities.MethodPointBuy:      {8, 15},
		entities.MethodManual:        {3, 18},
	}
)

// Modifier returns floor((score-10)/2)
func Modifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

func abilityScoresStep() *Definition {
	return define(entities.StepAbilityScores, validateAbilityScores, abilityScoresComplete)
}

func validateAbilityScores(p *entities.AbilityScoresPayload, sc *Context, vb *errors.ValidationBuilder) *entities.AbilityScoresPayload {
	method := entities.NormalizeMethod(p.Method)
	bounds, knownMethod := methodBounds[method]
	switch {
	case method == "":
		vb.RequiredField("method")
	case !knownMethod:
		vb.Violationf("method", errors.ReasonInvalidValue,
			"must be one of %s, %s or %s", entities.MethodStandardArray, entities.MethodPointBuy, entities.MethodManual)
	}

	if len(p.Scores) == 0 {
		vb.RequiredField("scores")
		return nil
	}

	scores := make(entities.AbilityScores, len(entities.AbilityNames))
	keys := make([]string, 0, len(p.Scores))
	for key := range p.Scores {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := strings.ToLower(strings.TrimSpace(key))
		field := "scores." + key
		if !slices.Contains(entities.AbilityNames, name) {
			vb.Violationf(field, errors.ReasonUnknownField, "unknown ability %q", key)
			continue
		}
		if _, dup := scores[name]; dup {
			vb.Violationf(field, errors.ReasonDuplicate, "ability %q given more than once", name)
			continue
		}
		scores[name] = p.Scores[key]
	}

	for _, name := range entities.AbilityNames {
		score, ok := scores[name]
		if !ok {
			vb.RequiredField("scores." + name)
			continue
		}
		if knownMethod && (score < bounds[0] || score > bounds[1]) {
			vb.Violationf("scores."+name, errors.ReasonOutOfRange,
				"%s scores must be between %d and %d", method, bounds[0], bounds[1])
		}
	}

	if vb.HasErrors() {
		return nil
	}

	if method == entities.MethodStandardArray && entities.Flag(sc.VariantFlags, FlagStrictStandardArray) {
		if !isStandardArray(scores) {
			vb.Violation("scores", errors.ReasonInvalidValue,
				fmt.Sprintf("standard array must use %v exactly once each", standardArray))
		}
	}
	if method == entities.MethodPointBuy && entities.Flag(sc.VariantFlags, FlagPointBuyBudget) {
		if cost := pointBuyCost(scores); cost > PointBuyBudget {
			vb.Violationf("scores", errors.ReasonOutOfRange,
				"point buy costs %d, more than the %d point budget", cost, PointBuyBudget)
		}
	}

	modifiers := make(map[string]int, len(scores))
	for name, score := range scores {
		modifiers[name] = Modifier(score)
	}

	return &entities.AbilityScoresPayload{
		Method:    method,
		Scores:    scores,
		Modifiers: modifiers,
	}
}

func abilityScoresComplete(p *entities.AbilityScoresPayload, _ *Context) bool {
	bounds, ok := methodBounds[p.Method]
	if !ok {
		return false
	}
	for _, name := range entities.AbilityNames {
		score, present := p.Scores[name]
		if !present || score < bounds[0] || score > bounds[1] {
			return false
		}
	}
	return true
}

func isStandardArray(scores entities.AbilityScores) bool {
	values := make([]int, 0, len(scores))
	for _, v := range scores {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))
	return slices.Equal(values, standardArray)
}

func pointBuyCost(scores entities.AbilityScores) int {
	total := 0
	for _, v := range scores {
		total += pointBuyCosts[v]
	}
	return total
}
