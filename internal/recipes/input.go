package recipes

import (
	"fmt"
	"strings"
)

type IngredientInput struct {
	Name    string
	Measure string
}

type StepInput struct {
	Order       int
	Description string
}

// RecipeInput is the payload for Create and Update. IsPublic is a pointer so
// an absent value can keep the stored one on update.
type RecipeInput struct {
	Name        string
	Description string
	ImageURL    string
	IsPublic    *bool
	Ingredients []IngredientInput
	Steps       []StepInput
	Tags        []string
}

func (in *RecipeInput) validate() *ValidationError {
	verr := &ValidationError{}

	if strings.TrimSpace(in.Name) == "" {
		verr.add("name", "Recipe name is required")
	}

	for i, ing := range in.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			verr.add(fmt.Sprintf("ingredients[%d].name", i), "Ingredient name is required")
		}
		if strings.TrimSpace(ing.Measure) == "" {
			verr.add(fmt.Sprintf("ingredients[%d].measure", i), "Ingredient measure is required")
		}
	}

	for i, step := range in.Steps {
		if step.Order < 1 {
			verr.add(fmt.Sprintf("steps[%d].order", i), "Step order must be a positive integer")
		}
		if strings.TrimSpace(step.Description) == "" {
			verr.add(fmt.Sprintf("steps[%d].description", i), "Step description is required")
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// normalizeTags trims and lower-cases tag names, dropping empties and
// duplicates while preserving first-seen order.
func normalizeTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	names := make([]string, 0, len(raw))

	for _, tag := range raw {
		name := strings.ToLower(strings.TrimSpace(tag))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	return names
}
