package recipes

import (
	"time"

	"github.com/recipebox-dev/recipebox/internal/models"
	"gorm.io/gorm"
)

type TagView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type ChildCounts struct {
	Ingredients int64 `json:"ingredients"`
	Steps       int64 `json:"steps"`
}

// Summary is the listing projection: recipe scalars plus tags and child
// counts, without the nested ingredient/step bodies.
type Summary struct {
	ID          uint        `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ImageURL    string      `json:"imageUrl"`
	IsPublic    bool        `json:"isPublic"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Tags        []TagView   `json:"tags"`
	Counts      ChildCounts `json:"_count"`
}

func (s *Service) findSummaries(query *gorm.DB) ([]Summary, error) {
	var rows []models.Recipe

	err := query.
		Select("recipes.*").
		Preload("Tags").
		Find(&rows).Error

	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(rows))
	for _, recipe := range rows {
		ids = append(ids, recipe.ID)
	}

	ingredientCounts, err := s.countByRecipe(&models.Ingredient{}, ids)
	if err != nil {
		return nil, err
	}

	stepCounts, err := s.countByRecipe(&models.Step{}, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(rows))

	for _, recipe := range rows {
		tags := make([]TagView, 0, len(recipe.Tags))
		for _, tag := range recipe.Tags {
			tags = append(tags, TagView{ID: tag.ID, Name: tag.Name})
		}

		summaries = append(summaries, Summary{
			ID:          recipe.ID,
			Name:        recipe.Name,
			Description: recipe.Description,
			ImageURL:    recipe.ImageURL,
			IsPublic:    recipe.IsPublic,
			CreatedAt:   recipe.CreatedAt,
			UpdatedAt:   recipe.UpdatedAt,
			Tags:        tags,
			Counts: ChildCounts{
				Ingredients: ingredientCounts[recipe.ID],
				Steps:       stepCounts[recipe.ID],
			},
		})
	}

	return summaries, nil
}

func (s *Service) countByRecipe(model interface{}, recipeIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(recipeIDs))

	if len(recipeIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		RecipeID uint
		Total    int64
	}

	err := s.db.
		Model(model).
		Select("recipe_id, COUNT(*) AS total").
		Where("recipe_id IN ?", recipeIDs).
		Group("recipe_id").
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.RecipeID] = row.Total
	}

	return counts, nil
}
