package recipes

import (
	"errors"
	"strings"

	"github.com/recipebox-dev/recipebox/internal/models"
	"gorm.io/gorm"
)

// Service enforces recipe ownership and visibility rules and keeps the
// recipe aggregate (recipe + ingredients + steps + tag links) consistent
// across create, replace and delete.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new aggregate owned by ownerID. Step order values are
// stored exactly as submitted. The whole write is transactional: either the
// recipe with all its ingredients, steps and tag links lands, or nothing does.
func (s *Service) Create(ownerID uint, in RecipeInput) (*models.Recipe, error) {
	if verr := in.validate(); verr != nil {
		return nil, verr
	}

	// Tags are resolved outside the aggregate transaction: tag rows are
	// shared across users and survive a rolled-back recipe write.
	tags, err := s.resolveTags(in.Tags)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		OwnerID:     ownerID,
	}

	if in.IsPublic != nil {
		recipe.IsPublic = *in.IsPublic
	}

	for _, ing := range in.Ingredients {
		recipe.Ingredients = append(recipe.Ingredients, models.Ingredient{
			Name:    ing.Name,
			Measure: ing.Measure,
		})
	}

	for _, step := range in.Steps {
		recipe.Steps = append(recipe.Steps, models.Step{
			Order:       step.Order,
			Description: step.Description,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}

		if len(tags) > 0 {
			if err := tx.Model(&recipe).Association("Tags").Append(tags); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return s.loadAggregate(recipe.ID)
}

// Get returns the full aggregate. A recipe is readable by its owner
// unconditionally and by anyone else only when it is public; a private
// recipe owned by someone else yields ErrForbidden, not ErrNotFound.
func (s *Service) Get(requesterID uint, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe

	if err := s.db.First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !recipe.IsPublic && recipe.OwnerID != requesterID {
		return nil, ErrForbidden
	}

	return s.loadAggregate(recipeID)
}

// List returns summaries of all recipes owned by ownerID, newest first.
func (s *Service) List(ownerID uint) ([]Summary, error) {
	return s.findSummaries(s.ownedQuery(ownerID))
}

// Search narrows List by an optional case-insensitive name substring and an
// optional comma-separated tag list. A recipe matches the tag filter only if
// it carries every listed tag.
func (s *Service) Search(ownerID uint, nameFilter, tagsFilter string) ([]Summary, error) {
	query := s.ownedQuery(ownerID)

	if nameFilter != "" {
		pattern := "%" + escapeLike(strings.ToLower(nameFilter)) + "%"
		query = query.Where(`LOWER(recipes.name) LIKE ? ESCAPE '\'`, pattern)
	}

	if tagNames := normalizeTags(strings.Split(tagsFilter, ",")); len(tagNames) > 0 {
		query = query.
			Joins("JOIN recipe_tags ON recipe_tags.recipe_id = recipes.id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.name IN ?", tagNames).
			Group("recipes.id").
			Having("COUNT(DISTINCT tags.name) = ?", len(tagNames))
	}

	return s.findSummaries(query)
}

// Update overwrites the scalar fields and fully replaces the ingredient and
// step sets and the tag links. Only the owner may update, public or not.
// The replacement is transactional so a concurrent reader never observes a
// recipe stripped of its ingredients or steps mid-update.
func (s *Service) Update(requesterID uint, recipeID uint, in RecipeInput) (*models.Recipe, error) {
	if verr := in.validate(); verr != nil {
		return nil, verr
	}

	recipe, err := s.findOwned(requesterID, recipeID)
	if err != nil {
		return nil, err
	}

	tags, err := s.resolveTags(in.Tags)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":        strings.TrimSpace(in.Name),
			"description": in.Description,
			"image_url":   in.ImageURL,
		}

		if in.IsPublic != nil {
			updates["is_public"] = *in.IsPublic
		}

		if err := tx.Model(recipe).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Ingredient{}).Error; err != nil {
			return err
		}

		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Step{}).Error; err != nil {
			return err
		}

		for _, ing := range in.Ingredients {
			ingredient := models.Ingredient{
				RecipeID: recipe.ID,
				Name:     ing.Name,
				Measure:  ing.Measure,
			}
			if err := tx.Create(&ingredient).Error; err != nil {
				return err
			}
		}

		for _, step := range in.Steps {
			row := models.Step{
				RecipeID:    recipe.ID,
				Order:       step.Order,
				Description: step.Description,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		// Old links not in the new set are dropped; tag rows are never
		// deleted here.
		if len(tags) == 0 {
			return tx.Model(recipe).Association("Tags").Clear()
		}
		return tx.Model(recipe).Association("Tags").Replace(tags)
	})

	if err != nil {
		return nil, err
	}

	return s.loadAggregate(recipe.ID)
}

// Delete removes the recipe and cascades over its ingredients, steps and tag
// links. Tag rows survive. Deleting an already-deleted recipe yields
// ErrNotFound.
func (s *Service) Delete(requesterID uint, recipeID uint) error {
	recipe, err := s.findOwned(requesterID, recipeID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Ingredient{}).Error; err != nil {
			return err
		}

		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Step{}).Error; err != nil {
			return err
		}

		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}

		return tx.Delete(recipe).Error
	})
}

// findOwned looks the recipe up and enforces owner-only access, the rule for
// all mutations.
func (s *Service) findOwned(requesterID uint, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe

	if err := s.db.First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if recipe.OwnerID != requesterID {
		return nil, ErrForbidden
	}

	return &recipe, nil
}

func (s *Service) loadAggregate(recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe

	err := s.db.
		Preload("Owner").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		Preload("Tags").
		First(&recipe, recipeID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &recipe, nil
}

// resolveTags maps tag strings to Tag rows, creating missing ones. Two
// concurrent creates of the same new name race on the unique index; the
// loser treats the duplicate-key error as "exists now" and fetches once more.
func (s *Service) resolveTags(raw []string) ([]models.Tag, error) {
	names := normalizeTags(raw)
	tags := make([]models.Tag, 0, len(names))

	for _, name := range names {
		tag, err := s.upsertTag(name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, nil
}

func (s *Service) upsertTag(name string) (models.Tag, error) {
	var tag models.Tag

	err := s.db.Where("name = ?", name).First(&tag).Error
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return tag, err
	}

	tag = models.Tag{Name: name}
	err = s.db.Create(&tag).Error
	if err == nil {
		return tag, nil
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		tag = models.Tag{}
		err = s.db.Where("name = ?", name).First(&tag).Error
	}

	return tag, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE treat the filter as a literal substring; % and _
// in user input must not act as wildcards.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *Service) ownedQuery(ownerID uint) *gorm.DB {
	return s.db.
		Model(&models.Recipe{}).
		Where("recipes.owner_id = ?", ownerID).
		Order("recipes.created_at DESC, recipes.id DESC")
}
