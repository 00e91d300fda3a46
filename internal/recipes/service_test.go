package recipes

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/recipebox-dev/recipebox/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	return newTestServiceWithConfig(t, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

func newTestServiceWithConfig(t *testing.T, cfg *gorm.Config) *Service {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// A shared in-memory database exists per connection; keep it to one.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.Recipe{},
		&models.Ingredient{},
		&models.Step{},
		&models.Tag{},
	))

	return NewService(gdb)
}

func createTestUser(t *testing.T, s *Service, email string) models.User {
	t.Helper()

	user := models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, s.db.Create(&user).Error)
	return user
}

func soupInput() RecipeInput {
	return RecipeInput{
		Name: "Soup",
		Ingredients: []IngredientInput{
			{Name: "Salt", Measure: "1tsp"},
			{Name: "Water", Measure: "1l"},
		},
		Steps: []StepInput{
			{Order: 1, Description: "Boil"},
			{Order: 2, Description: "Season"},
		},
		Tags: []string{"easy"},
	}
}

func boolPtr(b bool) *bool { return &b }

func TestCreate(t *testing.T) {
	t.Run("returns the full aggregate", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")

		recipe, err := s.Create(owner.ID, soupInput())
		require.NoError(t, err)

		assert.Equal(t, "Soup", recipe.Name)
		assert.Equal(t, owner.ID, recipe.OwnerID)
		assert.False(t, recipe.IsPublic)
		assert.Len(t, recipe.Ingredients, 2)
		assert.Len(t, recipe.Steps, 2)
		require.Len(t, recipe.Tags, 1)
		assert.Equal(t, "easy", recipe.Tags[0].Name)
	})

	t.Run("keeps submitted step order values and sorts reads ascending", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")

		in := RecipeInput{
			Name: "Backwards",
			Steps: []StepInput{
				{Order: 3, Description: "Serve"},
				{Order: 1, Description: "Chop"},
				{Order: 2, Description: "Fry"},
			},
		}

		recipe, err := s.Create(owner.ID, in)
		require.NoError(t, err)

		require.Len(t, recipe.Steps, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{recipe.Steps[0].Order, recipe.Steps[1].Order, recipe.Steps[2].Order})
		assert.Equal(t, "Chop", recipe.Steps[0].Description)
		assert.Equal(t, "Serve", recipe.Steps[2].Description)
	})

	t.Run("honours an explicit isPublic", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")

		in := soupInput()
		in.IsPublic = boolPtr(true)

		recipe, err := s.Create(owner.ID, in)
		require.NoError(t, err)
		assert.True(t, recipe.IsPublic)
	})
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RecipeInput)
		wantField string
	}{
		{
			name:      "missing name",
			mutate:    func(in *RecipeInput) { in.Name = "  " },
			wantField: "name",
		},
		{
			name: "ingredient without measure",
			mutate: func(in *RecipeInput) {
				in.Ingredients[1].Measure = ""
			},
			wantField: "ingredients[1].measure",
		},
		{
			name: "ingredient without name",
			mutate: func(in *RecipeInput) {
				in.Ingredients[0].Name = " "
			},
			wantField: "ingredients[0].name",
		},
		{
			name: "non-positive step order",
			mutate: func(in *RecipeInput) {
				in.Steps[0].Order = 0
			},
			wantField: "steps[0].order",
		},
		{
			name: "step without description",
			mutate: func(in *RecipeInput) {
				in.Steps[1].Description = ""
			},
			wantField: "steps[1].description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t)
			owner := createTestUser(t, s, "owner@example.com")

			in := soupInput()
			tt.mutate(&in)

			_, err := s.Create(owner.ID, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)

			// Validation failures never touch the store.
			var count int64
			require.NoError(t, s.db.Model(&models.Recipe{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestTagNormalization(t *testing.T) {
	t.Run("same tag text resolves to one shared row", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")

		first := soupInput()
		first.Tags = []string{"Dessert"}
		second := soupInput()
		second.Name = "Cake"
		second.Tags = []string{"dessert "}

		r1, err := s.Create(owner.ID, first)
		require.NoError(t, err)
		r2, err := s.Create(owner.ID, second)
		require.NoError(t, err)

		require.Len(t, r1.Tags, 1)
		require.Len(t, r2.Tags, 1)
		assert.Equal(t, "dessert", r1.Tags[0].Name)
		assert.Equal(t, r1.Tags[0].ID, r2.Tags[0].ID)

		var count int64
		require.NoError(t, s.db.Model(&models.Tag{}).Where("name = ?", "dessert").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("empty and duplicate tags are dropped", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")

		in := soupInput()
		in.Tags = []string{" ", "Quick", "quick", ""}

		recipe, err := s.Create(owner.ID, in)
		require.NoError(t, err)

		require.Len(t, recipe.Tags, 1)
		assert.Equal(t, "quick", recipe.Tags[0].Name)
	})
}

func TestGetVisibility(t *testing.T) {
	s := newTestService(t)
	owner := createTestUser(t, s, "owner@example.com")
	other := createTestUser(t, s, "other@example.com")

	private, err := s.Create(owner.ID, soupInput())
	require.NoError(t, err)

	t.Run("owner reads a private recipe", func(t *testing.T) {
		got, err := s.Get(owner.ID, private.ID)
		require.NoError(t, err)
		assert.Equal(t, private.ID, got.ID)
		assert.Equal(t, owner.Email, got.Owner.Email)
	})

	t.Run("non-owner is forbidden, not told it is missing", func(t *testing.T) {
		_, err := s.Get(other.ID, private.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("anyone reads a public recipe", func(t *testing.T) {
		in := soupInput()
		in.Name = "Shared soup"
		in.IsPublic = boolPtr(true)

		public, err := s.Create(owner.ID, in)
		require.NoError(t, err)

		got, err := s.Get(other.ID, public.ID)
		require.NoError(t, err)
		assert.Equal(t, public.ID, got.ID)
	})

	t.Run("absent recipe is not found", func(t *testing.T) {
		_, err := s.Get(owner.ID, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdate(t *testing.T) {
	t.Run("fully replaces ingredients and steps", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")

		recipe, err := s.Create(owner.ID, soupInput())
		require.NoError(t, err)
		oldIngredientID := recipe.Ingredients[0].ID

		updated, err := s.Update(owner.ID, recipe.ID, RecipeInput{
			Name: "Better soup",
			Ingredients: []IngredientInput{
				{Name: "Pepper", Measure: "1 pinch"},
			},
			Steps: []StepInput{
				{Order: 1, Description: "Simmer"},
			},
			Tags: []string{"easy"},
		})
		require.NoError(t, err)

		assert.Equal(t, "Better soup", updated.Name)
		require.Len(t, updated.Ingredients, 1)
		assert.Equal(t, "Pepper", updated.Ingredients[0].Name)
		assert.NotEqual(t, oldIngredientID, updated.Ingredients[0].ID)
		require.Len(t, updated.Steps, 1)
		assert.Equal(t, "Simmer", updated.Steps[0].Description)

		// None of the old rows leak into the new aggregate.
		var count int64
		require.NoError(t, s.db.Model(&models.Ingredient{}).Where("recipe_id = ?", recipe.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("nil isPublic keeps the stored value", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")

		in := soupInput()
		in.IsPublic = boolPtr(true)
		recipe, err := s.Create(owner.ID, in)
		require.NoError(t, err)

		updated, err := s.Update(owner.ID, recipe.ID, soupInput())
		require.NoError(t, err)
		assert.True(t, updated.IsPublic)

		flipped := soupInput()
		flipped.IsPublic = boolPtr(false)
		updated, err = s.Update(owner.ID, recipe.ID, flipped)
		require.NoError(t, err)
		assert.False(t, updated.IsPublic)
	})

	t.Run("resets tag links without deleting tag rows", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")

		in := soupInput()
		in.Tags = []string{"easy", "dinner"}
		recipe, err := s.Create(owner.ID, in)
		require.NoError(t, err)

		next := soupInput()
		next.Tags = []string{"dinner", "winter"}
		updated, err := s.Update(owner.ID, recipe.ID, next)
		require.NoError(t, err)

		names := make([]string, 0, len(updated.Tags))
		for _, tag := range updated.Tags {
			names = append(names, tag.Name)
		}
		assert.ElementsMatch(t, []string{"dinner", "winter"}, names)

		// "easy" is unlinked but the shared row survives.
		var count int64
		require.NoError(t, s.db.Model(&models.Tag{}).Where("name = ?", "easy").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("owner-only even for public recipes", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")
		other := createTestUser(t, s, "other@example.com")

		in := soupInput()
		in.IsPublic = boolPtr(true)
		recipe, err := s.Create(owner.ID, in)
		require.NoError(t, err)

		_, err = s.Update(other.ID, recipe.ID, soupInput())
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("absent recipe is not found", func(t *testing.T) {
		s := newTestService(t)
		owner := createTestUser(t, s, "owner@example.com")

		_, err := s.Update(owner.ID, 9999, soupInput())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	s := newTestService(t)
	owner := createTestUser(t, s, "owner@example.com")
	other := createTestUser(t, s, "other@example.com")

	recipe, err := s.Create(owner.ID, soupInput())
	require.NoError(t, err)

	t.Run("non-owner is forbidden", func(t *testing.T) {
		assert.ErrorIs(t, s.Delete(other.ID, recipe.ID), ErrForbidden)
	})

	t.Run("cascades over children, tags survive", func(t *testing.T) {
		require.NoError(t, s.Delete(owner.ID, recipe.ID))

		_, err := s.Get(owner.ID, recipe.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		var count int64
		require.NoError(t, s.db.Model(&models.Ingredient{}).Where("recipe_id = ?", recipe.ID).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, s.db.Model(&models.Step{}).Where("recipe_id = ?", recipe.ID).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, s.db.Model(&models.Tag{}).Where("name = ?", "easy").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("second delete is not found", func(t *testing.T) {
		assert.ErrorIs(t, s.Delete(owner.ID, recipe.ID), ErrNotFound)
	})
}

func TestList(t *testing.T) {
	s := newTestService(t)
	owner := createTestUser(t, s, "owner@example.com")
	other := createTestUser(t, s, "other@example.com")

	first, err := s.Create(owner.ID, soupInput())
	require.NoError(t, err)

	second := soupInput()
	second.Name = "Cake"
	second.Tags = []string{"dessert"}
	newest, err := s.Create(owner.ID, second)
	require.NoError(t, err)

	_, err = s.Create(other.ID, soupInput())
	require.NoError(t, err)

	summaries, err := s.List(owner.ID)
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	assert.Equal(t, newest.ID, summaries[0].ID)
	assert.Equal(t, first.ID, summaries[1].ID)

	assert.Equal(t, int64(2), summaries[1].Counts.Ingredients)
	assert.Equal(t, int64(2), summaries[1].Counts.Steps)
	require.Len(t, summaries[0].Tags, 1)
	assert.Equal(t, "dessert", summaries[0].Tags[0].Name)
}

func TestSearch(t *testing.T) {
	s := newTestService(t)
	owner := createTestUser(t, s, "owner@example.com")
	other := createTestUser(t, s, "other@example.com")

	quickDinner := soupInput()
	quickDinner.Name = "Chicken Stir Fry"
	quickDinner.Tags = []string{"quick", "dinner"}
	stirFry, err := s.Create(owner.ID, quickDinner)
	require.NoError(t, err)

	quickOnly := soupInput()
	quickOnly.Name = "Instant Noodles"
	quickOnly.Tags = []string{"quick"}
	noodles, err := s.Create(owner.ID, quickOnly)
	require.NoError(t, err)

	otherChicken := soupInput()
	otherChicken.Name = "Chicken Pie"
	otherChicken.Tags = []string{"quick", "dinner"}
	_, err = s.Create(other.ID, otherChicken)
	require.NoError(t, err)

	t.Run("name match is a case-insensitive substring", func(t *testing.T) {
		summaries, err := s.Search(owner.ID, "chicken", "")
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, stirFry.ID, summaries[0].ID)
	})

	t.Run("tag filter requires every listed tag", func(t *testing.T) {
		summaries, err := s.Search(owner.ID, "", "quick,dinner")
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, stirFry.ID, summaries[0].ID)
	})

	t.Run("tag names are normalized before matching", func(t *testing.T) {
		summaries, err := s.Search(owner.ID, "", " Quick , DINNER ")
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, stirFry.ID, summaries[0].ID)
	})

	t.Run("single tag matches both recipes", func(t *testing.T) {
		summaries, err := s.Search(owner.ID, "", "quick")
		require.NoError(t, err)
		assert.Len(t, summaries, 2)
	})

	t.Run("no filters behaves like list", func(t *testing.T) {
		summaries, err := s.Search(owner.ID, "", "")
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, noodles.ID, summaries[0].ID)
	})

	t.Run("never crosses into other users' recipes", func(t *testing.T) {
		summaries, err := s.Search(owner.ID, "pie", "")
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})
}

func TestSearchTreatsWildcardsAsLiterals(t *testing.T) {
	s := newTestService(t)
	owner := createTestUser(t, s, "owner@example.com")

	names := []string{"100% Rye", "100x Rye", "a_b Loaf", "axb Loaf"}
	for _, name := range names {
		in := soupInput()
		in.Name = name
		_, err := s.Create(owner.ID, in)
		require.NoError(t, err)
	}

	t.Run("percent matches only itself", func(t *testing.T) {
		summaries, err := s.Search(owner.ID, "100%", "")
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "100% Rye", summaries[0].Name)
	})

	t.Run("underscore matches only itself", func(t *testing.T) {
		summaries, err := s.Search(owner.ID, "a_b", "")
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "a_b Loaf", summaries[0].Name)
	})
}

func TestUpsertTagDuplicateRace(t *testing.T) {
	// Losing the race means the tag appears between the lookup and the
	// insert. The competing insert must land outside gorm's per-write
	// transaction or it rolls back together with the failed create, so
	// this service skips the default transaction.
	s := newTestServiceWithConfig(t, &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})

	raced := false
	err := s.db.Callback().Create().Before("gorm:create").Register("competing_tag_insert", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "tags" {
			return
		}
		raced = true

		now := time.Now()
		competing := tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO tags (created_at, updated_at, name) VALUES (?, ?, ?)",
			now, now, "dessert",
		)
		require.NoError(t, competing.Error)
	})
	require.NoError(t, err)

	tag, err := s.upsertTag("dessert")
	require.NoError(t, err)
	require.True(t, raced, "the competing insert never ran")

	// The resolver came back with the row the competitor inserted, and no
	// second row exists.
	var existing models.Tag
	require.NoError(t, s.db.Where("name = ?", "dessert").First(&existing).Error)
	assert.Equal(t, existing.ID, tag.ID)

	var count int64
	require.NoError(t, s.db.Model(&models.Tag{}).Where("name = ?", "dessert").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
