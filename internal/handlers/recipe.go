package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/recipebox-dev/recipebox/db"
	"github.com/recipebox-dev/recipebox/internal/models"
	"github.com/recipebox-dev/recipebox/internal/recipes"
	"github.com/recipebox-dev/recipebox/internal/types"
	"github.com/recipebox-dev/recipebox/internal/utils"
)

type IngredientRequest struct {
	Name    string `json:"name" binding:"required"`
	Measure string `json:"measure" binding:"required"`
}

type StepRequest struct {
	Order       int    `json:"order" binding:"required,min=1"`
	Description string `json:"description" binding:"required"`
}

type RecipeRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	ImageURL    string              `json:"imageUrl"`
	IsPublic    *bool               `json:"isPublic"`
	Ingredients []IngredientRequest `json:"ingredients" binding:"omitempty,dive"`
	Steps       []StepRequest       `json:"steps" binding:"omitempty,dive"`
	Tags        []string            `json:"tags" binding:"omitempty,dive,required"`
}

type IngredientResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Measure string `json:"measure"`
}

type StepResponse struct {
	ID          uint   `json:"id"`
	Order       int    `json:"order"`
	Description string `json:"description"`
}

type RecipeResponse struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	ImageURL    string               `json:"imageUrl"`
	IsPublic    bool                 `json:"isPublic"`
	OwnerID     uint                 `json:"ownerId"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Owner       *types.UserResponse  `json:"owner,omitempty"`
	Ingredients []IngredientResponse `json:"ingredients"`
	Steps       []StepResponse       `json:"steps"`
	Tags        []recipes.TagView    `json:"tags"`
}

func (r RecipeRequest) toInput() recipes.RecipeInput {
	in := recipes.RecipeInput{
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		IsPublic:    r.IsPublic,
		Tags:        r.Tags,
	}

	for _, ing := range r.Ingredients {
		in.Ingredients = append(in.Ingredients, recipes.IngredientInput{
			Name:    ing.Name,
			Measure: ing.Measure,
		})
	}

	for _, step := range r.Steps {
		in.Steps = append(in.Steps, recipes.StepInput{
			Order:       step.Order,
			Description: step.Description,
		})
	}

	return in
}

func toRecipeResponse(recipe *models.Recipe, includeOwner bool) RecipeResponse {
	resp := RecipeResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Description: recipe.Description,
		ImageURL:    recipe.ImageURL,
		IsPublic:    recipe.IsPublic,
		OwnerID:     recipe.OwnerID,
		CreatedAt:   recipe.CreatedAt,
		UpdatedAt:   recipe.UpdatedAt,
		Ingredients: make([]IngredientResponse, 0, len(recipe.Ingredients)),
		Steps:       make([]StepResponse, 0, len(recipe.Steps)),
		Tags:        make([]recipes.TagView, 0, len(recipe.Tags)),
	}

	if includeOwner {
		resp.Owner = &types.UserResponse{
			ID:    recipe.Owner.ID,
			Email: recipe.Owner.Email,
		}
	}

	for _, ing := range recipe.Ingredients {
		resp.Ingredients = append(resp.Ingredients, IngredientResponse{
			ID:      ing.ID,
			Name:    ing.Name,
			Measure: ing.Measure,
		})
	}

	for _, step := range recipe.Steps {
		resp.Steps = append(resp.Steps, StepResponse{
			ID:          step.ID,
			Order:       step.Order,
			Description: step.Description,
		})
	}

	for _, tag := range recipe.Tags {
		resp.Tags = append(resp.Tags, recipes.TagView{ID: tag.ID, Name: tag.Name})
	}

	return resp
}

func recipeIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return 0, false
	}
	return uint(id), true
}

func respondRecipeError(ctx *gin.Context, err error) {
	var verr *recipes.ValidationError

	switch {
	case errors.As(err, &verr):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"errors": verr.Fields,
		})
	case errors.Is(err, recipes.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
	case errors.Is(err, recipes.ErrForbidden):
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this recipe"})
	default:
		log.Printf("Recipe service error: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func CreateRecipe(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req RecipeRequest

	if err := ctx.BindJSON(&req); err != nil {
		respondBindingError(ctx, err)
		return
	}

	recipe, err := recipes.NewService(db.DB).Create(userID, req.toInput())

	if err != nil {
		respondRecipeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"data": toRecipeResponse(recipe, false)})
}

func ListRecipes(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	summaries, err := recipes.NewService(db.DB).List(userID)

	if err != nil {
		respondRecipeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": summaries})
}

func SearchRecipes(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	name := ctx.Query("name")
	tags := ctx.Query("tags")

	summaries, err := recipes.NewService(db.DB).Search(userID, name, tags)

	if err != nil {
		respondRecipeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": summaries})
}

func GetRecipe(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	recipeID, ok := recipeIDParam(ctx)
	if !ok {
		return
	}

	recipe, err := recipes.NewService(db.DB).Get(userID, recipeID)

	if err != nil {
		respondRecipeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": toRecipeResponse(recipe, true)})
}

func UpdateRecipe(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	recipeID, ok := recipeIDParam(ctx)
	if !ok {
		return
	}

	var req RecipeRequest

	if err := ctx.BindJSON(&req); err != nil {
		respondBindingError(ctx, err)
		return
	}

	recipe, err := recipes.NewService(db.DB).Update(userID, recipeID, req.toInput())

	if err != nil {
		respondRecipeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": toRecipeResponse(recipe, false)})
}

func DeleteRecipe(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	recipeID, ok := recipeIDParam(ctx)
	if !ok {
		return
	}

	if err := recipes.NewService(db.DB).Delete(userID, recipeID); err != nil {
		respondRecipeError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
