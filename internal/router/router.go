package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/recipebox-dev/recipebox/internal/handlers"
	"github.com/recipebox-dev/recipebox/internal/middleware"
	"github.com/recipebox-dev/recipebox/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", handlers.HealthCheck)

	auth := r.Group("/auth")
	{
		auth.POST("/signup", handlers.Signup)
		auth.POST("/login", handlers.Login)
		auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
	}

	recipes := r.Group("/recipes", middleware.AuthMiddleware())
	{
		recipes.POST("", handlers.CreateRecipe)
		recipes.GET("", handlers.ListRecipes)
		recipes.GET("/search", handlers.SearchRecipes)
		recipes.GET("/:id", handlers.GetRecipe)
		recipes.PUT("/:id", handlers.UpdateRecipe)
		recipes.DELETE("/:id", handlers.DeleteRecipe)
	}

	return r
}
