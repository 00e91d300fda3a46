package models

import "gorm.io/gorm"

type Recipe struct {
	gorm.Model

	Name        string `gorm:"not null"`
	Description string
	ImageURL    string
	IsPublic    bool `gorm:"not null;default:false"`
	OwnerID     uint `gorm:"not null;index"`

	// Relationships
	Owner       User         `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Ingredients []Ingredient `gorm:"foreignKey:RecipeID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Steps       []Step       `gorm:"foreignKey:RecipeID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Tags        []Tag        `gorm:"many2many:recipe_tags"`
}
