package models

import "gorm.io/gorm"

type Ingredient struct {
	gorm.Model

	RecipeID uint   `gorm:"not null;index"`
	Name     string `gorm:"not null"`
	Measure  string `gorm:"not null"`

	// Relationships
	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
