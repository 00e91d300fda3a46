package models

import "gorm.io/gorm"

// Tag names are globally unique and stored trimmed + lower-cased, so the same
// tag text always resolves to the same shared row across users. Tags are never
// deleted when a recipe stops referencing them.
type Tag struct {
	gorm.Model

	Name string `gorm:"uniqueIndex;not null"`

	// Relationships
	Recipes []Recipe `gorm:"many2many:recipe_tags" json:"-"`
}
