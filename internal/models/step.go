package models

import "gorm.io/gorm"

type Step struct {
	gorm.Model

	RecipeID    uint   `gorm:"not null;index"`
	Order       int    `gorm:"not null"` // 1..N at time of save; rendered ascending
	Description string `gorm:"not null"`

	// Relationships
	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
