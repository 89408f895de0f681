package models

import (
	"time"
)

// Bird is a catalog species. Rarity is optional; birds without a mapped
// rarity fall back to the configured default when points are computed.
type Bird struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	CommonName string    `gorm:"size:255" json:"common_name"`
	RarityID   *uint     `gorm:"index" json:"rarity_id,omitempty"`
	Rarity     *Rarity   `gorm:"foreignKey:RarityID" json:"rarity,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for Bird model.
func (Bird) TableName() string {
	return "birds"
}

// Rarity is a categorical attribute of a species ("Común", "Raro", ...).
type Rarity struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:100" json:"name"`
}

// TableName specifies the table name for Rarity model.
func (Rarity) TableName() string {
	return "rarities"
}

// RarityPoints maps a rarity to the points a sighting of that rarity grants.
// A rarity with no row grants zero points.
type RarityPoints struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	RarityID uint   `gorm:"uniqueIndex;not null" json:"rarity_id"`
	Rarity   Rarity `gorm:"foreignKey:RarityID" json:"rarity,omitempty"`
	Points   int    `gorm:"not null;default:0" json:"points"`
}

// TableName specifies the table name for RarityPoints model.
func (RarityPoints) TableName() string {
	return "rarity_points"
}

// Sighting is a durably stored bird observation. Rows are written by the
// sighting-registration collaborator; the engine only reads them.
type Sighting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	BirdID    uint      `gorm:"not null;index" json:"bird_id"`
	Bird      Bird      `gorm:"foreignKey:BirdID" json:"bird,omitempty"`
	Province  string    `gorm:"size:255" json:"province"`
	Zone      string    `gorm:"size:255" json:"zone"`
	SightedAt time.Time `gorm:"not null" json:"sighted_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Sighting model.
func (Sighting) TableName() string {
	return "sightings"
}
