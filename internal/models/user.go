package models

import (
	"time"
)

// User represents a birdwatcher account. The progression engine only ever
// mutates Points, Level and LevelName; the rest is owned by account management.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Points    int       `gorm:"not null;default:0" json:"points"`
	Level     int       `gorm:"not null;default:1" json:"level"`
	LevelName string    `gorm:"size:100;not null;default:Novato" json:"level_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}
