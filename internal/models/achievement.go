package models

import (
	"encoding/json"
	"time"
)

// Achievement is a permanent milestone definition. Criteria holds the raw
// criterion map (key -> requirement) and is parsed by the criteria package.
// Definitions are immutable after creation.
type Achievement struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Criteria    json.RawMessage `gorm:"type:jsonb;not null" json:"criteria"`
	IconURL     string          `gorm:"size:512" json:"icon_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Achievement model.
func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement tracks one user's partial progress toward one achievement.
// ObtainedAt is set at most once and never cleared; once set the row is
// never re-evaluated. Version guards progress writes against concurrent
// evaluators.
type UserAchievement struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index:idx_user_achievements_pair,unique" json:"user_id"`
	User          User            `gorm:"foreignKey:UserID" json:"-"`
	AchievementID uint            `gorm:"not null;index:idx_user_achievements_pair,unique" json:"achievement_id"`
	Achievement   Achievement     `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
	Progress      json.RawMessage `gorm:"type:jsonb" json:"progress"`
	ObtainedAt    *time.Time      `json:"obtained_at,omitempty"`
	Claimed       bool            `gorm:"not null;default:false" json:"claimed"`
	Version       int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for UserAchievement model.
func (UserAchievement) TableName() string {
	return "user_achievements"
}
