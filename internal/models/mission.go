package models

import (
	"encoding/json"
	"time"
)

// Mission types.
const (
	MissionDaily  = "DAILY"
	MissionWeekly = "WEEKLY"
	MissionUnique = "UNIQUE"
)

// Mission is a time-scoped or one-off objective definition that pays
// RewardPoints when its reward is claimed.
type Mission struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Description  string          `gorm:"type:text;not null" json:"description"`
	Type         string          `gorm:"not null;size:20" json:"type"`
	Objective    json.RawMessage `gorm:"type:jsonb;not null" json:"objective"`
	RewardPoints int             `gorm:"not null;default:0" json:"reward_points"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Mission model.
func (Mission) TableName() string {
	return "missions"
}

// UserMission tracks one user's progress on an assigned mission. Claimed may
// only transition false to true, and only once Completed is true. Version
// guards progress writes against concurrent evaluators.
type UserMission struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index:idx_user_missions_pair,unique" json:"user_id"`
	User        User            `gorm:"foreignKey:UserID" json:"-"`
	MissionID   uint            `gorm:"not null;index:idx_user_missions_pair,unique" json:"mission_id"`
	Mission     Mission         `gorm:"foreignKey:MissionID" json:"mission,omitempty"`
	Progress    json.RawMessage `gorm:"type:jsonb" json:"progress"`
	Completed   bool            `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Claimed     bool            `gorm:"not null;default:false" json:"claimed"`
	Version     int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for UserMission model.
func (UserMission) TableName() string {
	return "user_missions"
}
