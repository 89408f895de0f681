package models

// Level is one rung of the ordered level ladder. XPRequired is strictly
// increasing with Level; level 1 starts at 0.
type Level struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Level      int    `gorm:"uniqueIndex;not null" json:"level"`
	Name       string `gorm:"not null;size:100" json:"name"`
	XPRequired int    `gorm:"not null" json:"xp_required"`
}

// TableName specifies the table name for Level model.
func (Level) TableName() string {
	return "levels"
}
