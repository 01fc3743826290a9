package models

import "time"

// Operation is a keyed configuration value managed by admins (delivery fees etc).
type Operation struct {
	Property  string    `gorm:"column:property;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
