package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is an entry in a customer's address book.
type Address struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index:idx_addresses_owner"`
	IsDefault   bool      `gorm:"column:is_default;not null;default:false"`
	Name        string    `gorm:"column:name;not null"`
	PhoneNumber string    `gorm:"column:phone_number;not null"`
	Line1       string    `gorm:"column:line1;not null"`
	Line2       *string   `gorm:"column:line2"`
	City        string    `gorm:"column:city;not null"`
	Region      string    `gorm:"column:region;not null"`
	Country     string    `gorm:"column:country;not null"`
	Zip         *string   `gorm:"column:zip"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Snapshot copies the fields an order keeps for display.
func (a Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Name:        a.Name,
		PhoneNumber: a.PhoneNumber,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		Region:      a.Region,
		Country:     a.Country,
		Zip:         a.Zip,
	}
}
