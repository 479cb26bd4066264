package entity

import (
	"time"

	"gorm.io/gorm"
)

// Airport represents reference data for an airport, used to enrich
// provider snapshots with city and timezone metadata.
type Airport struct {
	ID        uint
	Code      string
	Name      string
	CityCode  string
	CityName  string
	State     string
	TzName    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}
