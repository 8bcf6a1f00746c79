package models

import (
	"time"

	"github.com/google/uuid"
)

// Trim is a specific configuration (engine, transmission, fuel) of a Version.
// MotorSize is -1 when the source did not report it.
type Trim struct {
	ID               uuid.UUID `json:"id" db:"id"`
	VersionID        uuid.UUID `json:"version_id" db:"version_id"`
	Name             string    `json:"name" db:"name"`
	MotorSize        float64   `json:"motor_size" db:"motor_size"`
	FuelType         string    `json:"fuel_type" db:"fuel_type"`
	TransmissionType string    `json:"transmission_type" db:"transmission_type"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

func (Trim) TableName() string {
	return "trims"
}

func (Trim) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS trims (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		version_id UUID NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		motor_size NUMERIC(4,1) NOT NULL DEFAULT -1,
		fuel_type TEXT NOT NULL,
		transmission_type TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		UNIQUE (version_id, name)
	);`
}
