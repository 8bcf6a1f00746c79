package models

import (
	"time"

	"github.com/google/uuid"
)

type CarModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BrandID   uuid.UUID `json:"brand_id" db:"brand_id"`
	Name      string    `json:"name" db:"name"`
	BodyType  *string   `json:"body_type" db:"body_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (CarModel) TableName() string {
	return "car_models"
}

func (CarModel) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS car_models (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		brand_id UUID NOT NULL REFERENCES brands(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		body_type TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		UNIQUE (brand_id, name)
	);`
}
