package models

import (
	"time"

	"github.com/google/uuid"
)

// Version identifies a model-year combination (e.g. Corolla 2019).
type Version struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ModelID   uuid.UUID `json:"model_id" db:"model_id"`
	Year      int       `json:"year" db:"year"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (Version) TableName() string {
	return "versions"
}

func (Version) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS versions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		model_id UUID NOT NULL REFERENCES car_models(id) ON DELETE CASCADE,
		year INT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		UNIQUE (model_id, year)
	);`
}
