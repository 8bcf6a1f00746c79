package models

import (
	"time"

	"github.com/google/uuid"
)

// Source is the external site a listing was scraped from. Only names in
// the handlers' allow-list are ever inserted.
type Source struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	BaseURL   string    `json:"base_url" db:"base_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (Source) TableName() string {
	return "sources"
}

func (Source) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS sources (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL UNIQUE,
		base_url TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);`
}
