package models

import (
	"time"

	"github.com/google/uuid"
)

type Seller struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     *string   `json:"phone" db:"phone"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (Seller) TableName() string {
	return "sellers"
}

func (Seller) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS sellers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		type TEXT NOT NULL DEFAULT 'unknown',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);`
}
