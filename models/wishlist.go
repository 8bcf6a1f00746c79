package models

import (
	"time"

	"github.com/google/uuid"
)

// Wishlist is a user-owned collection of model-year Versions to watch.
type Wishlist struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (Wishlist) TableName() string {
	return "wishlists"
}

func (Wishlist) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS wishlists (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);`
}

type WishlistItem struct {
	ID         uuid.UUID `json:"id" db:"id"`
	WishlistID uuid.UUID `json:"wishlist_id" db:"wishlist_id"`
	VersionID  uuid.UUID `json:"version_id" db:"version_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

func (WishlistItem) TableName() string {
	return "wishlist_items"
}

func (WishlistItem) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS wishlist_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		wishlist_id UUID NOT NULL REFERENCES wishlists(id) ON DELETE CASCADE,
		version_id UUID NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		UNIQUE (wishlist_id, version_id)
	);`
}
