package handlers

import (
	"github.com/Carplace-code/carplace-sub001/database"
)

// DB is the shared database handle used by the handlers in this package.
var DB *database.DB

// InitializeHandlers wires the database connection into the handlers
func InitializeHandlers(db *database.DB) {
	DB = db
}
