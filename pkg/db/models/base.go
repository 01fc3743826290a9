package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the primary key is unset.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
