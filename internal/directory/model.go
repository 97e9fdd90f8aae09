package directory

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

type Doctor struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Phone          string
	Specialization string
	PasswordHash   string
	CreatedAt      time.Time
}

type Admin struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}
