package model

import "time"

// Sex specifies customer sex as it is displayed and stored
type Sex string

const (
	// SexMasculine means male customer
	SexMasculine Sex = "Masculino"
	// SexFeminine means female customer
	SexFeminine Sex = "Femenino"
)

// Valid reports whether sex is one of the known values or is not chosen yet
func (s Sex) Valid() bool {
	switch s {
	case "", SexMasculine, SexFeminine:
		return true
	default:
		return false
	}
}

// Customer is customer model entity
type Customer struct {
	ID           string     `json:"id" bson:"_id,omitempty"`
	NationalID   string     `json:"nationalId" bson:"nationalId"`
	FirstNames   string     `json:"firstNames" bson:"firstNames"`
	LastNames    string     `json:"lastNames" bson:"lastNames"`
	BirthDate    string     `json:"birthDate" bson:"birthDate"`
	Sex          Sex        `json:"sex" bson:"sex"`
	RegisteredAt *time.Time `json:"registeredAt" bson:"registeredAt,omitempty"`
}

// ChangeOp is the kind of change made to a stored customer
type ChangeOp string

const (
	// ChangeInsert means customer was created
	ChangeInsert ChangeOp = "insert"
	// ChangeUpdate means customer was overwritten
	ChangeUpdate ChangeOp = "update"
	// ChangeDelete means customer was deleted
	ChangeDelete ChangeOp = "delete"
	// ChangeSync is sent once feed is open, carries no ID.
	// Every change made after it is delivered, so full state read after it is never missed.
	ChangeSync ChangeOp = "sync"
)

// CustomerChange is a notification about a single stored customer change
type CustomerChange struct {
	ID string
	Op ChangeOp
}
