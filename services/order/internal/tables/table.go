package tables

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

const (
	StatusAvailable = "available"
	StatusOccupied  = "occupied"

	ZoneAC    = "ac"
	ZoneNonAC = "non-ac"
)

// Table is a physical seating unit. Status mirrors CurrentSessionID and is
// only written by the Coordinator.
type Table struct {
	ID               uuid.UUID  `json:"id" bson:"_id"`
	Number           string     `json:"number" bson:"number"`
	Capacity         int        `json:"capacity" bson:"capacity"`
	Zone             string     `json:"zone" bson:"zone"`
	Floor            int        `json:"floor" bson:"floor"`
	Status           string     `json:"status" bson:"status"`
	CurrentSessionID *uuid.UUID `json:"current_session_id" bson:"current_session_id"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	CreatedBy        string     `json:"created_by" bson:"created_by"`
	UpdatedAt        time.Time  `json:"updated_at" bson:"updated_at"`
	UpdatedBy        string     `json:"updated_by" bson:"updated_by"`
}

func (t *Table) GetID() uuid.UUID {
	return t.ID
}

func (t *Table) ResourceType() string {
	return "table"
}

func (t *Table) SetID(id uuid.UUID) {
	t.ID = id
}

func NewTable(number string) *Table {
	return &Table{
		ID:     apt.GenerateNewID(),
		Number: number,
		Zone:   ZoneNonAC,
		Status: StatusAvailable,
	}
}

func (t *Table) EnsureID() {
	if t.ID == uuid.Nil {
		t.ID = apt.GenerateNewID()
	}
}

func (t *Table) BeforeCreate() {
	t.EnsureID()
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
}

func (t *Table) BeforeUpdate() {
	t.UpdatedAt = time.Now()
}

// IsAC reports whether the table sits in an air-conditioned zone.
func (t *Table) IsAC() bool {
	return t.Zone == ZoneAC
}

// IsOccupied reports whether a session is open on the table.
func (t *Table) IsOccupied() bool {
	return t.CurrentSessionID != nil
}
