package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SheetModel represents a live (mutable) Sheet in the database. Its Nodes
// and Connections are loaded through NodeModel/ConnectionModel rows whose
// SheetID points back at it.
type SheetModel struct {
	bun.BaseModel `bun:"table:sheets,alias:s"`

	ID               uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Name             string     `bun:"name,notnull" json:"name" validate:"required,max=255"`
	DefaultVersionID *uuid.UUID `bun:"default_version_id,type:uuid" json:"default_version_id,omitempty"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Nodes       []*NodeModel       `bun:"rel:has-many,join:id=sheet_id" json:"nodes,omitempty"`
	Connections []*ConnectionModel `bun:"rel:has-many,join:id=sheet_id" json:"connections,omitempty"`
}

// TableName returns the table name for SheetModel.
func (SheetModel) TableName() string {
	return "sheets"
}

// BeforeInsert sets id and timestamps if unset.
func (s *SheetModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate refreshes UpdatedAt.
func (s *SheetModel) BeforeUpdate(ctx interface{}) error {
	s.UpdatedAt = time.Now()
	return nil
}
