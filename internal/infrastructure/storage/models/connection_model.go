package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConnectionModel represents a wire between two node ports, owned by
// either a live sheet (SheetID set) or an immutable version snapshot
// (VersionID set).
type ConnectionModel struct {
	bun.BaseModel `bun:"table:sheet_connections,alias:c"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	SheetID      *uuid.UUID `bun:"sheet_id,type:uuid" json:"sheet_id,omitempty"`
	VersionID    *uuid.UUID `bun:"version_id,type:uuid" json:"version_id,omitempty"`
	SourceNodeID uuid.UUID  `bun:"source_node_id,notnull,type:uuid" json:"source_node_id"`
	SourcePort   string     `bun:"source_port,notnull" json:"source_port"`
	TargetNodeID uuid.UUID  `bun:"target_node_id,notnull,type:uuid" json:"target_node_id"`
	TargetPort   string     `bun:"target_port,notnull" json:"target_port"`
}

// TableName returns the table name for ConnectionModel.
func (ConnectionModel) TableName() string {
	return "sheet_connections"
}

// BeforeInsert assigns an id if unset.
func (c *ConnectionModel) BeforeInsert(ctx interface{}) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
