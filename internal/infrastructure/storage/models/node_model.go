package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NodeModel represents a single computation node, owned by either a live
// sheet (SheetID set) or an immutable version snapshot (VersionID set).
type NodeModel struct {
	bun.BaseModel `bun:"table:sheet_nodes,alias:n"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	SheetID   *uuid.UUID `bun:"sheet_id,type:uuid" json:"sheet_id,omitempty"`
	VersionID *uuid.UUID `bun:"version_id,type:uuid" json:"version_id,omitempty"`
	Label     string     `bun:"label,notnull" json:"label" validate:"required,max=255"`
	Variant   string     `bun:"variant,notnull" json:"variant" validate:"required,oneof=constant input function sheet lut output comment"`
	Inputs    JSONBSlice `bun:"inputs,type:jsonb,notnull,default:'[]'" json:"inputs,omitempty"`
	Outputs   JSONBSlice `bun:"outputs,type:jsonb,notnull,default:'[]'" json:"outputs,omitempty"`
	Data      JSONBMap   `bun:"data,type:jsonb,notnull,default:'{}'" json:"data,omitempty"`

	Sheet *SheetModel `bun:"rel:belongs-to,join:sheet_id=id" json:"-"`
}

// TableName returns the table name for NodeModel.
func (NodeModel) TableName() string {
	return "sheet_nodes"
}

// BeforeInsert assigns an id if unset.
func (n *NodeModel) BeforeInsert(ctx interface{}) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Data == nil {
		n.Data = make(JSONBMap)
	}
	return nil
}
