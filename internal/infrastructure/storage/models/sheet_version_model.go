package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SheetVersionModel represents an immutable snapshot of a sheet's nodes
// and connections, referenced read-only by a sheet-variant node that
// pins a versionId. Its nodes/connections are the NodeModel/ConnectionModel
// rows whose VersionID points back at it.
type SheetVersionModel struct {
	bun.BaseModel `bun:"table:sheet_versions,alias:sv"`

	VersionID  uuid.UUID `bun:"version_id,pk,type:uuid,default:uuid_generate_v4()" json:"version_id"`
	SheetID    uuid.UUID `bun:"sheet_id,notnull,type:uuid" json:"sheet_id"`
	VersionTag string    `bun:"version_tag,notnull" json:"version_tag"`
	Name       string    `bun:"name,notnull" json:"name"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	Nodes       []*NodeModel       `bun:"rel:has-many,join:version_id=version_id" json:"nodes,omitempty"`
	Connections []*ConnectionModel `bun:"rel:has-many,join:version_id=version_id" json:"connections,omitempty"`
}

// TableName returns the table name for SheetVersionModel.
func (SheetVersionModel) TableName() string {
	return "sheet_versions"
}

// BeforeInsert assigns a version id if unset.
func (v *SheetVersionModel) BeforeInsert(ctx interface{}) error {
	if v.VersionID == uuid.Nil {
		v.VersionID = uuid.New()
	}
	return nil
}
