package model

import "github.com/google/uuid"

// Connection wires one node's output port to another node's input port.
type Connection struct {
	SourceNodeID uuid.UUID `json:"sourceNodeId"`
	SourcePort   string    `json:"sourcePort"`
	TargetNodeID uuid.UUID `json:"targetNodeId"`
	TargetPort   string    `json:"targetPort"`
}

// Validate checks structural invariants only. Port-key existence against
// the referenced nodes is checked by Sheet.Validate(), which has the full
// node list; acyclicity is a code generator / sandbox runtime concern.
func (c *Connection) Validate() error {
	if c.SourceNodeID == uuid.Nil {
		return &ValidationError{Field: "sourceNodeId", Message: "connection source node id is required"}
	}
	if c.TargetNodeID == uuid.Nil {
		return &ValidationError{Field: "targetNodeId", Message: "connection target node id is required"}
	}
	if c.SourcePort == "" {
		return &ValidationError{Field: "sourcePort", Message: "connection source port is required"}
	}
	if c.TargetPort == "" {
		return &ValidationError{Field: "targetPort", Message: "connection target port is required"}
	}
	return nil
}
