package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Sheet is a visual computation graph: an ordered set of Nodes wired
// together by Connections. A Sheet plus every sub-sheet/version it
// transitively references through sheet-variant nodes forms a
// compilation unit (see internal/app/codegen).
type Sheet struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	Nodes            []*Node       `json:"nodes"`
	Connections      []*Connection `json:"connections"`
	DefaultVersionID *uuid.UUID    `json:"defaultVersionId,omitempty"`
}

// SheetVersion is an immutable snapshot of a Sheet's nodes and
// connections, referenced read-only when a sheet node pins a versionId.
type SheetVersion struct {
	VersionID   uuid.UUID     `json:"versionId"`
	VersionTag  string        `json:"versionTag"`
	SheetID     uuid.UUID     `json:"sheetId"`
	Name        string        `json:"name"`
	Nodes       []*Node       `json:"nodes"`
	Connections []*Connection `json:"connections"`
}

// Validate checks structural invariants: unique non-empty node ids, valid
// nodes, and connections that reference existing nodes and ports with at
// most one connection per (target node, target port) pair. Acyclicity of
// the connection graph is checked by the sandbox runtime when it orders
// the nodes, not here.
func (s *Sheet) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "sheet name is required"}
	}
	if len(s.Nodes) == 0 {
		return &ValidationError{Field: "nodes", Message: "at least one node is required"}
	}

	nodeByID := make(map[uuid.UUID]*Node, len(s.Nodes))
	for _, n := range s.Nodes {
		if err := n.Validate(); err != nil {
			return err
		}
		if _, exists := nodeByID[n.ID]; exists {
			return &ValidationError{Field: "nodes", Message: fmt.Sprintf("duplicate node id: %s", n.ID)}
		}
		nodeByID[n.ID] = n
	}

	targetPorts := make(map[string]bool)
	for _, c := range s.Connections {
		if err := c.Validate(); err != nil {
			return err
		}

		src, ok := nodeByID[c.SourceNodeID]
		if !ok {
			return &ValidationError{Field: "connections", Message: fmt.Sprintf("connection references non-existent source node: %s", c.SourceNodeID)}
		}
		dst, ok := nodeByID[c.TargetNodeID]
		if !ok {
			return &ValidationError{Field: "connections", Message: fmt.Sprintf("connection references non-existent target node: %s", c.TargetNodeID)}
		}
		if !hasPort(src.Outputs, c.SourcePort) {
			return &ValidationError{Field: "connections", Message: fmt.Sprintf("source node %s has no output port %q", c.SourceNodeID, c.SourcePort)}
		}
		if !hasPort(dst.Inputs, c.TargetPort) {
			return &ValidationError{Field: "connections", Message: fmt.Sprintf("target node %s has no input port %q", c.TargetNodeID, c.TargetPort)}
		}

		key := c.TargetNodeID.String() + "/" + c.TargetPort
		if targetPorts[key] {
			return &ValidationError{Field: "connections", Message: fmt.Sprintf("more than one connection targets %s/%s", c.TargetNodeID, c.TargetPort)}
		}
		targetPorts[key] = true
	}

	return nil
}

func hasPort(ports []Port, key string) bool {
	for _, p := range ports {
		if p.Key == key {
			return true
		}
	}
	return false
}

// GetNode returns a node by id.
func (s *Sheet) GetNode(id uuid.UUID) (*Node, error) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, ErrNodeNotFound
}

// Clone deep-copies the sheet via a JSON round trip, matching the
// teacher's Workflow.Clone() idiom.
func (s *Sheet) Clone() (*Sheet, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var clone Sheet
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}

// AsVersion snapshots the sheet into an immutable SheetVersion carrying
// the given tag.
func (s *Sheet) AsVersion(versionID uuid.UUID, tag string) (*SheetVersion, error) {
	clone, err := s.Clone()
	if err != nil {
		return nil, err
	}
	return &SheetVersion{
		VersionID:   versionID,
		VersionTag:  tag,
		SheetID:     s.ID,
		Name:        clone.Name,
		Nodes:       clone.Nodes,
		Connections: clone.Connections,
	}, nil
}
