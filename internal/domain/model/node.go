package model

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeVariant identifies the behavioral contract a Node implements. The
// sandbox runtime dispatches on this tag; the code generator uses it to
// pick which recognized data-bag fields to decode.
type NodeVariant string

const (
	VariantConstant NodeVariant = "constant"
	VariantInput    NodeVariant = "input"
	VariantFunction NodeVariant = "function"
	VariantSheet    NodeVariant = "sheet"
	VariantLUT      NodeVariant = "lut"
	VariantOutput   NodeVariant = "output"
	VariantComment  NodeVariant = "comment"
)

func (v NodeVariant) valid() bool {
	switch v {
	case VariantConstant, VariantInput, VariantFunction, VariantSheet, VariantLUT, VariantOutput, VariantComment:
		return true
	}
	return false
}

// Port is a named argument or return slot on a Node.
type Port struct {
	Key string `json:"key"`
}

// Node is a single computation unit within a Sheet. Its Data bag is
// free-form; the recognized fields per Variant are decoded on demand by
// the typed accessors below rather than unpacked eagerly, so that an
// unrecognized or comment node never pays a decode cost.
type Node struct {
	ID      uuid.UUID              `json:"id"`
	Label   string                 `json:"label"`
	Variant NodeVariant            `json:"variant"`
	Inputs  []Port                 `json:"inputs,omitempty"`
	Outputs []Port                 `json:"outputs,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Bounds is the optional min/max range carried by constant, input and
// output nodes.
type Bounds struct {
	Min    *float64
	Max    *float64
	Option bool
	// Options holds the declared choice set when Option is true
	// (dataType="option").
	Options []string
}

// Validate checks structural invariants only; acyclicity and
// sheet-reference resolution are compile-time concerns owned by the code
// generator and sandbox runtime.
func (n *Node) Validate() error {
	if n.ID == uuid.Nil {
		return &ValidationError{Field: "id", Message: "node id is required"}
	}
	if !n.Variant.valid() {
		return &ValidationError{Field: "variant", Message: fmt.Sprintf("unrecognized node variant %q", n.Variant)}
	}

	seen := make(map[string]bool, len(n.Inputs))
	for _, p := range n.Inputs {
		if p.Key == "" {
			return &ValidationError{Field: "inputs", Message: "input port key must not be empty"}
		}
		if seen[p.Key] {
			return &ValidationError{Field: "inputs", Message: fmt.Sprintf("duplicate input port key %q", p.Key)}
		}
		seen[p.Key] = true
	}

	seen = make(map[string]bool, len(n.Outputs))
	for _, p := range n.Outputs {
		if p.Key == "" {
			return &ValidationError{Field: "outputs", Message: "output port key must not be empty"}
		}
		if seen[p.Key] {
			return &ValidationError{Field: "outputs", Message: fmt.Sprintf("duplicate output port key %q", p.Key)}
		}
		seen[p.Key] = true
	}

	switch n.Variant {
	case VariantFunction:
		if _, ok := n.Data["code"]; !ok {
			return &ValidationError{Field: "data.code", Message: "function node requires code"}
		}
	case VariantSheet:
		if _, ok := n.Data["sheetId"]; !ok {
			return &ValidationError{Field: "data.sheetId", Message: "sheet node requires sheetId"}
		}
	case VariantLUT:
		rows, ok := n.Data["lut"]
		if !ok {
			return &ValidationError{Field: "data.lut", Message: "lut node requires lut.rows"}
		}
		if _, ok := rows.(map[string]interface{})["rows"]; !ok {
			return &ValidationError{Field: "data.lut.rows", Message: "lut node requires a rows list"}
		}
	}

	return nil
}

// ConstantValue returns the constant/input node's configured default
// value and whether one was present.
func (n *Node) ConstantValue() (interface{}, bool) {
	v, ok := n.Data["value"]
	return v, ok
}

// FunctionCode returns the function node's body text.
func (n *Node) FunctionCode() (string, error) {
	raw, ok := n.Data["code"]
	if !ok {
		return "", &ValidationError{Field: "data.code", Message: "function node missing code"}
	}
	code, ok := raw.(string)
	if !ok {
		return "", &ValidationError{Field: "data.code", Message: "function node code must be a string"}
	}
	return code, nil
}

// SheetRef is the decoded {sheetId, versionId?} pair of a sheet node.
type SheetRef struct {
	SheetID   uuid.UUID
	VersionID *uuid.UUID
}

// SheetRef decodes the sheet node's target reference.
func (n *Node) SheetRef() (SheetRef, error) {
	raw, ok := n.Data["sheetId"]
	if !ok {
		return SheetRef{}, &ValidationError{Field: "data.sheetId", Message: "sheet node missing sheetId"}
	}
	idStr, ok := raw.(string)
	if !ok {
		return SheetRef{}, &ValidationError{Field: "data.sheetId", Message: "sheetId must be a string"}
	}
	sheetID, err := uuid.Parse(idStr)
	if err != nil {
		return SheetRef{}, &ValidationError{Field: "data.sheetId", Message: "sheetId is not a valid id: " + err.Error()}
	}

	ref := SheetRef{SheetID: sheetID}
	if rawVer, ok := n.Data["versionId"]; ok && rawVer != nil {
		verStr, ok := rawVer.(string)
		if !ok {
			return SheetRef{}, &ValidationError{Field: "data.versionId", Message: "versionId must be a string"}
		}
		versionID, err := uuid.Parse(verStr)
		if err != nil {
			return SheetRef{}, &ValidationError{Field: "data.versionId", Message: "versionId is not a valid id: " + err.Error()}
		}
		ref.VersionID = &versionID
	}
	return ref, nil
}

// LUTRow is one row of a lut node's lookup table.
type LUTRow struct {
	Key    interface{}
	Values map[string]interface{}
}

// LUTRows decodes the lut node's row list, in declared order.
func (n *Node) LUTRows() ([]LUTRow, error) {
	raw, ok := n.Data["lut"]
	if !ok {
		return nil, &ValidationError{Field: "data.lut", Message: "lut node missing lut data"}
	}
	lutMap, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &ValidationError{Field: "data.lut", Message: "lut field must be an object"}
	}
	rawRows, ok := lutMap["rows"]
	if !ok {
		return nil, &ValidationError{Field: "data.lut.rows", Message: "lut node missing rows"}
	}
	rowList, ok := rawRows.([]interface{})
	if !ok {
		return nil, &ValidationError{Field: "data.lut.rows", Message: "rows must be a list"}
	}

	rows := make([]LUTRow, 0, len(rowList))
	for i, rawRow := range rowList {
		rowMap, ok := rawRow.(map[string]interface{})
		if !ok {
			return nil, &ValidationError{Field: "data.lut.rows", Message: fmt.Sprintf("row %d must be an object", i)}
		}
		key, ok := rowMap["key"]
		if !ok {
			return nil, &ValidationError{Field: "data.lut.rows", Message: fmt.Sprintf("row %d missing key", i)}
		}
		rawValues, ok := rowMap["values"]
		if !ok {
			return nil, &ValidationError{Field: "data.lut.rows", Message: fmt.Sprintf("row %d missing values", i)}
		}
		values, ok := rawValues.(map[string]interface{})
		if !ok {
			return nil, &ValidationError{Field: "data.lut.rows", Message: fmt.Sprintf("row %d values must be an object", i)}
		}
		rows = append(rows, LUTRow{Key: key, Values: values})
	}
	return rows, nil
}

// Bounds decodes the optional min/max/option constraint shared by
// constant, input and output nodes.
func (n *Node) Bounds() Bounds {
	var b Bounds
	if raw, ok := n.Data["min"]; ok {
		if f, ok := toFloat(raw); ok {
			b.Min = &f
		}
	}
	if raw, ok := n.Data["max"]; ok {
		if f, ok := toFloat(raw); ok {
			b.Max = &f
		}
	}
	if dt, _ := n.Data["dataType"].(string); dt == "option" {
		b.Option = true
		if raw, ok := n.Data["options"].([]interface{}); ok {
			for _, o := range raw {
				if s, ok := o.(string); ok {
					b.Options = append(b.Options, s)
				}
			}
		}
	}
	return b
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
