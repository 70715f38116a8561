package calcsvc

import (
	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/domain/model"
)

// resolveOverrides builds {node id -> value} for every input node in
// sheet, per spec.md §4.5 step 1: an id-keyed caller entry takes
// precedence over a label-keyed one for the same node; when the caller
// supplied no override at all for a node and fallbackToExample is true
// (the sheet is being run directly, as the root), the node's own stored
// example value is used instead. fallbackToExample is false for a nested
// sheet instantiation, where a missing input must fail inside that
// instance rather than silently default.
func resolveOverrides(sheet *model.Sheet, callerInputs map[string]OverrideValue, fallbackToExample bool) map[uuid.UUID]interface{} {
	out := make(map[uuid.UUID]interface{})
	for _, n := range sheet.Nodes {
		if n.Variant != model.VariantInput {
			continue
		}
		if v, ok := callerInputs[n.ID.String()]; ok {
			out[n.ID] = v.Value
			continue
		}
		if v, ok := callerInputs[n.Label]; ok {
			out[n.ID] = v.Value
			continue
		}
		if fallbackToExample {
			if v, ok := n.ConstantValue(); ok {
				out[n.ID] = v
			}
		}
	}
	return out
}
