package codegen

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"

	"github.com/parascope/calcengine/internal/app/exprenv"
	"github.com/parascope/calcengine/internal/domain/model"
	"github.com/parascope/calcengine/internal/domain/repository"
)

var identSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// sanitizeIdent derives a target-language identifier from an arbitrary
// display string: non-alphanumerics collapse to underscores, a leading
// digit is prefixed, and an empty result falls back to "unnamed".
func sanitizeIdent(s string) string {
	cleaned := identSanitizer.ReplaceAllString(strings.TrimSpace(s), "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		cleaned = "unnamed"
	}
	if cleaned[0] >= '0' && cleaned[0] <= '9' {
		cleaned = "_" + cleaned
	}
	return cleaned
}

// generator holds the call-local state for one Generate invocation: the
// processed-set preventing re-emission, the in-progress set bounding
// runaway recursion on a cycle, the sheet-reference graph used for the
// authoritative cycle check, and the global class-name collision set.
type generator struct {
	ctx context.Context
	repo repository.GraphRepository

	doc        *ScriptDocument
	visited    map[SheetKey]bool
	inProgress map[SheetKey]bool
	refGraph   *core.Graph
	refEdges   map[[2]SheetKey]bool
	classNames map[string]bool
}

// Generate walks root and every sheet/version it transitively references
// through sheet-variant nodes, returning the resulting ScriptDocument.
// repo resolves nested sheetId/versionId references.
func Generate(ctx context.Context, repo repository.GraphRepository, root *model.Sheet) (*ScriptDocument, error) {
	rootKey := NewSheetKey(root.ID, nil)

	g := &generator{
		ctx:  ctx,
		repo: repo,
		doc: &ScriptDocument{
			Root:   rootKey,
			Sheets: make(map[SheetKey]*SheetProgram),
		},
		visited:    make(map[SheetKey]bool),
		inProgress: make(map[SheetKey]bool),
		refGraph:   core.NewGraph(core.WithDirected(true)),
		refEdges:   make(map[[2]SheetKey]bool),
		classNames: make(map[string]bool),
	}

	if err := g.refGraph.AddVertex(string(rootKey)); err != nil {
		return nil, &model.CompilationError{SheetID: root.ID.String(), Err: err}
	}

	if err := g.emitSheet(rootKey, root); err != nil {
		return nil, err
	}

	hasCycle, cycles, err := dfs.DetectCycles(g.refGraph)
	if err != nil {
		return nil, &model.CompilationError{SheetID: root.ID.String(), Err: err}
	}
	if hasCycle {
		return nil, &model.CompilationError{
			SheetID: root.ID.String(),
			Err:     fmt.Errorf("%w: %v", ErrCyclicSheetReference, cycles),
		}
	}

	return g.doc, nil
}

// emitSheet depth-first walks sheet's nested sheet-variant nodes first
// (so referenced classes resolve before this one is registered), then
// builds this sheet's NodeProgram list.
func (g *generator) emitSheet(key SheetKey, sheet *model.Sheet) error {
	if g.visited[key] {
		return nil
	}
	if g.inProgress[key] {
		// Already on the recursion stack: the edge recording this
		// revisit is already in refGraph; stop descending and let the
		// post-walk DetectCycles pass raise the formal error.
		return nil
	}
	g.inProgress[key] = true
	defer delete(g.inProgress, key)

	childKeys := make(map[uuid.UUID]SheetKey, len(sheet.Nodes))
	for _, n := range sheet.Nodes {
		if n.Variant != model.VariantSheet {
			continue
		}
		ref, err := n.SheetRef()
		if err != nil {
			return &model.CompilationError{SheetID: sheet.ID.String(), NodeID: n.ID.String(), Err: err}
		}

		childSheet, childKey, err := g.resolveSheetRef(ref)
		if err != nil {
			return &model.CompilationError{SheetID: sheet.ID.String(), NodeID: n.ID.String(), Err: err}
		}
		childKeys[n.ID] = childKey

		if err := g.refGraph.AddVertex(string(childKey)); err != nil {
			return &model.CompilationError{SheetID: sheet.ID.String(), NodeID: n.ID.String(), Err: err}
		}
		edge := [2]SheetKey{key, childKey}
		if !g.refEdges[edge] {
			g.refEdges[edge] = true
			if _, err := g.refGraph.AddEdge(string(key), string(childKey), 0); err != nil {
				return &model.CompilationError{SheetID: sheet.ID.String(), NodeID: n.ID.String(), Err: err}
			}
		}

		if err := g.emitSheet(childKey, childSheet); err != nil {
			return err
		}
	}

	prog := &SheetProgram{
		SheetID:   sheet.ID,
		VersionID: versionIDOf(key),
		ClassName: g.uniqueClassName(sheet.Name),
	}

	inputsByTarget := buildInputIndex(sheet)
	methodNames := make(map[string]bool)
	for _, n := range sheet.Nodes {
		if n.Variant == model.VariantComment {
			continue
		}
		np, err := g.emitNode(sheet, n, methodNames, childKeys, inputsByTarget)
		if err != nil {
			return err
		}
		prog.Nodes = append(prog.Nodes, np)
	}

	g.doc.Sheets[key] = prog
	g.visited[key] = true
	return nil
}

// buildInputIndex maps each node id to its resolved incoming connections,
// keyed by the target port it feeds.
func buildInputIndex(sheet *model.Sheet) map[uuid.UUID]map[string]InputRef {
	idx := make(map[uuid.UUID]map[string]InputRef, len(sheet.Nodes))
	for _, c := range sheet.Connections {
		if idx[c.TargetNodeID] == nil {
			idx[c.TargetNodeID] = make(map[string]InputRef)
		}
		idx[c.TargetNodeID][c.TargetPort] = InputRef{SourceNodeID: c.SourceNodeID, SourcePort: c.SourcePort}
	}
	return idx
}

func (g *generator) emitNode(
	sheet *model.Sheet,
	n *model.Node,
	methodNames map[string]bool,
	childKeys map[uuid.UUID]SheetKey,
	inputsByTarget map[uuid.UUID]map[string]InputRef,
) (*NodeProgram, error) {
	np := &NodeProgram{
		NodeID:     n.ID,
		Variant:    n.Variant,
		Label:      n.Label,
		MethodName: g.uniqueMethodName(methodNames, n.Label),
		Inputs:     inputsByTarget[n.ID],
		Outputs:    n.Outputs,
	}

	switch n.Variant {
	case model.VariantConstant, model.VariantInput:
		v, _ := n.ConstantValue()
		np.Config.Value = v
		np.Config.Bounds = n.Bounds()
	case model.VariantOutput:
		np.Config.Bounds = n.Bounds()
	case model.VariantFunction:
		code, err := n.FunctionCode()
		if err != nil {
			return nil, &model.CompilationError{SheetID: sheet.ID.String(), NodeID: n.ID.String(), Err: err}
		}
		marked := fmt.Sprintf("# NODE_ID:%s\n%s", n.ID, code)
		np.Config.Code = marked
		if syntaxErr := exprenv.CheckSyntax(code); syntaxErr != nil {
			// Per spec.md §4.4/§7: a parse failure is a per-node runtime
			// error, never a whole-compilation failure.
			np.Config.ParseError = syntaxErr.Error()
		}
	case model.VariantSheet:
		key, ok := childKeys[n.ID]
		if !ok {
			ref, err := n.SheetRef()
			if err != nil {
				return nil, &model.CompilationError{SheetID: sheet.ID.String(), NodeID: n.ID.String(), Err: err}
			}
			_, resolvedKey, err := g.resolveSheetRef(ref)
			if err != nil {
				return nil, &model.CompilationError{SheetID: sheet.ID.String(), NodeID: n.ID.String(), Err: err}
			}
			key = resolvedKey
		}
		np.Config.SheetTarget = key
	case model.VariantLUT:
		rows, err := n.LUTRows()
		if err != nil {
			return nil, &model.CompilationError{SheetID: sheet.ID.String(), NodeID: n.ID.String(), Err: err}
		}
		np.Config.LUTRows = rows
	}

	return np, nil
}

// resolveSheetRef fetches the referenced sheet (or pinned version) and
// computes its canonical key.
func (g *generator) resolveSheetRef(ref model.SheetRef) (*model.Sheet, SheetKey, error) {
	if ref.VersionID != nil {
		sheet, err := g.repo.FetchVersion(g.ctx, *ref.VersionID)
		if err != nil {
			return nil, "", err
		}
		return sheet, NewSheetKey(ref.SheetID, ref.VersionID), nil
	}
	sheet, err := g.repo.FetchSheet(g.ctx, ref.SheetID)
	if err != nil {
		return nil, "", err
	}
	return sheet, NewSheetKey(ref.SheetID, nil), nil
}

// uniqueClassName sanitizes sheet.Name and de-duplicates it against every
// class name already emitted in this compilation unit with a numeric
// suffix, matching spec.md §4.4's "Sheet-to-class" naming rule.
func (g *generator) uniqueClassName(name string) string {
	base := "Sheet_" + sanitizeIdent(name)
	return g.dedupe(base)
}

// uniqueMethodName sanitizes label and de-duplicates it within the single
// sheet currently being emitted, per spec.md §4.4's "Node-to-method" rule.
func (g *generator) uniqueMethodName(taken map[string]bool, label string) string {
	base := "node_" + sanitizeIdent(label)
	candidate := base
	for i := 2; taken[candidate]; i++ {
		candidate = base + "_" + strconv.Itoa(i)
	}
	taken[candidate] = true
	return candidate
}

func (g *generator) dedupe(base string) string {
	candidate := base
	for i := 2; g.classNames[candidate]; i++ {
		candidate = base + "_" + strconv.Itoa(i)
	}
	g.classNames[candidate] = true
	return candidate
}

// versionIDOf extracts the optional version id embedded in a SheetKey.
func versionIDOf(key SheetKey) *uuid.UUID {
	parts := strings.SplitN(string(key), "@", 2)
	if len(parts) != 2 {
		return nil
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil
	}
	return &id
}
