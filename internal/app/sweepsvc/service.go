package sweepsvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/app/calcsvc"
	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/app/worker"
	"github.com/parascope/calcengine/internal/config"
	"github.com/parascope/calcengine/internal/domain/model"
	"github.com/parascope/calcengine/internal/domain/repository"
)

// pool is the subset of *worker.Pool the service depends on, narrowed the
// same way calcsvc.Service narrows it so tests can substitute a double.
type pool interface {
	Execute(ctx context.Context, doc *codegen.ScriptDocument, rootOverrides map[uuid.UUID]interface{}, timeout time.Duration, extraImports ...string) (*worker.RunResponse, error)
	WorkerCount() int
}

// Service implements the Sweep operation.
type Service struct {
	repo         repository.GraphRepository
	pool         pool
	extraImports []string
	validate     *validator.Validate
}

// New builds a Service wired to repo and pool, reading the sandbox's
// extra allowed imports from cfg.
func New(repo repository.GraphRepository, p *worker.Pool, sandboxCfg config.SandboxConfig) *Service {
	return &Service{
		repo:         repo,
		pool:         p,
		extraImports: sandboxCfg.ExtraAllowedImports,
		validate:     validator.New(),
	}
}

// scenario is one (primary, secondary) value pair to run.
type scenario struct {
	primaryIdx   int
	secondaryIdx int
	primary      interface{}
	secondary    interface{}
}

// scenarioResult is one scenario's outcome, addressed by its row index so
// results can be written back in deterministic order regardless of which
// goroutine finishes first.
type scenarioResult struct {
	row      []interface{}
	metadata RowMetadata
}

// Sweep runs req.SheetID once per combination of swept input values,
// fanning the scenarios out across the worker pool bounded by the pool's
// worker count, and assembles the per-scenario output node values into a
// table (spec.md §4.6).
func (s *Service) Sweep(ctx context.Context, req SweepRequest) (*SweepResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	sheet, err := s.repo.FetchSheet(ctx, req.SheetID)
	if err != nil {
		return nil, err
	}

	primaryNode, err := sheet.GetNode(req.Primary.InputNodeID)
	if err != nil {
		return nil, err
	}
	primaryValues, err := generateValues(req.Primary)
	if err != nil {
		return nil, err
	}

	var secondaryNode *model.Node
	var secondaryValues []interface{}
	if req.Secondary != nil {
		secondaryNode, err = sheet.GetNode(req.Secondary.InputNodeID)
		if err != nil {
			return nil, err
		}
		secondaryValues, err = generateValues(*req.Secondary)
		if err != nil {
			return nil, err
		}
	}

	// Hard caps (spec.md §4.6): a sweep that would exceed them is
	// truncated to its cap rather than rejected outright, so a caller
	// probing a wide range still gets a usable (if partial) table.
	if secondaryNode == nil {
		if len(primaryValues) > maxSteps1D {
			primaryValues = primaryValues[:maxSteps1D]
		}
	} else {
		total := len(primaryValues) * len(secondaryValues)
		if total > maxSteps2D {
			for len(primaryValues)*len(secondaryValues) > maxSteps2D && len(secondaryValues) > 1 {
				secondaryValues = secondaryValues[:len(secondaryValues)-1]
			}
			for len(primaryValues)*len(secondaryValues) > maxSteps2D && len(primaryValues) > 1 {
				primaryValues = primaryValues[:len(primaryValues)-1]
			}
		}
	}

	outputNodes := make([]*model.Node, len(req.OutputNodeIDs))
	for i, id := range req.OutputNodeIDs {
		n, err := sheet.GetNode(id)
		if err != nil {
			return nil, err
		}
		outputNodes[i] = n
	}

	doc, err := codegen.Generate(ctx, s.repo, sheet)
	if err != nil {
		return &SweepResponse{Error: err.Error()}, nil
	}

	baseOverrides := resolveStaticOverrides(sheet, req.StaticOverrides)

	scenarios := buildScenarios(primaryValues, secondaryValues)
	timeout := scenarioTimeout(len(scenarios))

	results := s.runScenarios(ctx, doc, req.Primary.InputNodeID, req.Secondary, scenarios, baseOverrides, timeout, outputNodes)

	headers := buildHeaders(primaryNode, secondaryNode, outputNodes)
	rows := make([][]interface{}, len(results))
	metadata := make([]RowMetadata, len(results))
	for i, r := range results {
		rows[i] = r.row
		metadata[i] = r.metadata
	}

	return &SweepResponse{Headers: headers, Rows: rows, Metadata: metadata}, nil
}

// resolveStaticOverrides turns the caller's label/id-keyed static
// overrides into the id-keyed form the worker pool expects, reusing the
// same caller-first, id-beats-label precedence as Calculate (spec.md
// §4.5 step 1); unlike Calculate, a sweep never falls back to a node's
// stored example value for inputs the caller didn't set.
func resolveStaticOverrides(sheet *model.Sheet, overrides map[string]calcsvc.OverrideValue) map[uuid.UUID]interface{} {
	byLabel := make(map[string]uuid.UUID, len(sheet.Nodes))
	for _, n := range sheet.Nodes {
		byLabel[n.Label] = n.ID
	}

	out := make(map[uuid.UUID]interface{}, len(overrides))
	for key, v := range overrides {
		if id, err := uuid.Parse(key); err == nil {
			out[id] = v.Value
			continue
		}
		if id, ok := byLabel[key]; ok {
			if _, exists := out[id]; !exists {
				out[id] = v.Value
			}
		}
	}
	return out
}

// buildScenarios enumerates the Cartesian product of primary and
// secondary values in secondary-outer, primary-inner order, matching the
// row order promised by spec.md §4.6. A nil secondary set degenerates to
// a single-axis sweep.
func buildScenarios(primary, secondary []interface{}) []scenario {
	if len(secondary) == 0 {
		out := make([]scenario, len(primary))
		for i, v := range primary {
			out[i] = scenario{primaryIdx: i, secondaryIdx: -1, primary: v}
		}
		return out
	}
	out := make([]scenario, 0, len(primary)*len(secondary))
	for si, sv := range secondary {
		for pi, pv := range primary {
			out = append(out, scenario{primaryIdx: pi, secondaryIdx: si, primary: pv, secondary: sv})
		}
	}
	return out
}

// scenarioTimeout scales the per-worker request timeout with the sweep's
// total step count (spec.md §4.6: 30 + 0.05*steps seconds), so a large
// sweep's individual scenario runs aren't starved by a timeout sized for
// a single calculation.
func scenarioTimeout(steps int) time.Duration {
	seconds := 30.0 + 0.05*float64(steps)
	return time.Duration(seconds * float64(time.Second))
}

// runScenarios fans scenarios out across the worker pool, bounded by the
// pool's own worker count so the fan-out never over-subscribes it, and
// writes each result back into an index-addressed slice so row order is
// deterministic regardless of completion order.
func (s *Service) runScenarios(
	ctx context.Context,
	doc *codegen.ScriptDocument,
	primaryInputID uuid.UUID,
	secondaryAxis *AxisSpec,
	scenarios []scenario,
	baseOverrides map[uuid.UUID]interface{},
	timeout time.Duration,
	outputNodes []*model.Node,
) []scenarioResult {
	results := make([]scenarioResult, len(scenarios))

	maxPar := s.pool.WorkerCount()
	if maxPar < 1 {
		maxPar = 1
	}
	if len(scenarios) < maxPar {
		maxPar = len(scenarios)
	}
	semaphore := make(chan struct{}, maxPar)

	var wg sync.WaitGroup
	for i, sc := range scenarios {
		wg.Add(1)
		go func(idx int, sc scenario) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = scenarioResult{metadata: RowMetadata{Error: ctx.Err().Error()}}
				return
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			}

			overrides := make(map[uuid.UUID]interface{}, len(baseOverrides)+2)
			for k, v := range baseOverrides {
				overrides[k] = v
			}
			overrides[primaryInputID] = sc.primary
			if secondaryAxis != nil {
				overrides[secondaryAxis.InputNodeID] = sc.secondary
			}

			results[idx] = s.runScenario(ctx, doc, overrides, timeout, outputNodes, sc)
		}(i, sc)
	}
	wg.Wait()

	return results
}

// runScenario executes a single scenario and renders its row: the swept
// input values followed by each requested output node's scalar, with
// numeric values serialized the same way Calculate's result tree is.
func (s *Service) runScenario(ctx context.Context, doc *codegen.ScriptDocument, overrides map[uuid.UUID]interface{}, timeout time.Duration, outputNodes []*model.Node, sc scenario) scenarioResult {
	meta := RowMetadata{PrimaryValue: serializeScalar(sc.primary)}
	if sc.secondaryIdx >= 0 {
		meta.SecondaryValue = serializeScalar(sc.secondary)
	}

	row := make([]interface{}, 0, 2+len(outputNodes))
	row = append(row, meta.PrimaryValue)
	if sc.secondaryIdx >= 0 {
		row = append(row, meta.SecondaryValue)
	}

	resp, err := s.pool.Execute(ctx, doc, overrides, timeout, s.extraImports...)
	if err != nil {
		meta.Error = err.Error()
		return scenarioResult{row: padNil(row, len(outputNodes)), metadata: meta}
	}
	if !resp.Success {
		meta.Error = resp.Error
		return scenarioResult{row: padNil(row, len(outputNodes)), metadata: meta}
	}

	var tree map[uuid.UUID]*model.NodeResult
	if err := json.Unmarshal(resp.Results, &tree); err != nil {
		meta.Error = err.Error()
		return scenarioResult{row: padNil(row, len(outputNodes)), metadata: meta}
	}

	for _, n := range outputNodes {
		res, ok := tree[n.ID]
		if !ok || !res.IsComputable {
			row = append(row, nil)
			continue
		}
		row = append(row, serializeScalar(res.Value))
	}

	return scenarioResult{row: row, metadata: meta}
}

func padNil(row []interface{}, outputs int) []interface{} {
	for i := 0; i < outputs; i++ {
		row = append(row, nil)
	}
	return row
}

// buildHeaders orders the table's columns: the primary axis, the
// secondary axis if present, then every requested output node.
func buildHeaders(primary, secondary *model.Node, outputs []*model.Node) []ColumnHeader {
	headers := make([]ColumnHeader, 0, 2+len(outputs))
	headers = append(headers, ColumnHeader{ID: primary.ID.String(), Label: primary.Label, Kind: "input"})
	if secondary != nil {
		headers = append(headers, ColumnHeader{ID: secondary.ID.String(), Label: secondary.Label, Kind: "input"})
	}
	for _, n := range outputs {
		headers = append(headers, ColumnHeader{ID: n.ID.String(), Label: n.Label, Kind: "output"})
	}
	return headers
}
