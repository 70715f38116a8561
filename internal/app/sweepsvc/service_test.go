package sweepsvc

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parascope/calcengine/internal/app/calcsvc"
	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/app/worker"
	"github.com/parascope/calcengine/internal/domain/model"
)

type fakeRepo struct{ sheets map[uuid.UUID]*model.Sheet }

func newFakeRepo() *fakeRepo { return &fakeRepo{sheets: map[uuid.UUID]*model.Sheet{}} }

func (r *fakeRepo) FetchSheet(_ context.Context, id uuid.UUID) (*model.Sheet, error) {
	s, ok := r.sheets[id]
	if !ok {
		return nil, model.ErrSheetNotFound
	}
	return s, nil
}

func (r *fakeRepo) FetchVersion(_ context.Context, _ uuid.UUID) (*model.Sheet, error) {
	return nil, model.ErrSheetVersionNotFound
}

// fakePool runs the real SandboxImpl in-process, same strategy as
// calcsvc's own test double, so these tests exercise real scenario
// execution without forking cmd/sandboxworker.
type fakePool struct{}

func (fakePool) Execute(ctx context.Context, doc *codegen.ScriptDocument, overrides map[uuid.UUID]interface{}, timeout time.Duration, extraImports ...string) (*worker.RunResponse, error) {
	script, err := worker.EncodeScript(doc)
	if err != nil {
		return nil, err
	}
	wireOverrides := make(map[string]interface{}, len(overrides))
	for id, v := range overrides {
		wireOverrides[id.String()] = v
	}
	resp, err := worker.SandboxImpl{}.Run(worker.RunRequest{Script: script, RootOverrides: wireOverrides, ExtraImports: extraImports})
	return &resp, err
}

func (fakePool) WorkerCount() int { return 8 }

func constant(label string, value interface{}) *model.Node {
	return &model.Node{ID: uuid.New(), Label: label, Variant: model.VariantConstant, Outputs: []model.Port{{Key: "value"}}, Data: map[string]interface{}{"value": value}}
}

func inputNode(label string) *model.Node {
	return &model.Node{ID: uuid.New(), Label: label, Variant: model.VariantInput, Outputs: []model.Port{{Key: "value"}}}
}

func fn(label, code string, inPorts []string, outPort string) *model.Node {
	ins := make([]model.Port, len(inPorts))
	for i, p := range inPorts {
		ins[i] = model.Port{Key: p}
	}
	return &model.Node{ID: uuid.New(), Label: label, Variant: model.VariantFunction, Inputs: ins, Outputs: []model.Port{{Key: outPort}}, Data: map[string]interface{}{"code": code}}
}

func output(label string) *model.Node {
	return &model.Node{ID: uuid.New(), Label: label, Variant: model.VariantOutput, Inputs: []model.Port{{Key: "value"}}}
}

func conn(src *model.Node, srcPort string, dst *model.Node, dstPort string) *model.Connection {
	return &model.Connection{SourceNodeID: src.ID, SourcePort: srcPort, TargetNodeID: dst.ID, TargetPort: dstPort}
}

func newTestService(repo *fakeRepo) *Service {
	return &Service{repo: repo, pool: fakePool{}, validate: validator.New()}
}

// TestSweep_OneDimensional_VelocityDistance reproduces spec.md's sweep
// scenario: dist = v * cos(a in radians), a pinned at 45 degrees, v swept
// 10 to 20 by 10 — two rows, headers [V, Result].
func TestSweep_OneDimensional_VelocityDistance(t *testing.T) {
	repo := newFakeRepo()
	v := inputNode("V")
	a := constant("a", 45.0)
	r := fn("r", "v * math.Cos(a * math.Pi / 180)", []string{"v", "a"}, "r")
	dist := output("Result")
	sheet := &model.Sheet{
		ID:   uuid.New(),
		Name: "Projectile",
		Nodes: []*model.Node{v, a, r, dist},
		Connections: []*model.Connection{
			conn(v, "value", r, "v"),
			conn(a, "value", r, "a"),
			conn(r, "r", dist, "value"),
		},
	}
	repo.sheets[sheet.ID] = sheet

	svc := newTestService(repo)
	start, end, incr := 10.0, 20.0, 10.0
	resp, err := svc.Sweep(context.Background(), SweepRequest{
		SheetID:       sheet.ID,
		Primary:       AxisSpec{InputNodeID: v.ID, Start: &start, End: &end, Increment: &incr},
		OutputNodeIDs: []uuid.UUID{dist.ID},
	})
	require.NoError(t, err)
	require.Empty(t, resp.Error)

	require.Len(t, resp.Headers, 2)
	assert.Equal(t, "V", resp.Headers[0].Label)
	assert.Equal(t, "Result", resp.Headers[1].Label)

	require.Len(t, resp.Rows, 2)
	assert.Equal(t, []interface{}{"10.0", "7.0710678118654755"}, resp.Rows[0])
	assert.Equal(t, []interface{}{"20.0", "14.142135623730951"}, resp.Rows[1])
	for _, m := range resp.Metadata {
		assert.Empty(t, m.Error)
	}
}

// TestSweep_TwoDimensional_CartesianOrder checks that a secondary axis
// produces the full Cartesian product in secondary-outer, primary-inner
// row order.
func TestSweep_TwoDimensional_CartesianOrder(t *testing.T) {
	repo := newFakeRepo()
	x := inputNode("X")
	y := inputNode("Y")
	sum := fn("sum", "x + y", []string{"x", "y"}, "z")
	out := output("Result")
	sheet := &model.Sheet{
		ID:   uuid.New(),
		Name: "Sum",
		Nodes: []*model.Node{x, y, sum, out},
		Connections: []*model.Connection{
			conn(x, "value", sum, "x"),
			conn(y, "value", sum, "y"),
			conn(sum, "z", out, "value"),
		},
	}
	repo.sheets[sheet.ID] = sheet

	svc := newTestService(repo)
	resp, err := svc.Sweep(context.Background(), SweepRequest{
		SheetID: sheet.ID,
		Primary: AxisSpec{InputNodeID: x.ID, ManualValues: []interface{}{1.0, 2.0}},
		Secondary: &AxisSpec{InputNodeID: y.ID, ManualValues: []interface{}{10.0, 20.0}},
		OutputNodeIDs: []uuid.UUID{out.ID},
	})
	require.NoError(t, err)
	require.Empty(t, resp.Error)

	require.Len(t, resp.Rows, 4)
	assert.Equal(t, []interface{}{"1.0", "10.0", "11"}, resp.Rows[0])
	assert.Equal(t, []interface{}{"2.0", "10.0", "12"}, resp.Rows[1])
	assert.Equal(t, []interface{}{"1.0", "20.0", "21"}, resp.Rows[2])
	assert.Equal(t, []interface{}{"2.0", "20.0", "22"}, resp.Rows[3])
}

// TestSweep_StaticOverride_IdBeatsLabel checks that static overrides
// follow the same caller-id-beats-label precedence as Calculate.
func TestSweep_StaticOverride_IdBeatsLabel(t *testing.T) {
	repo := newFakeRepo()
	v := inputNode("V")
	scale := inputNode("Scale")
	r := fn("r", "v * scale", []string{"v", "scale"}, "r")
	out := output("Result")
	sheet := &model.Sheet{
		ID:   uuid.New(),
		Name: "Scaled",
		Nodes: []*model.Node{v, scale, r, out},
		Connections: []*model.Connection{
			conn(v, "value", r, "v"),
			conn(scale, "value", r, "scale"),
			conn(r, "r", out, "value"),
		},
	}
	repo.sheets[sheet.ID] = sheet

	svc := newTestService(repo)
	resp, err := svc.Sweep(context.Background(), SweepRequest{
		SheetID:       sheet.ID,
		Primary:       AxisSpec{InputNodeID: v.ID, ManualValues: []interface{}{1.0}},
		OutputNodeIDs: []uuid.UUID{out.ID},
		StaticOverrides: map[string]calcsvc.OverrideValue{
			"Scale":           {Value: 1.0},
			scale.ID.String(): {Value: 5.0},
		},
	})
	require.NoError(t, err)
	require.Empty(t, resp.Error)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "5", resp.Rows[0][1])
}

// TestSweep_PrimaryAxisUnderspecified_ReturnsError checks that an axis
// with neither manual values nor a start/end/increment triple surfaces a
// validation error rather than panicking.
func TestSweep_PrimaryAxisUnderspecified_ReturnsError(t *testing.T) {
	repo := newFakeRepo()
	v := inputNode("V")
	out := output("Result")
	sheet := &model.Sheet{
		ID:          uuid.New(),
		Name:        "Broken",
		Nodes:       []*model.Node{v, out},
		Connections: []*model.Connection{conn(v, "value", out, "value")},
	}
	repo.sheets[sheet.ID] = sheet

	svc := newTestService(repo)
	_, err := svc.Sweep(context.Background(), SweepRequest{
		SheetID:       sheet.ID,
		Primary:       AxisSpec{InputNodeID: v.ID},
		OutputNodeIDs: []uuid.UUID{out.ID},
	})
	assert.ErrorIs(t, err, ErrAxisUnderspecified)
}
