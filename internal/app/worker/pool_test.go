package worker

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/config"
	"github.com/parascope/calcengine/internal/domain/model"
)

type fakeClient struct {
	run func(RunRequest) (RunResponse, error)
}

func (f *fakeClient) Run(req RunRequest) (RunResponse, error) { return f.run(req) }

type fakeCloser struct{ closed *bool }

func (c fakeCloser) Close() error {
	*c.closed = true
	return nil
}

func trivialDoc() *codegen.ScriptDocument {
	sheetID := uuid.New()
	key := codegen.NewSheetKey(sheetID, nil)
	return &codegen.ScriptDocument{
		Root: key,
		Sheets: map[codegen.SheetKey]*codegen.SheetProgram{
			key: {SheetID: sheetID, ClassName: "Sheet_Test"},
		},
	}
}

func TestPool_Execute_Success(t *testing.T) {
	closed := false
	factory := func() (SandboxRPC, io.Closer, error) {
		return &fakeClient{run: func(RunRequest) (RunResponse, error) {
			return RunResponse{Success: true, Outputs: map[string]interface{}{"ok": true}}, nil
		}}, fakeCloser{closed: &closed}, nil
	}
	pool, err := newPoolWithFactory(config.WorkerPoolConfig{WorkerCount: 1}, factory)
	require.NoError(t, err)
	defer pool.Close()

	resp, err := pool.Execute(context.Background(), trivialDoc(), nil, time.Second)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, true, resp.Outputs["ok"])
}

func TestPool_Execute_Timeout(t *testing.T) {
	spawnCount := 0
	factory := func() (SandboxRPC, io.Closer, error) {
		spawnCount++
		return &fakeClient{run: func(RunRequest) (RunResponse, error) {
			time.Sleep(50 * time.Millisecond)
			return RunResponse{Success: true}, nil
		}}, fakeCloser{closed: new(bool)}, nil
	}
	pool, err := newPoolWithFactory(config.WorkerPoolConfig{WorkerCount: 1}, factory)
	require.NoError(t, err)
	defer pool.Close()

	resp, err := pool.Execute(context.Background(), trivialDoc(), nil, 5*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "timed out")

	// The killed slot respawns lazily on the next call against it.
	_, err = pool.Execute(context.Background(), trivialDoc(), nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, spawnCount)
}

func TestPool_RoundRobin(t *testing.T) {
	var mu sync.Mutex
	var calls []int
	spawnIdx := 0
	factory := func() (SandboxRPC, io.Closer, error) {
		id := spawnIdx
		spawnIdx++
		return &fakeClient{run: func(RunRequest) (RunResponse, error) {
			mu.Lock()
			calls = append(calls, id)
			mu.Unlock()
			return RunResponse{Success: true}, nil
		}}, fakeCloser{closed: new(bool)}, nil
	}
	pool, err := newPoolWithFactory(config.WorkerPoolConfig{WorkerCount: 2}, factory)
	require.NoError(t, err)
	defer pool.Close()

	for i := 0; i < 3; i++ {
		_, err := pool.Execute(context.Background(), trivialDoc(), nil, time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{0, 1, 0}, calls)
}

// TestPool_PerWorkerFIFO covers invariant 8: submissions serialized
// through a single slot complete in the order they were submitted, with
// no interleaving from the slot's own mutex.
func TestPool_PerWorkerFIFO(t *testing.T) {
	factory := func() (SandboxRPC, io.Closer, error) {
		return &fakeClient{run: func(RunRequest) (RunResponse, error) {
			time.Sleep(5 * time.Millisecond)
			return RunResponse{Success: true}, nil
		}}, fakeCloser{closed: new(bool)}, nil
	}
	pool, err := newPoolWithFactory(config.WorkerPoolConfig{WorkerCount: 1}, factory)
	require.NoError(t, err)
	defer pool.Close()

	const n = 5
	var mu sync.Mutex
	var completionOrder []int
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			time.Sleep(time.Duration(idx) * 20 * time.Millisecond)
			_, err := pool.Execute(context.Background(), trivialDoc(), nil, time.Second)
			require.NoError(t, err)
			mu.Lock()
			completionOrder = append(completionOrder, idx)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, completionOrder)
}

type fakeRepo struct{ sheets map[uuid.UUID]*model.Sheet }

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

// TestPool_Execute_RealSandboxImpl wires a real generated ScriptDocument
// through the real SandboxImpl (still in-process, no subprocess spawned),
// covering the request/response encoding this test's fakeClient above
// bypasses.
func TestPool_Execute_RealSandboxImpl(t *testing.T) {
	c := &model.Node{ID: uuid.New(), Label: "c", Variant: model.VariantConstant, Outputs: []model.Port{{Key: "value"}}, Data: map[string]interface{}{"value": 42.0}}
	out := &model.Node{ID: uuid.New(), Label: "Result", Variant: model.VariantOutput, Inputs: []model.Port{{Key: "value"}}}
	sheet := &model.Sheet{
		ID:    uuid.New(),
		Name:  "S",
		Nodes: []*model.Node{c, out},
		Connections: []*model.Connection{
			{SourceNodeID: c.ID, SourcePort: "value", TargetNodeID: out.ID, TargetPort: "value"},
		},
	}

	doc, err := codegen.Generate(context.Background(), &fakeRepo{sheets: map[uuid.UUID]*model.Sheet{}}, sheet)
	require.NoError(t, err)

	factory := func() (SandboxRPC, io.Closer, error) {
		return SandboxImpl{}, fakeCloser{closed: new(bool)}, nil
	}
	pool, err := newPoolWithFactory(config.WorkerPoolConfig{WorkerCount: 1}, factory)
	require.NoError(t, err)
	defer pool.Close()

	resp, err := pool.Execute(context.Background(), doc, nil, time.Second)
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, int64(42), resp.Outputs["Result"])
}
