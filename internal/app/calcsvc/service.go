package calcsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/app/worker"
	"github.com/parascope/calcengine/internal/config"
	"github.com/parascope/calcengine/internal/domain/model"
	"github.com/parascope/calcengine/internal/domain/repository"
)

// pool is the subset of *worker.Pool the service depends on, narrowed so
// tests can substitute a double without spawning real workers.
type pool interface {
	Execute(ctx context.Context, doc *codegen.ScriptDocument, rootOverrides map[uuid.UUID]interface{}, timeout time.Duration, extraImports ...string) (*worker.RunResponse, error)
}

// Service implements the Calculate operation.
type Service struct {
	repo         repository.GraphRepository
	pool         pool
	timeout      time.Duration
	extraImports []string
	validate     *validator.Validate
}

// New builds a Service wired to repo and pool, reading the worker request
// timeout and sandbox's extra allowed imports from cfg.
func New(repo repository.GraphRepository, p *worker.Pool, cfg config.WorkerPoolConfig, sandboxCfg config.SandboxConfig) *Service {
	return &Service{
		repo:         repo,
		pool:         p,
		timeout:      cfg.RequestTimeout,
		extraImports: sandboxCfg.ExtraAllowedImports,
		validate:     validator.New(),
	}
}

// Calculate resolves req's overrides, generates and executes req.SheetID's
// compilation unit, and returns the enriched, string-serialized result
// tree (spec.md §4.5).
func (s *Service) Calculate(ctx context.Context, req CalculateRequest) (*CalculateResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	sheet, err := s.repo.FetchSheet(ctx, req.SheetID)
	if err != nil {
		return nil, err
	}

	overrides := resolveOverrides(sheet, req.Inputs, true)

	doc, err := codegen.Generate(ctx, s.repo, sheet)
	if err != nil {
		return &CalculateResponse{Error: err.Error()}, nil
	}

	resp, err := s.pool.Execute(ctx, doc, overrides, s.timeout, s.extraImports...)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return &CalculateResponse{Error: resp.Error}, nil
	}

	var tree map[uuid.UUID]*model.NodeResult
	if err := json.Unmarshal(resp.Results, &tree); err != nil {
		return nil, err
	}

	records, err := s.enrichSheet(ctx, sheet, tree)
	if err != nil {
		return nil, err
	}
	return &CalculateResponse{Results: records}, nil
}

// EmitScript generates sheetID's compilation unit and renders it back
// to readable pseudo-code, per spec.md §6's EmitScript operation. It never
// executes the sheet.
func (s *Service) EmitScript(ctx context.Context, sheetID uuid.UUID) (string, error) {
	sheet, err := s.repo.FetchSheet(ctx, sheetID)
	if err != nil {
		return "", err
	}
	doc, err := codegen.Generate(ctx, s.repo, sheet)
	if err != nil {
		return "", err
	}
	return codegen.EmitScript(doc), nil
}
