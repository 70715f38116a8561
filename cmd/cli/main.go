// Command calcengine-cli is a command-line driver for the Calculate,
// Sweep and EmitScript operations against a configured database, useful
// for scripting and local debugging without standing up the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/parascope/calcengine/internal/app/calcsvc"
	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/app/sweepsvc"
	"github.com/parascope/calcengine/internal/app/worker"
	"github.com/parascope/calcengine/internal/config"
	"github.com/parascope/calcengine/internal/infrastructure/storage"
)

const (
	version = "1.0.0"
	usage   = `calcengine-cli - calculation engine command-line tool

USAGE:
    calcengine-cli <command> [options]

COMMANDS:
    calculate               Run a sheet once and print its result tree
    sweep                   Sweep a sheet across one or two input axes
    emit-script             Render a sheet's compiled script for display
    version                 Show version information
    help                    Show this help message

CALCULATE OPTIONS:
    -sheet <id>             Sheet id (required)
    -input <label=value>    Caller override, repeatable

SWEEP OPTIONS:
    -sheet <id>                Sheet id (required)
    -primary-input <id>        Primary swept input node id (required)
    -primary-start <n>         Primary axis range start
    -primary-end <n>           Primary axis range end
    -primary-increment <n>     Primary axis range increment
    -output <id>               Output node id to collect, repeatable (required)

EMIT-SCRIPT OPTIONS:
    -sheet <id>             Sheet id (required)
`
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "calculate":
		runCalculate(args)
	case "sweep":
		runSweep(args)
	case "emit-script":
		runEmitScript(args)
	case "version":
		fmt.Println("calcengine-cli version", version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

type repeatedFlag []string

func (r *repeatedFlag) String() string     { return strings.Join(*r, ",") }
func (r *repeatedFlag) Set(v string) error { *r = append(*r, v); return nil }

func newDeps() (*storage.PostgresGraphRepository, *worker.Pool, *config.Config, func()) {
	cfg, err := config.Load()
	if err != nil {
		fatalf("failed to load configuration: %v", err)
	}

	db, err := storage.NewDB(&storage.Config{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MinConnections,
		ConnMaxLifetime: cfg.Database.MaxConnLifetime,
		ConnMaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		fatalf("failed to connect to database: %v", err)
	}

	pool, err := worker.NewPool(cfg.WorkerPool)
	if err != nil {
		_ = storage.Close(db)
		fatalf("failed to start worker pool: %v", err)
	}

	repo := storage.NewPostgresGraphRepository(db)
	cleanup := func() {
		pool.Close()
		_ = storage.Close(db)
	}
	return repo, pool, cfg, cleanup
}

func runCalculate(args []string) {
	fs := flag.NewFlagSet("calculate", flag.ExitOnError)
	sheetID := fs.String("sheet", "", "sheet id (required)")
	var inputs repeatedFlag
	fs.Var(&inputs, "input", "caller override label=value, repeatable")
	_ = fs.Parse(args)

	if *sheetID == "" {
		fatalf("-sheet is required")
	}
	id, err := uuid.Parse(*sheetID)
	if err != nil {
		fatalf("invalid -sheet: %v", err)
	}

	repo, pool, cfg, cleanup := newDeps()
	defer cleanup()

	svc := calcsvc.New(repo, pool, cfg.WorkerPool, cfg.Sandbox)

	overrides, err := parseOverrides(inputs)
	if err != nil {
		fatalf("invalid -input: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.WorkerPool.RequestTimeout+5*time.Second)
	defer cancel()

	resp, err := svc.Calculate(ctx, calcsvc.CalculateRequest{SheetID: id, Inputs: overrides})
	if err != nil {
		fatalf("calculate failed: %v", err)
	}
	printJSON(resp)
}

func runSweep(args []string) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	sheetID := fs.String("sheet", "", "sheet id (required)")
	primaryInput := fs.String("primary-input", "", "primary swept input node id (required)")
	primaryStart := fs.Float64("primary-start", 0, "primary axis range start")
	primaryEnd := fs.Float64("primary-end", 0, "primary axis range end")
	primaryIncrement := fs.Float64("primary-increment", 1, "primary axis range increment")
	var outputs repeatedFlag
	fs.Var(&outputs, "output", "output node id to collect, repeatable (required)")
	_ = fs.Parse(args)

	if *sheetID == "" || *primaryInput == "" || len(outputs) == 0 {
		fatalf("-sheet, -primary-input and at least one -output are required")
	}

	id, err := uuid.Parse(*sheetID)
	if err != nil {
		fatalf("invalid -sheet: %v", err)
	}
	primaryID, err := uuid.Parse(*primaryInput)
	if err != nil {
		fatalf("invalid -primary-input: %v", err)
	}
	outputIDs := make([]uuid.UUID, len(outputs))
	for i, o := range outputs {
		outputIDs[i], err = uuid.Parse(o)
		if err != nil {
			fatalf("invalid -output %q: %v", o, err)
		}
	}

	repo, pool, cfg, cleanup := newDeps()
	defer cleanup()

	svc := sweepsvc.New(repo, pool, cfg.Sandbox)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	resp, err := svc.Sweep(ctx, sweepsvc.SweepRequest{
		SheetID: id,
		Primary: sweepsvc.AxisSpec{
			InputNodeID: primaryID,
			Start:       primaryStart,
			End:         primaryEnd,
			Increment:   primaryIncrement,
		},
		OutputNodeIDs: outputIDs,
	})
	if err != nil {
		fatalf("sweep failed: %v", err)
	}
	printJSON(resp)
}

func runEmitScript(args []string) {
	fs := flag.NewFlagSet("emit-script", flag.ExitOnError)
	sheetID := fs.String("sheet", "", "sheet id (required)")
	_ = fs.Parse(args)

	if *sheetID == "" {
		fatalf("-sheet is required")
	}
	id, err := uuid.Parse(*sheetID)
	if err != nil {
		fatalf("invalid -sheet: %v", err)
	}

	repo, _, _, cleanup := newDeps()
	defer cleanup()

	ctx := context.Background()
	sheet, err := repo.FetchSheet(ctx, id)
	if err != nil {
		fatalf("fetch sheet failed: %v", err)
	}

	doc, err := codegen.Generate(ctx, repo, sheet)
	if err != nil {
		fatalf("script generation failed: %v", err)
	}

	fmt.Println(codegen.EmitScript(doc))
}

// parseOverrides turns "label=value" flags into a caller-override map,
// decoding each value as JSON first (so numbers/bools/arrays come through
// typed) and falling back to a plain string when that fails.
func parseOverrides(pairs []string) (map[string]calcsvc.OverrideValue, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]calcsvc.OverrideValue, len(pairs))
	for _, p := range pairs {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected label=value, got %q", p)
		}
		out[parts[0]] = calcsvc.OverrideValue{Value: parseScalar(parts[1])}
	}
	return out, nil
}

func parseScalar(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalf("encode output: %v", err)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
