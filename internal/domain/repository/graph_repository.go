// Package repository holds the interfaces the core packages depend on;
// concrete implementations live under internal/infrastructure/storage and
// are wired only by cmd/server, never imported by the core packages
// directly.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/domain/model"
)

// GraphRepository loads sheets and sheet versions with their nodes and
// connections eagerly populated. It is read-only from the core's point of
// view: nothing under internal/app ever persists through it.
type GraphRepository interface {
	// FetchSheet loads a sheet by id, nodes and connections eagerly loaded.
	FetchSheet(ctx context.Context, sheetID uuid.UUID) (*model.Sheet, error)

	// FetchVersion reconstitutes a sheet from an immutable version
	// snapshot, returning it in the same shape as FetchSheet.
	FetchVersion(ctx context.Context, versionID uuid.UUID) (*model.Sheet, error)
}
