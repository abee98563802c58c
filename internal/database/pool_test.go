package database

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orbitflow/orbitflow/internal/events"
)

// This is a compile-time assertion only: *pgxpool.Pool's Begin/Exec methods
// already satisfy internal/events.DB, so internal/events.NewPublisher can be
// constructed directly from a Pool's embedded *pgxpool.Pool with no adapter.
var _ events.DB = (*pgxpool.Pool)(nil)
