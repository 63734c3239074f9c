package persist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AllocationRecord is one location grant.
type AllocationRecord struct {
	SessionID  uuid.UUID
	Tick       uint64
	SquadID    int
	CellX      int
	CellY      int
	LocationID int
	Category   string
	Via        string
}

// SwitchRecord is one task switch of an agent or squad.
type SwitchRecord struct {
	SessionID uuid.UUID
	Tick      uint64
	Scheduler string
	EntityID  int
	From      string
	To        string
}

// Sink receives flushed telemetry batches.
type Sink interface {
	WriteAllocations(ctx context.Context, rows []AllocationRecord) error
	WriteSwitches(ctx context.Context, rows []SwitchRecord) error
}

// TelemetryRepo writes telemetry to PostgreSQL with COPY.
type TelemetryRepo struct {
	db *DB
}

func NewTelemetryRepo(db *DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// RegisterSession inserts the session row the event tables reference.
func (r *TelemetryRepo) RegisterSession(ctx context.Context, id uuid.UUID, name, mapName string, seed uint64) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO sessions (id, name, map_name, seed) VALUES ($1, $2, $3, $4)`,
		id, name, mapName, int64(seed),
	)
	if err != nil {
		return fmt.Errorf("register session %s: %w", id, err)
	}
	return nil
}

func (r *TelemetryRepo) WriteAllocations(ctx context.Context, rows []AllocationRecord) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"allocation_events"},
		[]string{"session_id", "tick", "squad_id", "cell_x", "cell_y", "location_id", "category", "via"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{row.SessionID, int64(row.Tick), row.SquadID, row.CellX, row.CellY, row.LocationID, row.Category, row.Via}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy allocation events: %w", err)
	}
	return nil
}

func (r *TelemetryRepo) WriteSwitches(ctx context.Context, rows []SwitchRecord) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"task_switches"},
		[]string{"session_id", "tick", "scheduler", "entity_id", "from_task", "to_task"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{row.SessionID, int64(row.Tick), row.Scheduler, row.EntityID, row.From, row.To}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy task switches: %w", err)
	}
	return nil
}
