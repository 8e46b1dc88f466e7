package signal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vouch/internal/reason"
	"vouch/internal/vendor"
	id "vouch/pkg/domain"
	txcontext "vouch/pkg/platform/tx"
)

// PostgresStore implements Store on PostgreSQL. Writes pick up a transaction
// from context so signal batches commit with the workflow transition.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) CreateBatch(ctx context.Context, signals []RiskSignal) error {
	query := `
		INSERT INTO risk_signals (id, workflow_id, reason_code, vendor, attempt_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, sig := range signals {
		_, err := s.execer(ctx).ExecContext(ctx, query,
			uuid.UUID(sig.ID),
			uuid.UUID(sig.WorkflowID),
			string(sig.Code),
			string(sig.Vendor),
			uuid.UUID(sig.AttemptID),
			sig.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert risk signal: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context, workflowID id.WorkflowID) ([]RiskSignal, error) {
	query := `
		SELECT id, workflow_id, reason_code, vendor, attempt_id, created_at, deactivated_at
		FROM risk_signals
		WHERE workflow_id = $1 AND deactivated_at IS NULL
		ORDER BY created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(workflowID))
	if err != nil {
		return nil, fmt.Errorf("query risk signals: %w", err)
	}
	defer rows.Close()

	var out []RiskSignal
	for rows.Next() {
		var (
			sig        RiskSignal
			sigID      uuid.UUID
			wfID       uuid.UUID
			code       string
			vendorName string
			attemptID  uuid.UUID
		)
		if err := rows.Scan(&sigID, &wfID, &code, &vendorName, &attemptID, &sig.CreatedAt, &sig.DeactivatedAt); err != nil {
			return nil, fmt.Errorf("scan risk signal: %w", err)
		}
		sig.ID = id.SignalID(sigID)
		sig.WorkflowID = id.WorkflowID(wfID)
		sig.Code = reason.Code(code)
		sig.Vendor = vendor.Kind(vendorName)
		sig.AttemptID = id.AttemptID(attemptID)
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk signals: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeactivateForWorkflow(ctx context.Context, workflowID id.WorkflowID, now time.Time) error {
	query := `
		UPDATE risk_signals
		SET deactivated_at = $2
		WHERE workflow_id = $1 AND deactivated_at IS NULL
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(workflowID), now); err != nil {
		return fmt.Errorf("deactivate risk signals: %w", err)
	}
	return nil
}
