package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vouch/internal/tenant"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	txcontext "vouch/pkg/platform/tx"
)

// PostgresStore implements Store on PostgreSQL. GetForUpdate locks the row
// with FOR NO KEY UPDATE so concurrent transitions on the same workflow
// serialize; the second caller blocks, then re-reads the advanced state.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const workflowColumns = `id, tenant_id, applicant_id, config_id, intent_id, kind, step, status,
	requires_review, decision, authorized_at, decision_made_at, completed_at, active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, inst WorkflowInstance) error {
	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(inst.ID),
		uuid.UUID(inst.TenantID),
		uuid.UUID(inst.ApplicantID),
		uuid.UUID(inst.ConfigID),
		uuid.UUID(inst.IntentID),
		string(inst.State.Kind),
		string(inst.State.Step),
		string(inst.Status),
		inst.RequiresReview,
		nullString(string(inst.Decision)),
		inst.AuthorizedAt,
		inst.DecisionMadeAt,
		inst.CompletedAt,
		inst.Active,
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, workflowID id.WorkflowID) (WorkflowInstance, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`
	return s.getOne(ctx, query, uuid.UUID(workflowID))
}

func (s *PostgresStore) GetForUpdate(ctx context.Context, workflowID id.WorkflowID) (WorkflowInstance, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1 FOR NO KEY UPDATE`
	return s.getOne(ctx, query, uuid.UUID(workflowID))
}

func (s *PostgresStore) getOne(ctx context.Context, query string, args ...any) (WorkflowInstance, error) {
	row := s.execer(ctx).QueryRowContext(ctx, query, args...)
	inst, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkflowInstance{}, dErrors.New(dErrors.CodeNotFound, "workflow not found")
	}
	if err != nil {
		return WorkflowInstance{}, err
	}
	return inst, nil
}

func (s *PostgresStore) Update(ctx context.Context, inst WorkflowInstance) error {
	query := `
		UPDATE workflows
		SET step = $2, status = $3, requires_review = $4, decision = $5,
		    authorized_at = $6, decision_made_at = $7, completed_at = $8, updated_at = $9
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(inst.ID),
		string(inst.State.Step),
		string(inst.Status),
		inst.RequiresReview,
		nullString(string(inst.Decision)),
		inst.AuthorizedAt,
		inst.DecisionMadeAt,
		inst.CompletedAt,
		inst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "workflow not found")
	}
	return nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, workflowID id.WorkflowID, now time.Time) error {
	query := `UPDATE workflows SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(workflowID), now); err != nil {
		return fmt.Errorf("deactivate workflow: %w", err)
	}
	return nil
}

func (s *PostgresStore) ActiveForApplicant(ctx context.Context, applicantID id.ApplicantID, configID id.ConfigID) (WorkflowInstance, bool, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE applicant_id = $1 AND config_id = $2 AND active
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(applicantID), uuid.UUID(configID))
	inst, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkflowInstance{}, false, nil
	}
	if err != nil {
		return WorkflowInstance{}, false, err
	}
	return inst, true, nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, event TransitionEvent) error {
	query := `
		INSERT INTO workflow_events (id, workflow_id, from_step, to_step, action, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		uuid.UUID(event.WorkflowID),
		string(event.FromStep),
		string(event.ToStep),
		string(event.Action),
		event.Actor,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, workflowID id.WorkflowID) ([]TransitionEvent, error) {
	query := `
		SELECT id, workflow_id, from_step, to_step, action, actor, created_at
		FROM workflow_events
		WHERE workflow_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(workflowID))
	if err != nil {
		return nil, fmt.Errorf("query workflow events: %w", err)
	}
	defer rows.Close()

	var out []TransitionEvent
	for rows.Next() {
		var (
			event        TransitionEvent
			workflowUUID uuid.UUID
			fromStep     string
			toStep       string
			action       string
		)
		err := rows.Scan(&event.ID, &workflowUUID, &fromStep, &toStep, &action, &event.Actor, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan workflow event: %w", err)
		}
		event.WorkflowID = id.WorkflowID(workflowUUID)
		event.FromStep = Step(fromStep)
		event.ToStep = Step(toStep)
		event.Action = Action(action)
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Transact(ctx, s.db, fn)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (WorkflowInstance, error) {
	var (
		inst          WorkflowInstance
		workflowUUID  uuid.UUID
		tenantUUID    uuid.UUID
		applicantUUID uuid.UUID
		configUUID    uuid.UUID
		intentUUID    uuid.UUID
		kind          string
		step          string
		status        string
		decision      sql.NullString
	)
	err := row.Scan(
		&workflowUUID,
		&tenantUUID,
		&applicantUUID,
		&configUUID,
		&intentUUID,
		&kind,
		&step,
		&status,
		&inst.RequiresReview,
		&decision,
		&inst.AuthorizedAt,
		&inst.DecisionMadeAt,
		&inst.CompletedAt,
		&inst.Active,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WorkflowInstance{}, err
		}
		return WorkflowInstance{}, fmt.Errorf("scan workflow: %w", err)
	}
	inst.ID = id.WorkflowID(workflowUUID)
	inst.TenantID = id.TenantID(tenantUUID)
	inst.ApplicantID = id.ApplicantID(applicantUUID)
	inst.ConfigID = id.ConfigID(configUUID)
	inst.IntentID = id.IntentID(intentUUID)
	inst.State = State{Kind: tenant.WorkflowKind(kind), Step: Step(step)}
	inst.Status = Status(status)
	if decision.Valid {
		inst.Decision = Decision(decision.String)
	}
	return inst, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
