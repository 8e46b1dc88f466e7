package waterfall

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vouch/internal/reason"
	"vouch/internal/vendor"
	id "vouch/pkg/domain"
	txcontext "vouch/pkg/platform/tx"
)

// PostgresAttemptStore implements AttemptStore on PostgreSQL. The intent lock
// is a transaction-scoped advisory lock, so the resume check and any inserts
// made inside WithIntentLock are serialized per intent across processes.
type PostgresAttemptStore struct {
	db *sql.DB
}

func NewPostgresAttemptStore(db *sql.DB) *PostgresAttemptStore {
	return &PostgresAttemptStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresAttemptStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresAttemptStore) Create(ctx context.Context, attempt vendor.Attempt) error {
	query := `
		INSERT INTO vendor_attempts (id, intent_id, vendor, request_payload, response_payload, codes, is_error, rule_passed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(attempt.ID),
		uuid.UUID(attempt.IntentID),
		string(attempt.Vendor),
		[]byte(attempt.RequestPayload),
		[]byte(attempt.ResponsePayload),
		pq.Array(codesToStrings(attempt.Codes)),
		attempt.IsError,
		attempt.RulePassed,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vendor attempt: %w", err)
	}
	return nil
}

func (s *PostgresAttemptStore) LatestByIntent(ctx context.Context, intentID id.IntentID) (map[vendor.Kind]vendor.Attempt, error) {
	query := `
		SELECT DISTINCT ON (vendor)
		       id, intent_id, vendor, request_payload, response_payload, codes, is_error, rule_passed, created_at
		FROM vendor_attempts
		WHERE intent_id = $1
		ORDER BY vendor, created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(intentID))
	if err != nil {
		return nil, fmt.Errorf("query latest vendor attempts: %w", err)
	}
	defer rows.Close()

	latest := make(map[vendor.Kind]vendor.Attempt)
	for rows.Next() {
		att, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		latest[att.Vendor] = att
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor attempts: %w", err)
	}
	return latest, nil
}

func (s *PostgresAttemptStore) ListByIntent(ctx context.Context, intentID id.IntentID) ([]vendor.Attempt, error) {
	query := `
		SELECT id, intent_id, vendor, request_payload, response_payload, codes, is_error, rule_passed, created_at
		FROM vendor_attempts
		WHERE intent_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(intentID))
	if err != nil {
		return nil, fmt.Errorf("query vendor attempts: %w", err)
	}
	defer rows.Close()

	var out []vendor.Attempt
	for rows.Next() {
		att, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor attempts: %w", err)
	}
	return out, nil
}

// WithIntentLock runs fn inside a transaction holding an advisory lock keyed
// by the intent. The lock releases on commit or rollback.
func (s *PostgresAttemptStore) WithIntentLock(ctx context.Context, intentID id.IntentID, fn func(ctx context.Context) error) error {
	return txcontext.Transact(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, intentLockKey(intentID)); err != nil {
			return fmt.Errorf("acquire intent lock: %w", err)
		}
		return fn(ctx)
	})
}

// intentLockKey folds the intent UUID into the int64 keyspace advisory locks
// use.
func intentLockKey(intentID id.IntentID) int64 {
	h := fnv.New64a()
	u := uuid.UUID(intentID)
	h.Write(u[:])
	return int64(h.Sum64())
}

func scanAttempt(rows *sql.Rows) (vendor.Attempt, error) {
	var (
		att         vendor.Attempt
		attemptID   uuid.UUID
		intentUUID  uuid.UUID
		vendorName  string
		reqPayload  []byte
		respPayload []byte
		codes       []string
	)
	err := rows.Scan(
		&attemptID,
		&intentUUID,
		&vendorName,
		&reqPayload,
		&respPayload,
		pq.Array(&codes),
		&att.IsError,
		&att.RulePassed,
		&att.CreatedAt,
	)
	if err != nil {
		return vendor.Attempt{}, fmt.Errorf("scan vendor attempt: %w", err)
	}
	att.ID = id.AttemptID(attemptID)
	att.IntentID = id.IntentID(intentUUID)
	att.Vendor = vendor.Kind(vendorName)
	att.RequestPayload = reqPayload
	att.ResponsePayload = respPayload
	att.Codes = stringsToCodes(codes)
	return att, nil
}

func codesToStrings(codes []reason.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

func stringsToCodes(values []string) []reason.Code {
	if len(values) == 0 {
		return nil
	}
	out := make([]reason.Code, len(values))
	for i, v := range values {
		out[i] = reason.Code(v)
	}
	return out
}
