package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vouch/internal/policy"
	"vouch/internal/vendor"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	pkgstrings "vouch/pkg/platform/strings"
	txcontext "vouch/pkg/platform/tx"
)

// PostgresStore implements Store on PostgreSQL. Vendor order, adverse-media
// lists, and required fields are stored as text arrays; a NULL adverse-media
// array means "all lists", an empty array means "none", matching the policy
// semantics.
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

const configColumns = `id, tenant_id, kind, vendors, aml_enhanced, aml_ofac, aml_pep,
	aml_adverse_media, aml_adverse_media_lists, aml_match_kind, required_fields`

func (s *PostgresStore) Save(ctx context.Context, cfg OnboardingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.RequiredFields = pkgstrings.DedupeAndTrim(cfg.RequiredFields)

	vendors := make([]string, 0, len(cfg.Vendors.Enabled))
	for _, v := range cfg.Vendors.Enabled {
		vendors = append(vendors, v.String())
	}

	var mediaLists any
	if cfg.Aml.AdverseMediaLists != nil {
		lists := make([]string, 0, len(*cfg.Aml.AdverseMediaLists))
		for _, l := range *cfg.Aml.AdverseMediaLists {
			lists = append(lists, string(l))
		}
		mediaLists = pq.Array(lists)
	}

	query := `
		INSERT INTO onboarding_configs (` + configColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(cfg.ID),
		uuid.UUID(cfg.TenantID),
		string(cfg.Kind),
		pq.Array(vendors),
		cfg.Aml.Enhanced,
		cfg.Aml.Ofac,
		cfg.Aml.Pep,
		cfg.Aml.AdverseMedia,
		mediaLists,
		int(cfg.Aml.MatchKind),
		pq.Array(cfg.RequiredFields),
	)
	if err != nil {
		return fmt.Errorf("insert onboarding config: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, configID id.ConfigID) (OnboardingConfig, error) {
	query := `SELECT ` + configColumns + ` FROM onboarding_configs WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(configID))
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OnboardingConfig{}, dErrors.New(dErrors.CodeNotFound, "onboarding config not found")
	}
	if err != nil {
		return OnboardingConfig{}, err
	}
	return cfg, nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]OnboardingConfig, error) {
	query := `SELECT ` + configColumns + ` FROM onboarding_configs WHERE tenant_id = $1 ORDER BY id`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("query onboarding configs: %w", err)
	}
	defer rows.Close()

	var out []OnboardingConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate onboarding configs: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (OnboardingConfig, error) {
	var (
		cfg        OnboardingConfig
		configUUID uuid.UUID
		tenantUUID uuid.UUID
		kind       string
		vendors    pq.StringArray
		mediaLists pq.StringArray
		matchKind  int
		required   pq.StringArray
	)
	err := row.Scan(
		&configUUID,
		&tenantUUID,
		&kind,
		&vendors,
		&cfg.Aml.Enhanced,
		&cfg.Aml.Ofac,
		&cfg.Aml.Pep,
		&cfg.Aml.AdverseMedia,
		&mediaLists,
		&matchKind,
		&required,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OnboardingConfig{}, err
		}
		return OnboardingConfig{}, fmt.Errorf("scan onboarding config: %w", err)
	}

	cfg.ID = id.ConfigID(configUUID)
	cfg.TenantID = id.TenantID(tenantUUID)
	cfg.Kind = WorkflowKind(kind)
	for _, v := range vendors {
		cfg.Vendors.Enabled = append(cfg.Vendors.Enabled, vendor.Kind(v))
	}
	cfg.Aml.MatchKind = policy.MatchKind(matchKind)
	if mediaLists != nil {
		lists := make([]policy.AdverseMediaList, 0, len(mediaLists))
		for _, l := range mediaLists {
			lists = append(lists, policy.AdverseMediaList(l))
		}
		cfg.Aml.AdverseMediaLists = &lists
	}
	cfg.RequiredFields = []string(required)
	return cfg, nil
}
