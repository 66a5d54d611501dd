package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/database"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

// ReconciliationRepository journals captured-but-unmaterialized payments in
// PostgreSQL. The journal is the durable record behind the "charged but not
// ordered" support flow, so writes here must succeed even when the backend
// order store is down.
type ReconciliationRepository struct {
	pool database.DBTX
}

// NewReconciliationRepository creates a PostgreSQL-backed journal.
func NewReconciliationRepository(pool database.DBTX) *ReconciliationRepository {
	return &ReconciliationRepository{pool: pool}
}

// Create inserts a new journal record.
func (r *ReconciliationRepository) Create(ctx context.Context, rec *domain.Reconciliation) (err error) {
	linesJSON, err := json.Marshal(rec.Lines)
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}

	query := `
		INSERT INTO reconciliations (id, user_id, email, gateway_intent_id, amount, lines, failure_reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "CreateReconciliation", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Email,
		rec.GatewayIntentID,
		rec.Amount,
		linesJSON,
		rec.FailureReason,
		rec.Status,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reconciliation: %w", err)
	}

	return nil
}

const reconciliationColumns = `id, user_id, email, gateway_intent_id, amount, lines, failure_reason, status, created_at, resolved_at, resolved_by`

// GetByID retrieves a journal record by ID.
func (r *ReconciliationRepository) GetByID(ctx context.Context, id uuid.UUID) (rec *domain.Reconciliation, err error) {
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliations WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetReconciliation", query)
	defer func() { end(err) }()

	rec, err = scanReconciliation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("reconciliation", id.String())
		}
		return nil, fmt.Errorf("get reconciliation: %w", err)
	}

	return rec, nil
}

// ListOpen returns open journal records newest first, plus the total count of
// open records.
func (r *ReconciliationRepository) ListOpen(ctx context.Context, limit, offset int) (recs []domain.Reconciliation, total int, err error) {
	countQuery := `SELECT COUNT(*) FROM reconciliations WHERE status = $1`

	ctx, endCount := database.TraceQuery(ctx, "CountOpenReconciliations", countQuery)
	err = r.pool.QueryRow(ctx, countQuery, domain.ReconciliationOpen).Scan(&total)
	endCount(err)
	if err != nil {
		return nil, 0, fmt.Errorf("count open reconciliations: %w", err)
	}

	query := `
		SELECT ` + reconciliationColumns + `
		FROM reconciliations
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "ListOpenReconciliations", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, domain.ReconciliationOpen, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list open reconciliations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, scanErr := scanReconciliation(rows)
		if scanErr != nil {
			err = fmt.Errorf("scan reconciliation: %w", scanErr)
			return nil, 0, err
		}
		recs = append(recs, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reconciliations: %w", err)
	}

	return recs, total, nil
}

// Resolve marks an open record as resolved by the given operator. Resolving
// an already-resolved record returns a conflict; a missing record returns
// not found.
func (r *ReconciliationRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) (err error) {
	query := `
		UPDATE reconciliations
		SET status = $1, resolved_at = $2, resolved_by = $3
		WHERE id = $4 AND status = $5`

	ctx, end := database.TraceQuery(ctx, "ResolveReconciliation", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query,
		domain.ReconciliationResolved,
		time.Now().UTC(),
		resolvedBy,
		id,
		domain.ReconciliationOpen,
	)
	if err != nil {
		return fmt.Errorf("resolve reconciliation: %w", err)
	}

	if ct.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return apperrors.Conflict(fmt.Sprintf("reconciliation %s is already resolved", id))
	}

	return nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReconciliation(row rowScanner) (*domain.Reconciliation, error) {
	var (
		rec       domain.Reconciliation
		linesJSON []byte
	)

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Email,
		&rec.GatewayIntentID,
		&rec.Amount,
		&linesJSON,
		&rec.FailureReason,
		&rec.Status,
		&rec.CreatedAt,
		&rec.ResolvedAt,
		&rec.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}

	if len(linesJSON) > 0 {
		if err := json.Unmarshal(linesJSON, &rec.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal lines: %w", err)
		}
	}

	return &rec, nil
}
