package repository

import (
	"context"
	"fmt"

	"hearth-backend/database"
	"hearth-backend/models"

	"github.com/jackc/pgx/v5"
)

type SettlementRepository interface {
	GetByID(ctx context.Context, id string) (*models.Settlement, error)
	ListByHousehold(ctx context.Context, householdID string, limit int) ([]models.Settlement, error)
	Create(ctx context.Context, settlement *models.Settlement) error
	Delete(ctx context.Context, id string) error
	WithTx(tx database.Querier) SettlementRepository
}

type settlementRepository struct {
	db *database.DB
	tx database.Querier
}

func NewSettlementRepository(db *database.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) WithTx(tx database.Querier) SettlementRepository {
	return &settlementRepository{db: r.db, tx: tx}
}

func (r *settlementRepository) getQuerier() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db.Pool
}

const settlementColumns = `id, household_id, from_user_id, to_user_id, amount_cents, currency, notes, created_by_user_id, created_at`

func scanSettlement(row pgx.Row, s *models.Settlement) error {
	return row.Scan(
		&s.ID, &s.HouseholdID, &s.FromUserID, &s.ToUserID, &s.AmountCents, &s.Currency,
		&s.Notes, &s.CreatedByUserID, &s.CreatedAt,
	)
}

func (r *settlementRepository) GetByID(ctx context.Context, id string) (*models.Settlement, error) {
	var settlement models.Settlement
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE id = $1`
	if err := scanSettlement(r.getQuerier().QueryRow(ctx, query, id), &settlement); err != nil {
		return nil, fmt.Errorf("getting settlement by id: %w", err)
	}
	return &settlement, nil
}

func (r *settlementRepository) ListByHousehold(ctx context.Context, householdID string, limit int) ([]models.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE household_id = $1
	          ORDER BY created_at DESC, id DESC`
	args := []interface{}{householdID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.getQuerier().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing settlements: %w", err)
	}
	defer rows.Close()

	settlements := make([]models.Settlement, 0)
	for rows.Next() {
		var s models.Settlement
		if err := scanSettlement(rows, &s); err != nil {
			return nil, fmt.Errorf("scanning settlement: %w", err)
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settlements: %w", err)
	}
	return settlements, nil
}

func (r *settlementRepository) Create(ctx context.Context, settlement *models.Settlement) error {
	query := `INSERT INTO settlements (id, household_id, from_user_id, to_user_id, amount_cents, currency,
	          notes, created_by_user_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	          RETURNING created_at`

	err := r.getQuerier().QueryRow(ctx, query,
		settlement.ID, settlement.HouseholdID, settlement.FromUserID, settlement.ToUserID,
		settlement.AmountCents, settlement.Currency, settlement.Notes, settlement.CreatedByUserID,
	).Scan(&settlement.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating settlement: %w", err)
	}
	return nil
}

func (r *settlementRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.getQuerier().Exec(ctx, `DELETE FROM settlements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting settlement: %w", pgx.ErrNoRows)
	}
	return nil
}
