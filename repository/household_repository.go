package repository

import (
	"context"
	"fmt"

	"hearth-backend/database"
)

// HouseholdRepository reads membership rows. Households and their members
// are managed elsewhere; this service never writes them.
type HouseholdRepository interface {
	IsMember(ctx context.Context, householdID, userID string) (bool, error)
	GetMemberIDs(ctx context.Context, householdID string) ([]string, error)
	WithTx(tx database.Querier) HouseholdRepository
}

type householdRepository struct {
	db *database.DB
	tx database.Querier
}

func NewHouseholdRepository(db *database.DB) HouseholdRepository {
	return &householdRepository{db: db}
}

func (r *householdRepository) WithTx(tx database.Querier) HouseholdRepository {
	return &householdRepository{db: r.db, tx: tx}
}

func (r *householdRepository) getQuerier() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db.Pool
}

func (r *householdRepository) IsMember(ctx context.Context, householdID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM household_members WHERE household_id = $1 AND user_id = $2)`

	err := r.getQuerier().QueryRow(ctx, query, householdID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}

func (r *householdRepository) GetMemberIDs(ctx context.Context, householdID string) ([]string, error) {
	query := `SELECT user_id FROM household_members WHERE household_id = $1 ORDER BY user_id`

	rows, err := r.getQuerier().Query(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("getting household members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return ids, nil
}
