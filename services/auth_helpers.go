package services

import (
	"context"

	apperrors "hearth-backend/errors"
	"hearth-backend/repository"
)

func RequireHouseholdMembership(ctx context.Context, householdRepo repository.HouseholdRepository, householdID, userID string) error {
	isMember, err := householdRepo.IsMember(ctx, householdID, userID)
	if err != nil {
		return apperrors.DatabaseError("checking membership", err)
	}
	if !isMember {
		return apperrors.NotHouseholdMember()
	}
	return nil
}

// HouseholdMemberIDs lists the members of a household. A household with no
// member rows is reported as not found.
func HouseholdMemberIDs(ctx context.Context, householdRepo repository.HouseholdRepository, householdID string) ([]string, error) {
	ids, err := householdRepo.GetMemberIDs(ctx, householdID)
	if err != nil {
		return nil, apperrors.DatabaseError("getting household members", err)
	}
	if len(ids) == 0 {
		return nil, apperrors.HouseholdNotFound()
	}
	return ids, nil
}
