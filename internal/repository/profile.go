package repository

import (
	"context"
	"errors"

	"github.com/lazarohernan/abogados/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository reads the quota-relevant slice of user profiles. The
// billing/auth layers own the table; the relay never writes to it.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) GetQuotaProfile(ctx context.Context, userID string) (*model.QuotaProfile, error) {
	var profile model.QuotaProfile
	err := r.pool.QueryRow(ctx, `
		SELECT subscription_status, trial_end FROM profiles WHERE user_id = $1
	`, userID).Scan(&profile.Status, &profile.TrialEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
