package repository

import (
	"context"
	"errors"

	"github.com/lazarohernan/abogados/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrConversationNotFound = errors.New("conversation not found")

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func (r *ConversationRepository) Create(ctx context.Context, userID string) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:     uuid.NewString(),
		UserID: userID,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, user_id)
		VALUES ($1, $2)
		RETURNING created_at
	`, conv.ID, conv.UserID).Scan(&conv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *ConversationRepository) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at FROM conversations WHERE id = $1
	`, id).Scan(&conv.ID, &conv.UserID, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}
