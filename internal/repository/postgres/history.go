package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
)

const selectHistory = `
	SELECT id, account_type, account_id, password_hash, salt, created_at
	FROM password_history
	WHERE account_type = $1 AND account_id = $2
	ORDER BY created_at DESC, id
`

type historyRepository struct {
	BaseRepository
}

func NewPasswordHistoryRepository(base BaseRepository) repository.PasswordHistoryRepository {
	return &historyRepository{base}
}

func (r *historyRepository) ListByAccount(ctx context.Context, accountType string, accountID uuid.UUID) ([]*model.PasswordHistory, error) {
	var rows []*model.PasswordHistory
	if err := r.db.SelectContext(ctx, &rows, selectHistory, accountType, accountID); err != nil {
		return nil, fmt.Errorf("failed to list password history: %w", err)
	}
	return rows, nil
}

func (r *historyRepository) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM password_history WHERE id = ANY($1::uuid[])`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return 0, fmt.Errorf("failed to delete password history: %w", err)
	}
	return result.RowsAffected()
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, rows []*model.PasswordHistory) error {
	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO password_history (id, account_type, account_id, password_hash, salt, created_at)
			VALUES (:id, :account_type, :account_id, :password_hash, :salt, :created_at)
		`, row); err != nil {
			return fmt.Errorf("failed to insert password history: %w", err)
		}
	}
	return nil
}

func deleteHistory(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM password_history WHERE id = ANY($1::uuid[])`, pq.Array(uuidStrings(ids))); err != nil {
		return fmt.Errorf("failed to delete password history: %w", err)
	}
	return nil
}

func historyIDs(rows []*model.PasswordHistory) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
