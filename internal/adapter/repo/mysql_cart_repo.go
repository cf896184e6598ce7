package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

// MySQLCartRepo stores one cart row per user, items as JSON.
type MySQLCartRepo struct{ db *sql.DB }

func NewMySQLCartRepo(db *sql.DB) *MySQLCartRepo { return &MySQLCartRepo{db: db} }

func (r *MySQLCartRepo) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	var (
		cart  domain.Cart
		items []byte
	)
	err := r.db.QueryRowContext(ctx, `
SELECT user_id,items_json,updated_at FROM carts WHERE user_id=?`, userID).
		Scan(&cart.UserID, &items, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// No cart yet: behave as an empty one; the row appears on first add.
		return &domain.Cart{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *MySQLCartRepo) Upsert(ctx context.Context, cart *domain.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO carts (user_id,items_json,updated_at) VALUES (?,?,NOW())
ON DUPLICATE KEY UPDATE items_json=VALUES(items_json), updated_at=NOW()`,
		cart.UserID, items)
	return err
}

func (r *MySQLCartRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id=?`, userID)
	return err
}

var _ usecase.CartStore = (*MySQLCartRepo)(nil)
