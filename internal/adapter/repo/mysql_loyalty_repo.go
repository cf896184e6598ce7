package repo

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

// MySQLLoyaltyRepo keeps the balance on the user row and the history in an
// append-only table. Balance mutation and history append share a
// transaction so the ledger never disagrees with its own history.
type MySQLLoyaltyRepo struct{ db *sql.DB }

func NewMySQLLoyaltyRepo(db *sql.DB) *MySQLLoyaltyRepo { return &MySQLLoyaltyRepo{db: db} }

func (r *MySQLLoyaltyRepo) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `
SELECT loyalty_points FROM users WHERE id=?`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("loyalty balance for user %s: %w", userID, err)
	}
	return balance, nil
}

// Debit fails closed: the sufficiency check is inside the UPDATE, so two
// concurrent spends from the same balance cannot drive it negative.
func (r *MySQLLoyaltyRepo) Debit(ctx context.Context, userID string, points int64, orderID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE users SET loyalty_points = loyalty_points - ?
WHERE id = ? AND loyalty_points >= ?`,
		points, userID, points)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrInsufficientPoints
	}

	if err := insertHistory(ctx, tx, userID, points, domain.DirectionSpent, orderID,
		fmt.Sprintf("Spent %d points on purchase", points)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MySQLLoyaltyRepo) Credit(ctx context.Context, userID string, points int64, orderID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE users SET loyalty_points = loyalty_points + ? WHERE id = ?`,
		points, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("credit points: user %s not found", userID)
	}

	if err := insertHistory(ctx, tx, userID, points, domain.DirectionEarned, orderID,
		fmt.Sprintf("Earned %d points from purchase", points)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MySQLLoyaltyRepo) History(ctx context.Context, userID string) ([]domain.LoyaltyEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,user_id,points,direction,COALESCE(order_id,''),description,created_at
FROM loyalty_history WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LoyaltyEntry
	for rows.Next() {
		var e domain.LoyaltyEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Points, &e.Direction,
			&e.OrderID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertHistory(ctx context.Context, tx *sql.Tx, userID string, points int64,
	direction domain.Direction, orderID, description string) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO loyalty_history (user_id,points,direction,order_id,description,created_at)
VALUES (?,?,?,NULLIF(?,''),?,NOW())`,
		userID, points, direction, orderID, description)
	return err
}

var _ usecase.LoyaltyLedger = (*MySQLLoyaltyRepo)(nil)
