package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

// MySQLOrderRepo persists the order aggregate. Line items and the shipping
// snapshot are stored as JSON columns; they are written once at creation
// and never queried field-by-field.
type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

const orderColumns = `id,user_id,items_json,total_amount,points_used,points_earned,status,payment_status,shipping_json,payment_method,session_id,created_at,updated_at`

func (r *MySQLOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO orders (`+orderColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,NULLIF(?,''),NOW(),NOW())`,
		o.ID, o.UserID, items, o.TotalAmount, o.PointsUsed, o.PointsEarned,
		o.Status, o.PaymentStatus, shipping, o.PaymentMethod, o.SessionID)
	return err
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+orderColumns+` FROM orders WHERE id=?`, id)
	return scanOrder(row)
}

func (r *MySQLOrderRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+orderColumns+` FROM orders WHERE session_id=?`, sessionID)
	return scanOrder(row)
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+orderColumns+` FROM orders WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *MySQLOrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *MySQLOrderRepo) SetSessionID(ctx context.Context, id, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET session_id=?, updated_at=NOW() WHERE id=?`, sessionID, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrOrderNotFound
	}
	return nil
}

// MarkPaid claims the pending -> paid transition. The status check lives in
// the WHERE clause so two racing finalizers cannot both win.
func (r *MySQLOrderRepo) MarkPaid(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders
SET payment_status=?, status=?, updated_at=NOW()
WHERE id=? AND payment_status=?`,
		domain.PaymentPaid, domain.StatusConfirmed, id, domain.PaymentPending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *MySQLOrderRepo) MarkPaymentFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE orders SET payment_status=?, updated_at=NOW()
WHERE id=? AND payment_status=?`,
		domain.PaymentFailed, id, domain.PaymentPending)
	return err
}

func (r *MySQLOrderRepo) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status=?, updated_at=NOW() WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrOrderNotFound
	}
	return nil
}

func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status=?, updated_at=NOW() WHERE id=? AND status=?`, to, id, from)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// rows == 0: not found or status mismatch
	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o         domain.Order
		items     []byte
		shipping  []byte
		sessionID sql.NullString
	)
	err := row.Scan(&o.ID, &o.UserID, &items, &o.TotalAmount, &o.PointsUsed,
		&o.PointsEarned, &o.Status, &o.PaymentStatus, &shipping,
		&o.PaymentMethod, &sessionID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return nil, err
	}
	o.SessionID = sessionID.String
	return &o, nil
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
