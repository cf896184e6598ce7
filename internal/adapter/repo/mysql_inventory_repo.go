package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

type MySQLInventoryRepo struct{ db *sql.DB }

func NewMySQLInventoryRepo(db *sql.DB) *MySQLInventoryRepo { return &MySQLInventoryRepo{db: db} }

func (r *MySQLInventoryRepo) Product(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,name,price,sale_price,points_price,stock,kind,image
FROM products WHERE id=?`, id)
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.SalePrice, &p.PointsPrice,
		&p.Stock, &p.Kind, &p.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Reserve is a single conditional decrement. The stock check is part of the
// UPDATE, so concurrent checkouts of the last units cannot both succeed.
func (r *MySQLInventoryRepo) Reserve(ctx context.Context, productID string, qty int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`,
		qty, productID, qty)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish a missing product from an out-of-stock one.
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id=?`, productID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return usecase.ErrProductNotFound
		}
		if err != nil {
			return err
		}
		return usecase.ErrInsufficientStock
	}
	return nil
}

// Release restores stock taken by a reservation that is being compensated.
func (r *MySQLInventoryRepo) Release(ctx context.Context, productID string, qty int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE products SET stock = stock + ? WHERE id = ?`, qty, productID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrProductNotFound
	}
	return nil
}

var _ usecase.InventoryLedger = (*MySQLInventoryRepo)(nil)
