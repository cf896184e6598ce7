package repo

import (
	"context"
	"database/sql"

	domain "github.com/ttran/storefront-api/internal/entity"
)

// MySQLNotificationRepo persists notifications written by the queue
// consumer. Real-time delivery is someone else's job.
type MySQLNotificationRepo struct{ db *sql.DB }

func NewMySQLNotificationRepo(db *sql.DB) *MySQLNotificationRepo {
	return &MySQLNotificationRepo{db: db}
}

func (r *MySQLNotificationRepo) Insert(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO notifications (user_id,title,message,type,order_id,is_read,created_at)
VALUES (?,?,?,?,NULLIF(?,''),0,NOW())`,
		n.UserID, n.Title, n.Message, n.Type, n.OrderID)
	return err
}

func (r *MySQLNotificationRepo) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,user_id,title,message,type,COALESCE(order_id,''),is_read,created_at
FROM notifications WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type,
			&n.OrderID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
