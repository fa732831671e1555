package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// DeleteDrafts removes not_accepted orders of userID, or of everyone
	// when scope is SweepGlobal, and returns how many were removed.
	DeleteDrafts(ctx context.Context, userID int64, scope SweepScope) (int64, error)
	// Create inserts the order and its items atomically, filling IDs and CreatedAt.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	// ListByUser returns the user's orders newest first.
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	// UpdateShipping writes shipping fields and o.Status if the stored status is still from.
	UpdateShipping(ctx context.Context, o *Order, from Status) error
	// RecordPayment inserts p and moves the order from -> accepted atomically.
	RecordPayment(ctx context.Context, p *Payment, from Status) error
}

type PGRepo struct{ DB *pgxpool.Pool }

var _ Repository = (*PGRepo)(nil)

func (r *PGRepo) DeleteDrafts(ctx context.Context, userID int64, scope SweepScope) (int64, error) {
	var (
		q    = `DELETE FROM orders WHERE status = $1`
		args = []any{string(StatusNotAccepted)}
	)
	if scope == SweepUser {
		q += ` AND user_id = $2`
		args = append(args, userID)
	}
	ct, err := r.DB.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, full_name, email, phone, city, address,
			delivery_type, payment_type, total_cost, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at`,
		o.UserID, o.FullName, o.Email, o.Phone, o.City, o.Address,
		o.DeliveryType, o.PaymentType, o.TotalCost, string(o.Status),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, item_id, price, count)
			VALUES ($1,$2,$3,$4) RETURNING id`,
			o.ID, it.ItemID, it.Price, it.Count,
		).Scan(&it.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, user_id, created_at, COALESCE(full_name,''), COALESCE(email,''),
	COALESCE(phone,''), COALESCE(city,''), COALESCE(address,''), delivery_type,
	COALESCE(payment_type,''), total_cost, status`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var st string
	err := row.Scan(&o.ID, &o.UserID, &o.CreatedAt, &o.FullName, &o.Email, &o.Phone,
		&o.City, &o.Address, &o.DeliveryType, &o.PaymentType, &o.TotalCost, &st)
	o.Status = Status(st)
	return o, err
}

func (r *PGRepo) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order %d", id)
	}
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

// items loads order lines for many orders in one query, joined with item titles.
func (r *PGRepo) items(ctx context.Context, orderIDs []int64) (map[int64][]OrderItem, error) {
	out := map[int64][]OrderItem{}
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.item_id, i.name, oi.price, oi.count
		FROM order_items oi JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id = ANY($1) ORDER BY oi.id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.Title, &it.Price, &it.Count); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateShipping(ctx context.Context, o *Order, from Status) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET full_name=$3, email=$4, city=$5, address=$6,
			delivery_type=$7, payment_type=$8, status=$9
		WHERE id=$1 AND status=$2`,
		o.ID, string(from), o.FullName, o.Email, o.City, o.Address,
		o.DeliveryType, o.PaymentType, string(o.Status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.Conflict("order %d is no longer %s", o.ID, from)
	}
	return nil
}

func (r *PGRepo) RecordPayment(ctx context.Context, p *Payment, from Status) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$3 WHERE id=$1 AND status=$2`,
		p.OrderID, string(from), string(StatusAccepted))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.Conflict("order %d is no longer %s", p.OrderID, from)
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO payments(user_id, order_id, number, name, amount)
		VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		p.UserID, p.OrderID, p.Number, p.Name, p.Amount,
	).Scan(&p.ID, &p.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
