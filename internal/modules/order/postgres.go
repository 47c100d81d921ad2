package order

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates an order repository backed by Postgres.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id, customer_id, order_number, status, payment_status, payment_method,
	stock_deducted, gateway_order_ref, gateway_payment_ref, invoice_number, coupon_code,
	subtotal, discount, total, currency, created_at, updated_at`

// CreateOrder inserts the order, its items and the initial history entry in a
// single transaction.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
		  (id, customer_id, order_number, status, payment_status, payment_method,
		   stock_deducted, gateway_order_ref, gateway_payment_ref, coupon_code,
		   subtotal, discount, total, currency)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.CustomerID, o.OrderNumber, o.Status, o.PaymentStatus, o.PaymentMethod,
		o.StockDeducted, o.GatewayOrderRef, o.GatewayPaymentRef, o.CouponCode,
		o.Subtotal, o.Discount, o.Total, o.Currency)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items
			  (id, order_id, product_id, variant, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, o.ID, item.ProductID, item.Variant, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_history (id, order_id, status, actor, note)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.New(), o.ID, o.Status, "customer", "order placed")
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}

	return tx.Commit()
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := r.scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if o.Items, err = r.listItems(ctx, o.ID); err != nil {
		return nil, err
	}
	if o.StatusHistory, err = r.listHistory(ctx, o.ID); err != nil {
		return nil, err
	}
	if o.Refunds, err = r.listRefunds(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id=$1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) FindIDByPaymentRef(ctx context.Context, paymentRef string) (uuid.UUID, bool, error) {
	if paymentRef == "" {
		return uuid.Nil, false, nil
	}
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM orders WHERE gateway_payment_ref=$1`, paymentRef).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (r *postgresRepo) FindIDByGatewayOrderRef(ctx context.Context, orderRef string) (uuid.UUID, bool, error) {
	if orderRef == "" {
		return uuid.Nil, false, nil
	}
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM orders WHERE gateway_order_ref=$1`, orderRef).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

// MarkPaid is the single conditional transition that makes racing callback and
// webhook deliveries safe: only the arrival that still sees PENDING writes.
// The NOT EXISTS guard binds the payment reference in the same statement, so
// two orders racing to claim one reference can never both apply.
func (r *postgresRepo) MarkPaid(ctx context.Context, id uuid.UUID, orderRef, paymentRef string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status=$2,
		    gateway_payment_ref=$3,
		    gateway_order_ref=COALESCE(NULLIF(gateway_order_ref,''), $4),
		    updated_at=$5
		WHERE id=$1 AND payment_status=$6
		  AND NOT EXISTS (
		    SELECT 1 FROM orders other
		    WHERE other.gateway_payment_ref=$3 AND other.gateway_payment_ref<>'' AND other.id<>$1
		  )`,
		id, PaymentPaid, paymentRef, orderRef, time.Now(), PaymentPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *postgresRepo) MarkPaymentFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET payment_status=$2, updated_at=$3 WHERE id=$1 AND payment_status=$4`,
		id, PaymentFailed, time.Now(), PaymentPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_history (id, order_id, status, actor, note)
		SELECT $1, $2, status, 'gateway', $3 FROM orders WHERE id=$2`,
		uuid.New(), id, "payment failed: "+reason)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id uuid.UUID, current, next Status, actor, note string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1 AND status=$4`,
		id, next, time.Now(), current)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_history (id, order_id, status, actor, note)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.New(), id, next, actor, note)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (r *postgresRepo) AppendNote(ctx context.Context, id uuid.UUID, actor, note string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_status_history (id, order_id, status, actor, note)
		SELECT $1, $2, status, $3, $4 FROM orders WHERE id=$2`,
		uuid.New(), id, actor, note)
	return err
}

func (r *postgresRepo) SetInvoiceNumber(ctx context.Context, id uuid.UUID, number string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET invoice_number=$2, updated_at=$3 WHERE id=$1 AND invoice_number IS NULL`,
		id, number, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// AddRefund inserts the credit note while holding the order row lock so the
// refund bound holds under concurrent requests.
func (r *postgresRepo) AddRefund(ctx context.Context, orderID uuid.UUID, refund *Refund) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var total float64
	err = tx.QueryRowContext(ctx,
		`SELECT total FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&total)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var refunded float64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount),0) FROM credit_notes WHERE order_id=$1`, orderID).Scan(&refunded)
	if err != nil {
		return err
	}
	if refunded+refund.Amount > total {
		return ErrRefundExceedsTotal
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_notes (id, order_id, credit_note_number, amount, reason)
		VALUES ($1,$2,$3,$4,$5)`,
		refund.ID, orderID, refund.CreditNoteNumber, refund.Amount, refund.Reason)
	if err != nil {
		return fmt.Errorf("insert credit note: %w", err)
	}
	return tx.Commit()
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	var customerID, invoiceNumber sql.NullString
	err := row.Scan(
		&o.ID, &customerID, &o.OrderNumber, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.StockDeducted, &o.GatewayOrderRef, &o.GatewayPaymentRef, &invoiceNumber, &o.CouponCode,
		&o.Subtotal, &o.Discount, &o.Total, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		uid, err := uuid.Parse(customerID.String)
		if err == nil {
			o.CustomerID = &uid
		}
	}
	if invoiceNumber.Valid {
		n := invoiceNumber.String
		o.InvoiceNumber = &n
	}
	return o, nil
}

func (r *postgresRepo) listItems(ctx context.Context, orderID uuid.UUID) ([]*LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant, quantity, unit_price, line_total
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		it := &LineItem{}
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Variant,
			&it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresRepo) listHistory(ctx context.Context, orderID uuid.UUID) ([]*StatusChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, status, actor, note, created_at
		FROM order_status_history WHERE order_id=$1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*StatusChange
	for rows.Next() {
		h := &StatusChange{}
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Actor, &h.Note, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *postgresRepo) listRefunds(ctx context.Context, orderID uuid.UUID) ([]*Refund, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, credit_note_number, amount, reason, created_at
		FROM credit_notes WHERE order_id=$1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []*Refund
	for rows.Next() {
		ref := &Refund{}
		if err := rows.Scan(&ref.ID, &ref.OrderID, &ref.CreditNoteNumber, &ref.Amount, &ref.Reason, &ref.CreatedAt); err != nil {
			return nil, err
		}
		refunds = append(refunds, ref)
	}
	return refunds, rows.Err()
}
