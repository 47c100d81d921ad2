package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates an inventory repository backed by Postgres.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) CreateProduct(ctx context.Context, p *Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, price, currency, in_stock, is_locked)
		VALUES ($1,$2,$3,$4,$5,false)`,
		p.ID, p.Name, p.Price, p.Currency, p.HasStock())
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	for variant, qty := range p.Stock {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_stock (product_id, variant, quantity)
			VALUES ($1,$2,$3)`,
			p.ID, variant, qty)
		if err != nil {
			return fmt.Errorf("insert product_stock: %w", err)
		}
	}
	return tx.Commit()
}

func (r *postgresRepo) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	p := &Product{Stock: map[string]int{}}
	var lockedAt sql.NullTime
	var lockedBy sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, currency, in_stock, is_locked, locked_at, locked_by_order, created_at, updated_at
		FROM products WHERE id=$1`, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Currency, &p.InStock, &p.IsLocked, &lockedAt, &lockedBy, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if lockedAt.Valid {
		p.LockedAt = &lockedAt.Time
	}
	if lockedBy.Valid {
		if uid, err := uuid.Parse(lockedBy.String); err == nil {
			p.LockedByOrder = &uid
		}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT variant, quantity FROM product_stock WHERE product_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var variant string
		var qty int
		if err := rows.Scan(&variant, &qty); err != nil {
			return nil, err
		}
		p.Stock[variant] = qty
	}
	return p, rows.Err()
}

func (r *postgresRepo) Restock(ctx context.Context, productID uuid.UUID, variant string, qty int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO product_stock (product_id, variant, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (product_id, variant) DO UPDATE SET quantity = product_stock.quantity + $3`,
		productID, variant, qty)
	if err != nil {
		return fmt.Errorf("restock: %w", err)
	}
	if err := recomputeInStock(ctx, tx, productID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeductForOrder implements the whole-order all-or-nothing deduction. Row
// locks are taken on every affected stock row and on the owning order before
// any write, so two settlements of the same order serialize here and the
// second one exits through the stock_deducted guard.
func (r *postgresRepo) DeductForOrder(ctx context.Context, orderID uuid.UUID, items []*order.LineItem, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var deducted bool
	err = tx.QueryRowContext(ctx,
		`SELECT stock_deducted FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&deducted)
	if err == sql.ErrNoRows {
		return false, order.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if deducted {
		return false, nil
	}

	// Lock stock rows in a deterministic order so two orders touching the
	// same products from different cart orders cannot deadlock each other.
	items = sortedByUnit(items)

	// Validate every line first so the error carries the full shortfall list.
	var shortfalls []Shortfall
	for _, it := range items {
		var available int
		err := tx.QueryRowContext(ctx,
			`SELECT quantity FROM product_stock WHERE product_id=$1 AND variant=$2 FOR UPDATE`,
			it.ProductID, it.Variant).Scan(&available)
		if err == sql.ErrNoRows {
			available = 0
		} else if err != nil {
			return false, err
		}
		if available < it.Quantity {
			shortfalls = append(shortfalls, Shortfall{
				ProductID: it.ProductID, Variant: it.Variant,
				Requested: it.Quantity, Available: available,
			})
		}
	}
	if len(shortfalls) > 0 {
		return false, &InsufficientStockError{OrderID: orderID, Shortfalls: shortfalls}
	}

	for _, it := range items {
		_, err = tx.ExecContext(ctx, `
			UPDATE product_stock SET quantity = quantity - $3
			WHERE product_id=$1 AND variant=$2`,
			it.ProductID, it.Variant, it.Quantity)
		if err != nil {
			return false, err
		}
		// First-sale price lock: COALESCE keeps the original locker on repeats.
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET in_stock = EXISTS (SELECT 1 FROM product_stock WHERE product_id=$1 AND quantity > 0),
			    is_locked = true,
			    locked_at = COALESCE(locked_at, $2),
			    locked_by_order = COALESCE(locked_by_order, $3),
			    updated_at = $2
			WHERE id=$1`,
			it.ProductID, now, orderID)
		if err != nil {
			return false, err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET stock_deducted=true, updated_at=$2 WHERE id=$1`, orderID, now)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (r *postgresRepo) SetPrice(ctx context.Context, productID uuid.UUID, price float64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET price=$2, updated_at=$3
		WHERE id=$1 AND (is_locked = false OR price = $2)`,
		productID, price, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// sortedByUnit returns the line items ordered by (product_id, variant). The
// input slice is not modified.
func sortedByUnit(items []*order.LineItem) []*order.LineItem {
	out := make([]*order.LineItem, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ProductID != b.ProductID {
			return a.ProductID.String() < b.ProductID.String()
		}
		return a.Variant < b.Variant
	})
	return out
}

func recomputeInStock(ctx context.Context, tx *sql.Tx, productID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET in_stock = EXISTS (SELECT 1 FROM product_stock WHERE product_id=$1 AND quantity > 0),
		    updated_at = $2
		WHERE id=$1`, productID, time.Now())
	return err
}
