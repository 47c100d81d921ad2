package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

func seedProduct(t *testing.T, repo *MemoryRepository, price float64, stock map[string]int) *Product {
	t.Helper()
	p := &Product{
		ID:       uuid.New(),
		Name:     "Test Kurta",
		Price:    price,
		Currency: "INR",
		Stock:    stock,
	}
	p.InStock = p.HasStock()
	if err := repo.CreateProduct(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func paidOrder(items ...*order.LineItem) *order.Order {
	id := uuid.New()
	for _, it := range items {
		it.OrderID = id
	}
	return &order.Order{
		ID:            id,
		Status:        order.StatusPlaced,
		PaymentStatus: order.PaymentPaid,
		Items:         items,
	}
}

func line(productID uuid.UUID, variant string, qty int) *order.LineItem {
	return &order.LineItem{ID: uuid.New(), ProductID: productID, Variant: variant, Quantity: qty}
}

func TestSettleInventoryDeductsAndLocks(t *testing.T) {
	repo := NewMemoryRepository(nil)
	svc := NewService(repo, zap.NewNop())
	p := seedProduct(t, repo, 799, map[string]int{"M": 5})

	o := paidOrder(line(p.ID, "M", 2))
	if err := svc.SettleInventory(context.Background(), o); err != nil {
		t.Fatalf("SettleInventory failed: %v", err)
	}
	if !o.StockDeducted {
		t.Error("expected StockDeducted flag set")
	}

	fresh, _ := repo.GetProduct(context.Background(), p.ID)
	if fresh.Stock["M"] != 3 {
		t.Errorf("expected stock 3, got %d", fresh.Stock["M"])
	}
	if !fresh.IsLocked {
		t.Error("expected price lock after first sale")
	}
	if fresh.LockedByOrder == nil || *fresh.LockedByOrder != o.ID {
		t.Error("expected lock attributed to the settling order")
	}
}

func TestSettleInventoryDuplicateIsNoOp(t *testing.T) {
	repo := NewMemoryRepository(nil)
	svc := NewService(repo, zap.NewNop())
	p := seedProduct(t, repo, 799, map[string]int{"M": 5})

	o := paidOrder(line(p.ID, "M", 2))
	if err := svc.SettleInventory(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	// Same order, flag cleared to simulate a second trigger with a stale read.
	o.StockDeducted = false
	if err := svc.SettleInventory(context.Background(), o); err != nil {
		t.Fatalf("duplicate settlement must be a no-op, got %v", err)
	}

	fresh, _ := repo.GetProduct(context.Background(), p.ID)
	if fresh.Stock["M"] != 3 {
		t.Errorf("duplicate settlement must not deduct again, stock %d", fresh.Stock["M"])
	}
}

func TestSettleInventoryAllOrNothing(t *testing.T) {
	repo := NewMemoryRepository(nil)
	svc := NewService(repo, zap.NewNop())
	a := seedProduct(t, repo, 500, map[string]int{"M": 10})
	b := seedProduct(t, repo, 900, map[string]int{"L": 1})

	o := paidOrder(line(a.ID, "M", 2), line(b.ID, "L", 3))
	err := svc.SettleInventory(context.Background(), o)

	var ise *InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(ise.Shortfalls) != 1 {
		t.Fatalf("expected 1 shortfall, got %d", len(ise.Shortfalls))
	}
	sf := ise.Shortfalls[0]
	if sf.ProductID != b.ID || sf.Requested != 3 || sf.Available != 1 {
		t.Errorf("unexpected shortfall: %+v", sf)
	}

	// Nothing written: the in-stock line must be untouched too.
	freshA, _ := repo.GetProduct(context.Background(), a.ID)
	if freshA.Stock["M"] != 10 {
		t.Errorf("expected product A stock untouched at 10, got %d", freshA.Stock["M"])
	}
	if freshA.IsLocked {
		t.Error("rejected settlement must not lock prices")
	}
	if o.StockDeducted {
		t.Error("rejected settlement must not flag the order")
	}
}

func TestConcurrentSettlementsNeverOversell(t *testing.T) {
	repo := NewMemoryRepository(nil)
	svc := NewService(repo, zap.NewNop())
	p := seedProduct(t, repo, 500, map[string]int{"M": 5})

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.SettleInventory(context.Background(), paidOrder(line(p.ID, "M", 2)))
		}(i)
	}
	wg.Wait()

	settled := 0
	for _, err := range errs {
		if err == nil {
			settled++
		}
	}
	if settled != 2 {
		t.Errorf("expected exactly 2 settlements from stock 5, got %d", settled)
	}
	fresh, _ := repo.GetProduct(context.Background(), p.ID)
	if fresh.Stock["M"] != 1 {
		t.Errorf("expected remaining stock 1, got %d", fresh.Stock["M"])
	}
	if fresh.Stock["M"] < 0 {
		t.Errorf("stock went negative: %d", fresh.Stock["M"])
	}
}

func TestSortedByUnitOrdersDeterministically(t *testing.T) {
	p1 := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	p2 := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	forward := []*order.LineItem{line(p1, "M", 1), line(p1, "S", 1), line(p2, "L", 1)}
	reverse := []*order.LineItem{line(p2, "L", 1), line(p1, "S", 1), line(p1, "M", 1)}

	a := sortedByUnit(forward)
	b := sortedByUnit(reverse)
	for i := range a {
		if a[i].ProductID != b[i].ProductID || a[i].Variant != b[i].Variant {
			t.Fatalf("position %d differs: %s/%s vs %s/%s",
				i, a[i].ProductID, a[i].Variant, b[i].ProductID, b[i].Variant)
		}
	}
	if a[0].ProductID != p1 || a[0].Variant != "M" || a[2].ProductID != p2 {
		t.Errorf("unexpected order: %s/%s first, %s/%s last",
			a[0].ProductID, a[0].Variant, a[2].ProductID, a[2].Variant)
	}
	// Caller's slice stays as given.
	if reverse[0].ProductID != p2 {
		t.Error("input slice must not be reordered")
	}
}

func TestUpdatePriceRejectedWhenLocked(t *testing.T) {
	repo := NewMemoryRepository(nil)
	svc := NewService(repo, zap.NewNop())
	p := seedProduct(t, repo, 799, map[string]int{"M": 5})

	if err := svc.SettleInventory(context.Background(), paidOrder(line(p.ID, "M", 1))); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdatePrice(context.Background(), p.ID.String(), 899); !errors.Is(err, ErrPriceLocked) {
		t.Fatalf("expected ErrPriceLocked, got %v", err)
	}

	fresh, _ := repo.GetProduct(context.Background(), p.ID)
	if fresh.Price != 799 {
		t.Errorf("locked price must not change, got %v", fresh.Price)
	}
}

func TestUpdatePriceSameValueIsNoOp(t *testing.T) {
	repo := NewMemoryRepository(nil)
	svc := NewService(repo, zap.NewNop())
	p := seedProduct(t, repo, 799, map[string]int{"M": 5})

	if err := svc.SettleInventory(context.Background(), paidOrder(line(p.ID, "M", 1))); err != nil {
		t.Fatal(err)
	}

	got, err := svc.UpdatePrice(context.Background(), p.ID.String(), 799)
	if err != nil {
		t.Fatalf("writing the identical price must succeed, got %v", err)
	}
	if got.Price != 799 {
		t.Errorf("expected price 799, got %v", got.Price)
	}
}

func TestUpdatePriceBeforeFirstSale(t *testing.T) {
	repo := NewMemoryRepository(nil)
	svc := NewService(repo, zap.NewNop())
	p := seedProduct(t, repo, 799, map[string]int{"M": 5})

	got, err := svc.UpdatePrice(context.Background(), p.ID.String(), 899)
	if err != nil {
		t.Fatalf("UpdatePrice failed: %v", err)
	}
	if got.Price != 899 {
		t.Errorf("expected price 899, got %v", got.Price)
	}
}

func TestGetUnitPriceAvailability(t *testing.T) {
	repo := NewMemoryRepository(nil)
	svc := NewService(repo, zap.NewNop())
	p := seedProduct(t, repo, 799, map[string]int{"M": 1, "L": 0})

	price, available, err := svc.GetUnitPrice(context.Background(), p.ID, "M")
	if err != nil || !available || price != 799 {
		t.Errorf("expected (799, true), got (%v, %v, %v)", price, available, err)
	}
	_, available, err = svc.GetUnitPrice(context.Background(), p.ID, "L")
	if err != nil || available {
		t.Errorf("expected L unavailable, got available=%v err=%v", available, err)
	}
}
