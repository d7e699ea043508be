package order

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PgStore implements Store using PostgreSQL.
type PgStore struct {
	db *pgxpool.Pool
	q  *db.Queries
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		db: dbp,
		q:  db.New(dbp),
	}
}

func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*db.Order, []db.OrderItem, error) {
	var order db.Order
	var items []db.OrderItem

	// One transaction so the items belong to the order as read.
	txErr := p.withTransaction(ctx, func(qtx *db.Queries) error {
		var err error
		order, err = qtx.FindOrderByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return perrors.ErrOrderNotFound
			}
			return fmt.Errorf("failed to find order: %w", err)
		}
		items, err = qtx.FindOrderItemsByOrderID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to find order items: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}
	return &order, items, nil
}

func (p *PgStore) FindByIdempotencyKey(ctx context.Context, key string) (*db.Order, error) {
	order, err := p.q.FindOrderByIdempotencyKey(ctx, &key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrOrderNotFound
		}
		return nil, perrors.Transient(fmt.Errorf("failed to find order by idempotency key: %w", err))
	}
	return &order, nil
}

func (p *PgStore) FindOrdersByUserID(ctx context.Context, params db.FindOrdersByUserIDParams) ([]db.Order, error) {
	// No need for transaction here as we are making just one query to fetch orders
	orders, err := p.q.FindOrdersByUserID(ctx, params)
	if err != nil {
		return nil, perrors.Transient(fmt.Errorf("failed to find user orders: %w", err))
	}
	return orders, nil
}

func (p *PgStore) CreateOrder(ctx context.Context, orderParams db.CreateOrderParams, items []db.CreateOrderItemParams) (*db.Order, []db.OrderItem, error) {
	var created db.Order
	var createdItems []db.OrderItem

	txErr := p.withTransaction(ctx, func(qtx *db.Queries) error {
		var err error
		created, err = qtx.CreateOrder(ctx, orderParams)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return perrors.ErrDuplicateRequest
			}
			return fmt.Errorf("failed to create order: %w", err)
		}
		createdItems = make([]db.OrderItem, 0, len(items))
		for _, item := range items {
			item.OrderID = created.ID
			orderItem, err := qtx.CreateOrderItem(ctx, item)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			createdItems = append(createdItems, orderItem)
		}
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}
	return &created, createdItems, nil
}

func (p *PgStore) UpdateStatus(ctx context.Context, params db.UpdateOrderStatusParams) (*db.Order, error) {
	var order db.Order

	txErr := p.withTransaction(ctx, func(qtx *db.Queries) error {
		var err error
		order, err = qtx.UpdateOrderStatus(ctx, params)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to update order: %w", err)
		}
		// Check if the order exists, or it's an optimistic lock error.
		if _, err := qtx.FindOrderByID(ctx, params.ID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return perrors.ErrOrderNotFound
			}
			return fmt.Errorf("failed to find order: %w", err)
		}
		return perrors.ErrOptimisticLock
	})
	if txErr != nil {
		return nil, txErr
	}
	return &order, nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(qtx *db.Queries) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return perrors.Transient(fmt.Errorf("%w: %w", perrors.ErrTransactionBegin, err))
	}
	qtx := p.q.WithTx(tx)

	err = fn(qtx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w: %w", perrors.ErrTransactionRollback, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return perrors.Transient(fmt.Errorf("%w: %w", perrors.ErrTransactionCommit, err))
	}
	return nil
}
