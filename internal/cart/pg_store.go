package cart

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

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

func (p *PgStore) Items(ctx context.Context, cartID uuid.UUID) ([]db.CartItem, error) {
	items, err := p.q.FindCartItems(ctx, cartID)
	if err != nil {
		return nil, perrors.Transient(fmt.Errorf("failed to find cart items: %w", err))
	}
	return items, nil
}

func (p *PgStore) Item(ctx context.Context, cartID, itemID uuid.UUID) (*db.CartItem, error) {
	item, err := p.q.FindCartItemByID(ctx, db.FindCartItemByIDParams{CartID: cartID, ID: itemID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrCartLineNotFound
		}
		return nil, perrors.Transient(fmt.Errorf("failed to find cart item: %w", err))
	}
	return &item, nil
}

func (p *PgStore) AddItem(ctx context.Context, cartID uuid.UUID, params db.CreateCartItemParams) (*db.CartItem, error) {
	var item db.CartItem
	params.CartID = cartID
	txErr := p.withTransaction(ctx, func(qtx *db.Queries) error {
		if err := qtx.EnsureCart(ctx, cartID); err != nil {
			return fmt.Errorf("failed to create cart: %w", err)
		}
		var err error
		item, err = addOrMerge(ctx, qtx, params)
		if err != nil {
			return err
		}
		return qtx.TouchCart(ctx, cartID)
	})
	if txErr != nil {
		return nil, txErr
	}
	return &item, nil
}

func (p *PgStore) SetQuantity(ctx context.Context, cartID, itemID uuid.UUID, expected, quantity int32) (*db.CartItem, error) {
	var item db.CartItem
	txErr := p.withTransaction(ctx, func(qtx *db.Queries) error {
		var err error
		item, err = qtx.UpdateCartItemQuantity(ctx, db.UpdateCartItemQuantityParams{
			Quantity:         quantity,
			CartID:           cartID,
			ID:               itemID,
			ExpectedQuantity: expected,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return missOrConflict(ctx, qtx, cartID, itemID)
		}
		if err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		return qtx.TouchCart(ctx, cartID)
	})
	if txErr != nil {
		return nil, txErr
	}
	return &item, nil
}

func (p *PgStore) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID, expected int32) error {
	return p.withTransaction(ctx, func(qtx *db.Queries) error {
		count, err := qtx.DeleteCartItem(ctx, db.DeleteCartItemParams{CartID: cartID, ID: itemID, Quantity: expected})
		if err != nil {
			return perrors.Transient(fmt.Errorf("failed to delete cart item: %w", err))
		}
		if count == 0 {
			return missOrConflict(ctx, qtx, cartID, itemID)
		}
		return qtx.TouchCart(ctx, cartID)
	})
}

// missOrConflict tells apart a line that is gone from one whose quantity moved under a conditional write.
func missOrConflict(ctx context.Context, qtx *db.Queries, cartID, itemID uuid.UUID) error {
	_, err := qtx.FindCartItemByID(ctx, db.FindCartItemByIDParams{CartID: cartID, ID: itemID})
	switch {
	case err == nil:
		return perrors.ErrOptimisticLock
	case errors.Is(err, pgx.ErrNoRows):
		return perrors.ErrCartLineNotFound
	default:
		return fmt.Errorf("failed to find cart item: %w", err)
	}
}

func (p *PgStore) Merge(ctx context.Context, from, to uuid.UUID) error {
	return p.withTransaction(ctx, func(qtx *db.Queries) error {
		items, err := qtx.FindCartItems(ctx, from)
		if err != nil {
			return fmt.Errorf("failed to find cart items: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		if err := qtx.EnsureCart(ctx, to); err != nil {
			return fmt.Errorf("failed to create cart: %w", err)
		}
		for _, item := range items {
			if _, err := addOrMerge(ctx, qtx, db.CreateCartItemParams{
				CartID:    to,
				ProductID: item.ProductID,
				Size:      item.Size,
				Color:     item.Color,
				Quantity:  item.Quantity,
			}); err != nil {
				return err
			}
		}
		if _, err := qtx.DeleteCart(ctx, from); err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return qtx.TouchCart(ctx, to)
	})
}

// addOrMerge adds to an identical line if one exists. The increment happens in SQL so concurrent adds
// to the same line are not lost.
func addOrMerge(ctx context.Context, qtx *db.Queries, params db.CreateCartItemParams) (db.CartItem, error) {
	existing, err := qtx.FindCartItemByKey(ctx, db.FindCartItemByKeyParams{
		CartID:    params.CartID,
		ProductID: params.ProductID,
		Size:      params.Size,
		Color:     params.Color,
	})
	switch {
	case err == nil:
		item, err := qtx.IncrementCartItemQuantity(ctx, db.IncrementCartItemQuantityParams{
			ID:       existing.ID,
			Quantity: params.Quantity,
		})
		if err != nil {
			return db.CartItem{}, fmt.Errorf("failed to update cart item: %w", err)
		}
		return item, nil
	case errors.Is(err, pgx.ErrNoRows):
		item, err := qtx.CreateCartItem(ctx, params)
		if err != nil {
			return db.CartItem{}, fmt.Errorf("failed to create cart item: %w", err)
		}
		return item, nil
	default:
		return db.CartItem{}, fmt.Errorf("failed to find cart item: %w", err)
	}
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
