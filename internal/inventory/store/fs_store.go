package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	perrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/inventory"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultProductsCollection is the Firestore collection holding product documents.
const DefaultProductsCollection = "products"

// FirestoreStore implements ProductStore on Cloud Firestore. Every read-check-write runs inside
// RunTransaction, so concurrent adjustments of the same document are serialized by Firestore.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

// NewFirestoreStore creates a ProductStore backed by the given collection.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultProductsCollection
	}
	return &FirestoreStore{client: client, collection: collection, now: time.Now}
}

type fsProduct struct {
	Name          string         `firestore:"name"`
	Price         int64          `firestore:"price"`
	Sizes         []string       `firestore:"sizes"`
	SizeInventory map[string]any `firestore:"sizeInventory"`
	StockQuantity int64          `firestore:"stockQuantity"`
	Version       int64          `firestore:"version"`
	CreatedAt     time.Time      `firestore:"createdAt"`
	UpdatedAt     time.Time      `firestore:"updatedAt"`
}

func (s *FirestoreStore) ref(id uuid.UUID) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id.String())
}

// FindByID retrieves a product document by ID.
func (s *FirestoreStore) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	snap, err := s.ref(id).Get(ctx)
	if err != nil {
		return nil, fsError("find product by ID", err)
	}
	return fromSnapshot(snap)
}

// FindAll retrieves products ordered by creation time.
func (s *FirestoreStore) FindAll(ctx context.Context, offset, limit int32) ([]inventory.Product, error) {
	iter := s.client.Collection(s.collection).
		OrderBy("createdAt", firestore.Asc).
		Offset(int(offset)).
		Limit(int(limit)).
		Documents(ctx)
	defer iter.Stop()

	products := make([]inventory.Product, 0, limit)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fsError("find all products", err)
		}
		p, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

// Create adds a new product document.
func (s *FirestoreStore) Create(ctx context.Context, params ProductParams) (*inventory.Product, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &inventory.Product{
		ID:            uuid.New(),
		Name:          params.Name,
		Price:         params.Price,
		Sizes:         slices.Clone(params.Sizes),
		SizeInventory: params.SizeInventory,
		TotalStock:    params.TotalStock,
		Version:       1,
		CreatedAt:     &now,
		UpdatedAt:     &now,
	}
	if _, err := s.ref(p.ID).Create(ctx, toFsProduct(p)); err != nil {
		return nil, fsError("create product", err)
	}
	return p, nil
}

// Update replaces a product's details if the version matches.
func (s *FirestoreStore) Update(ctx context.Context, id uuid.UUID, version int32, params ProductParams) (*inventory.Product, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, "update product", id, func(p *inventory.Product) error {
		if p.Version != version {
			return perrors.ErrOptimisticLock
		}
		p.Name = params.Name
		p.Price = params.Price
		p.Sizes = slices.Clone(params.Sizes)
		p.SizeInventory = params.SizeInventory
		p.TotalStock = params.TotalStock
		return nil
	})
}

// DeleteByID removes a product document if the version matches.
func (s *FirestoreStore) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	ref := s.ref(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		p, err := fromSnapshot(snap)
		if err != nil {
			return err
		}
		if p.Version != version {
			return perrors.ErrOptimisticLock
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return fsError("delete product", err)
	}
	return nil
}

// SeedSizeInventory writes a full breakdown if the version matches.
func (s *FirestoreStore) SeedSizeInventory(ctx context.Context, id uuid.UUID, version int32, sizeInventory map[string]int32) (*inventory.Product, error) {
	return s.mutate(ctx, "seed size inventory", id, func(p *inventory.Product) error {
		if p.Version != version {
			return perrors.ErrOptimisticLock
		}
		if err := seedable(p, sizeInventory); err != nil {
			return err
		}
		p.SizeInventory = make(map[string]int32, len(sizeInventory))
		for k, v := range sizeInventory {
			p.SizeInventory[k] = v
		}
		p.TotalStock = inventory.Sum(p.SizeInventory)
		return nil
	})
}

// AdjustSizeStock applies delta to one size inside a transaction when the result is non-negative and fits
// a stock count.
func (s *FirestoreStore) AdjustSizeStock(ctx context.Context, id uuid.UUID, size string, delta int32) (*inventory.Product, error) {
	return s.mutate(ctx, "adjust size stock", id, func(p *inventory.Product) error {
		return adjusted(p, size, delta)
	})
}

// mutate reads the document, applies fn and writes it back with a bumped version, all in one transaction.
func (s *FirestoreStore) mutate(ctx context.Context, op string, id uuid.UUID, fn func(p *inventory.Product) error) (*inventory.Product, error) {
	ref := s.ref(id)
	var out *inventory.Product
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		p, err := fromSnapshot(snap)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		now := s.now().UTC()
		p.Version++
		p.UpdatedAt = &now
		if err := tx.Set(ref, toFsProduct(p)); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, fsError(op, err)
	}
	return out, nil
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*inventory.Product, error) {
	if snap == nil || !snap.Exists() {
		return nil, perrors.ErrProductNotFound
	}
	id, err := uuid.Parse(snap.Ref.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid product document ID %q: %w", snap.Ref.ID, err)
	}
	var raw fsProduct
	if err := snap.DataTo(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", id, err)
	}
	var sizeInventory map[string]int32
	if raw.SizeInventory != nil {
		sizeInventory = make(map[string]int32, len(raw.SizeInventory))
		for size, v := range raw.SizeInventory {
			sizeInventory[size] = inventory.CoerceStock(v)
		}
	}
	createdAt, updatedAt := raw.CreatedAt, raw.UpdatedAt
	return &inventory.Product{
		ID:            id,
		Name:          raw.Name,
		Price:         raw.Price,
		Sizes:         raw.Sizes,
		SizeInventory: sizeInventory,
		TotalStock:    inventory.CoerceStock(raw.StockQuantity),
		Version:       int32(raw.Version),
		CreatedAt:     &createdAt,
		UpdatedAt:     &updatedAt,
	}, nil
}

func toFsProduct(p *inventory.Product) fsProduct {
	doc := fsProduct{
		Name:          p.Name,
		Price:         p.Price,
		Sizes:         p.Sizes,
		StockQuantity: int64(p.TotalStock),
		Version:       int64(p.Version),
	}
	if p.SizeInventory != nil {
		doc.SizeInventory = make(map[string]any, len(p.SizeInventory))
		for size, v := range p.SizeInventory {
			doc.SizeInventory[size] = int64(v)
		}
	}
	if p.CreatedAt != nil {
		doc.CreatedAt = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		doc.UpdatedAt = *p.UpdatedAt
	}
	return doc
}

// fsError maps Firestore failures onto the store error taxonomy.
func fsError(op string, err error) error {
	for _, domain := range []error{
		perrors.ErrProductNotFound,
		perrors.ErrOptimisticLock,
		perrors.ErrInvalidSize,
		perrors.ErrSizeNotTracked,
		perrors.ErrInsufficientStock,
		perrors.ErrStockOverflow,
		perrors.ErrInvalidInventory,
	} {
		if errors.Is(err, domain) {
			return err
		}
	}
	switch status.Code(err) {
	case codes.NotFound:
		return perrors.ErrProductNotFound
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Canceled:
		return perrors.Transient(fmt.Errorf("failed to %s: %w", op, err))
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return perrors.Transient(fmt.Errorf("failed to %s: %w", op, err))
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
