package shop

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/dpup/storefront/authz"
	"github.com/dpup/storefront/errors"
	"github.com/dpup/storefront/logging"
	"github.com/dpup/storefront/storage"
)

// NewProductService constructs a product service over the given store.
func NewProductService(gate *authz.Gate, store storage.Store) *ProductService {
	return &ProductService{gate: gate, store: store}
}

// ProductService implements catalog management and shopper-facing browsing.
// Staff operations are gated on catalog permissions; reads are filtered by
// the product scope so shoppers never see inactive or archived entries.
type ProductService struct {
	gate  *authz.Gate
	store storage.Store
}

// Create adds a catalog entry. An empty ID is assigned one.
func (s *ProductService) Create(ctx context.Context, subject authz.Subject, p Product) (*Product, error) {
	if d := s.gate.Check(ctx, subject, authz.PermCreateProduct); !d.Allowed {
		return nil, &AuthorizationError{Permission: authz.PermCreateProduct}
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.store.Create(p); err != nil {
		return nil, err
	}
	logging.Infow(ctx, "product created", "productID", p.ID, "name", p.Name)
	return &p, nil
}

// Update replaces a catalog entry.
func (s *ProductService) Update(ctx context.Context, subject authz.Subject, p Product) (*Product, error) {
	if d := s.gate.Check(ctx, subject, authz.PermEditProduct); !d.Allowed {
		return nil, &AuthorizationError{Permission: authz.PermEditProduct}
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.store.Update(p); err != nil {
		return nil, err
	}
	logging.Infow(ctx, "product updated", "productID", p.ID)
	return &p, nil
}

// Archive retires a product from the catalog without touching order history.
// Archiving is a lifecycle edit, gated on edit_product. Idempotent.
func (s *ProductService) Archive(ctx context.Context, subject authz.Subject, productID string) (*Product, error) {
	if d := s.gate.Check(ctx, subject, authz.PermEditProduct); !d.Allowed {
		return nil, &AuthorizationError{Permission: authz.PermEditProduct}
	}
	var p Product
	if err := s.store.Read(productID, &p); err != nil {
		return nil, err
	}
	if p.Archived {
		return &p, nil
	}
	p.Archived = true
	p.Active = false
	if err := s.store.Update(p); err != nil {
		return nil, err
	}
	logging.Infow(ctx, "product archived", "productID", p.ID)
	return &p, nil
}

// Delete hard-removes a product. Refused when any order line references it;
// such products can only be archived, preserving historical receipts.
func (s *ProductService) Delete(ctx context.Context, subject authz.Subject, productID string) error {
	if d := s.gate.Check(ctx, subject, authz.PermDeleteProduct); !d.Allowed {
		return &AuthorizationError{Permission: authz.PermDeleteProduct}
	}

	var refs []OrderItem
	if err := s.store.List(&refs, OrderItem{ProductID: productID}); err != nil {
		return err
	}
	if len(refs) > 0 {
		return &ReferentialConstraintError{ProductID: productID}
	}

	if err := s.store.Delete(Product{ID: productID}); err != nil {
		return err
	}
	logging.Infow(ctx, "product deleted", "productID", productID)
	return nil
}

// Get reads a single product, subject to the caller's scope. Out-of-scope
// products report not found, so shoppers can't probe the back catalog.
// Browsing is one of the few guest-allowed operations; an anonymous subject
// skips the permission check and is bound by the active-only scope instead.
func (s *ProductService) Get(ctx context.Context, subject authz.Subject, productID string) (*Product, error) {
	if subject.Authenticated {
		if d := s.gate.Check(ctx, subject, authz.PermViewProducts); !d.Allowed {
			return nil, &AuthorizationError{Permission: authz.PermViewProducts}
		}
	}
	var p Product
	if err := s.store.Read(productID, &p); err != nil {
		return nil, err
	}
	scope := s.gate.ScopeFor(authz.ResourceProducts, subject)
	if !scope.Matches(p) {
		return nil, errors.Mark(storage.ErrNotFound, 0)
	}
	return &p, nil
}

// List returns the catalog visible to the subject, sorted by name then id.
// Dashboard holders see everything; everyone else sees the live catalog.
// Filtering happens here rather than in the store query since the scope is
// a predicate over rows, not a field-equality filter.
func (s *ProductService) List(ctx context.Context, subject authz.Subject) ([]Product, error) {
	if subject.Authenticated {
		if d := s.gate.Check(ctx, subject, authz.PermViewProducts); !d.Allowed {
			return nil, &AuthorizationError{Permission: authz.PermViewProducts}
		}
	}

	var all []Product
	if err := s.store.List(&all, Product{}); err != nil {
		return nil, err
	}

	scope := s.gate.ScopeFor(authz.ResourceProducts, subject)
	products := make([]Product, 0, len(all))
	for _, p := range all {
		if scope.Matches(p) {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func validateProduct(p Product) error {
	if p.Name == "" {
		return errors.Codef(codes.InvalidArgument, "shop: product name is required")
	}
	if p.PriceCents < 0 {
		return errors.Codef(codes.InvalidArgument, "shop: product price must not be negative")
	}
	return nil
}
