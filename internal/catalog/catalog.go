// Package catalog loads the read-only product catalog and store metadata.
//
// The catalog ships embedded in the binary; CATALOG_PATH can point to an
// external file with the same shape. It is loaded once at startup and never
// mutated afterwards, so it is shared across requests without locking.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lbatal/storefront-assistant-go/internal/domain"
)

//go:embed catalog.json
var embeddedCatalog []byte

type catalogFile struct {
	Store    domain.Store     `json:"store"`
	Products []domain.Product `json:"products"`
}

// Catalog is the immutable product list plus store metadata.
type Catalog struct {
	store    domain.Store
	products []domain.Product
}

// Load reads the catalog from path, or from the embedded copy when path is empty.
func Load(path string) (*Catalog, error) {
	raw := embeddedCatalog
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", path, err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes and validates a catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, errors.New("catalog: no products")
	}

	seen := make(map[int]struct{}, len(f.Products))
	for i, p := range f.Products {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("catalog: product at index %d has no name", i)
		}
		if strings.TrimSpace(p.Category) == "" {
			return nil, fmt.Errorf("catalog: product %q has no category", p.Name)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %d", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	return New(f.Store, f.Products), nil
}

// New builds a catalog from in-memory values. The slices are copied.
func New(store domain.Store, products []domain.Product) *Catalog {
	return &Catalog{
		store:    cloneStore(store),
		products: cloneProducts(products),
	}
}

// Store returns the store metadata.
func (c *Catalog) Store() domain.Store {
	return cloneStore(c.store)
}

// Products returns every product in catalog order.
func (c *Catalog) Products() []domain.Product {
	return cloneProducts(c.products)
}

// ByCategory returns the products of one category in catalog order.
func (c *Catalog) ByCategory(category string) []domain.Product {
	out := make([]domain.Product, 0)
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, cloneProduct(p))
		}
	}
	return out
}

// Len is the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

func cloneProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	for i, p := range in {
		out[i] = cloneProduct(p)
	}
	return out
}

func cloneProduct(p domain.Product) domain.Product {
	p.Keywords = append([]string(nil), p.Keywords...)
	return p
}

func cloneStore(s domain.Store) domain.Store {
	s.Locations = append([]string(nil), s.Locations...)
	return s
}
