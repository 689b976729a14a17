package domain

// ============================================================
// Catalog: products and store metadata
// ============================================================

// Product categories known to the resolver. New categories only need
// catalog entries; the resolver phrase sets cover these three.
const (
	CategoryPhone   = "phone"
	CategoryEarbuds = "earbuds"
	CategoryCharger = "charger"
)

// Product is one sellable catalog entry. It is never mutated after load.
type Product struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Stock       int      `json:"stock"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Keywords    []string `json:"keywords"`
}

// Store holds the shop metadata embedded in prompts and fallback replies.
type Store struct {
	Name      string   `json:"name"`
	MainName  string   `json:"main_name"`
	Locations []string `json:"locations"`
	City      string   `json:"city"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Hours     string   `json:"hours"`
}

// CatalogResponse is returned by GET /v1/catalog.
type CatalogResponse struct {
	Store    Store     `json:"store"`
	Products []Product `json:"products"`
}
