package domain

// ============================================================
// Orders: POST /api/orders
// ============================================================

// OrderProduct is the product snapshot the page attaches to an order.
type OrderProduct struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Category string  `json:"category"`
}

// Order is a submitted order form. It is not stored anywhere: the notifier
// turns it into a confirmation and an email, then it is dropped.
type Order struct {
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Email     string        `json:"email,omitempty"`
	Address   string        `json:"address"`
	Store     string        `json:"store"`
	Product   *OrderProduct `json:"product"`
	Timestamp string        `json:"timestamp"`
}

// OrderResponse is the body of every /api/orders response.
type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EmailMessage is an outbound HTML email.
type EmailMessage struct {
	To       string
	Subject  string
	HTMLBody string
}
