//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package source

import (
	"math"
	"strconv"
	"time"
)

// Order is a decoded order header.
type Order struct {
	Line        int
	ID          string
	CustomerID  string
	Status      string
	PurchasedAt time.Time
	DeliveredAt *time.Time
	EstimatedAt *time.Time
}

// OrderItem is a decoded order line. Price and Freight are measures and are
// validated when the fact row is built.
type OrderItem struct {
	Line      int
	OrderID   string
	Seq       int
	ProductID string
	SellerID  string
	Price     Amount
	Freight   Amount
}

// Customer is a decoded customer.
type Customer struct {
	Line      int
	ID        string
	UniqueID  string
	ZipPrefix string
	City      string
	State     string
}

// Seller is a decoded seller.
type Seller struct {
	Line      int
	ID        string
	ZipPrefix string
	City      string
	State     string
}

// Payment is a decoded payment. Sequential is nil when the extract does
// not carry it.
type Payment struct {
	Line         int
	OrderID      string
	Sequential   *int
	Type         string
	Installments int
	Value        Amount
}

// Review is a decoded review.
type Review struct {
	Line       int
	ID         string
	OrderID    string
	Score      int
	Comment    string
	CreatedAt  *time.Time
	AnsweredAt *time.Time
}

// City is a decoded row of the city reference table. Indicators are nil
// when the source leaves them empty.
type City struct {
	Line         int
	Name         string
	State        string
	Population   *int64
	GDPPerCapita *float64
	HDI          *float64
	HDIIncome    *float64
	HDIEducation *float64
	HDILongevity *float64
	IsCapital    bool
	Category     string
}

// Records holds the decoded tables of one run.
type Records struct {
	Orders    []Order
	Items     []OrderItem
	Customers []Customer
	Sellers   []Seller
	Payments  []Payment
	Reviews   []Review
	Cities    []City
}

// Amount is a raw monetary measure. Valid is false when Raw is empty,
// non-numeric, not finite or negative.
type Amount struct {
	Raw   string
	Value float64
	Valid bool
}

// ParseAmount parses a raw measure.
func ParseAmount(raw string) Amount {
	a := Amount{Raw: raw}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return a
	}
	a.Value = v
	a.Valid = true
	return a
}

// NewAmount returns a valid Amount for v.
func NewAmount(v float64) Amount {
	return ParseAmount(strconv.FormatFloat(v, 'f', -1, 64))
}
