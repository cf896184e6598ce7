package domain

import "github.com/shopspring/decimal"

// Kind controls how a product can be paid for.
type Kind string

const (
	KindRegular     Kind = "regular"      // cash only
	KindLoyaltyOnly Kind = "loyalty_only" // points only, never earns
	KindHybrid      Kind = "hybrid"       // cash or points
)

type Product struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Price       decimal.Decimal     `json:"price"`
	SalePrice   decimal.NullDecimal `json:"salePrice,omitempty"`
	PointsPrice int64               `json:"pointsPrice,omitempty"`
	Stock       int64               `json:"stock"`
	Kind        Kind                `json:"type"`
	Image       string              `json:"image,omitempty"`
}

// EffectivePrice is the sale price when one is set, otherwise the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return p.Price
}
