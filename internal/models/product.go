package models

type ProductStatus string

const (
	ProductDraft     ProductStatus = "draft"
	ProductPublished ProductStatus = "published"
)

func (s ProductStatus) Valid() bool {
	return s == ProductDraft || s == ProductPublished
}

// Product is a catalog entry. SortOrder drives storefront display order and
// is not required to be unique.
type Product struct {
	ID         string        `json:"id"`
	Category   string        `json:"category"`
	Title      string        `json:"title"`
	Price      int           `json:"price"`
	ServiceFee int           `json:"serviceFee"`
	ImageURL   string        `json:"imageUrl"`
	Stock      int           `json:"stock"`
	Status     ProductStatus `json:"status"`
	Tags       []string      `json:"tags"`
	SortOrder  int           `json:"sortOrder"`
}
