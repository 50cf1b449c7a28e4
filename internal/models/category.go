package models

// Category is a static lookup entry for product categorization.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultCategories seeds an empty category collection.
var DefaultCategories = []Category{
	{ID: "food", Name: "食品"},
	{ID: "beauty", Name: "美妝"},
	{ID: "daily", Name: "生活用品"},
	{ID: "fashion", Name: "服飾"},
	{ID: "other", Name: "其他"},
}
