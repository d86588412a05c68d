package dto

type ProductFilters struct {
	AccountID string
	Category  string
	IsActive  *bool
}
