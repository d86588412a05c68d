package dto

type CreateLocationInput struct {
	AccountID string
	UserID    string
	Name      string
	Type      string
}
