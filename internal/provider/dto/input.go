package dto

type CreateProviderInput struct {
	AccountID string
	UserID    string
	Name      string
	Initials  string
	Email     string
}

type DeactivateProviderInput struct {
	ID        string
	AccountID string
	UserID    string
}
