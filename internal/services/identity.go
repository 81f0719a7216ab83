package services

import "github.com/nemoguigrat/uralintern/internal/models"

// Identity is the authenticated caller as resolved from a bearer token.
type Identity struct {
	UserID uint
	Role   string
}

func (i Identity) Authenticated() bool {
	return i.UserID != 0
}

func (i Identity) IsTrainee() bool {
	return i.Role == models.RoleTrainee
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}
