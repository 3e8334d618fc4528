package service

import (
	"fmt"

	"github.com/Skotchmaster/storefront/pkg/tokens"
)

// Actor is the caller an operation runs on behalf of. The zero value is anonymous.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) Authenticated() bool { return a.UserID != 0 }

func (a Actor) IsAdmin() bool { return a.Authenticated() && a.Role == tokens.RoleAdmin }

func requireAuth(a Actor) error {
	if !a.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}

func requireAdmin(a Actor) error {
	if err := requireAuth(a); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	return nil
}
