// Package roster resolves the directory of eligible partners and bosses,
// and repairs dangling party references on historical records.
package roster

import (
	"context"
	"sort"

	"partnerledger/internal/errs"
	"partnerledger/internal/models"
)

// Directory is the slice of the store the resolver needs.
type Directory interface {
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Resolver looks up party choices from the user directory.
type Resolver struct {
	dir Directory
}

// NewResolver returns a Resolver backed by the given directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// ListPartners returns all partner accounts, sorted by name for a stable
// selection order.
func (r *Resolver) ListPartners(ctx context.Context) ([]models.User, error) {
	return r.listByRole(ctx, models.RolePartner)
}

// ListBosses returns all boss accounts, sorted by name.
func (r *Resolver) ListBosses(ctx context.Context) ([]models.User, error) {
	return r.listByRole(ctx, models.RoleBoss)
}

func (r *Resolver) listByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	users, err := r.dir.ListUsersByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// RequireRole returns the user with the given id if it exists and holds
// the expected role. Used to validate party references on create/edit.
func (r *Resolver) RequireRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	user, err := r.dir.GetUserByID(ctx, id)
	if err != nil {
		return nil, errs.Validationf("no roster entry for id %q", id)
	}
	if user.Role != role {
		return nil, errs.Validationf("roster entry %q has role %q, want %q", id, user.Role, role)
	}
	return user, nil
}

// ResolveOrFallback finds id in roster. When the id is missing (a record
// referencing a since-deleted account) it falls back to the roster's
// first entry and reports the silent reassignment, keeping the system
// usable instead of blocking on a dangling reference. ok is false only
// when the roster itself is empty.
func ResolveOrFallback(id string, roster []models.User) (entry models.User, reassigned, ok bool) {
	for _, u := range roster {
		if u.ID == id {
			return u, false, true
		}
	}
	if len(roster) == 0 {
		return models.User{}, false, false
	}
	return roster[0], true, true
}
