package roster

import (
	"context"
	"errors"
	"testing"

	"partnerledger/internal/errs"
	"partnerledger/internal/models"
	"partnerledger/internal/storage/memory"
)

func seedUsers(t *testing.T, store *memory.Store, users ...models.User) {
	t.Helper()
	ctx := context.Background()
	for i := range users {
		if err := store.CreateUser(ctx, &users[i]); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}
}

func TestListPartnersSortedByName(t *testing.T) {
	store := memory.New()
	seedUsers(t, store,
		models.User{ID: "p2", Email: "b@x", Name: "Boaz", Role: models.RolePartner},
		models.User{ID: "p1", Email: "a@x", Name: "Avi", Role: models.RolePartner},
		models.User{ID: "b1", Email: "c@x", Name: "Chaim", Role: models.RoleBoss},
	)

	r := NewResolver(store)
	partners, err := r.ListPartners(context.Background())
	if err != nil {
		t.Fatalf("ListPartners failed: %v", err)
	}

	if len(partners) != 2 {
		t.Fatalf("got %d partners, want 2", len(partners))
	}
	if partners[0].Name != "Avi" || partners[1].Name != "Boaz" {
		t.Errorf("partners not sorted by name: %s, %s", partners[0].Name, partners[1].Name)
	}

	bosses, err := r.ListBosses(context.Background())
	if err != nil {
		t.Fatalf("ListBosses failed: %v", err)
	}
	if len(bosses) != 1 || bosses[0].ID != "b1" {
		t.Errorf("unexpected bosses: %+v", bosses)
	}
}

func TestRequireRole(t *testing.T) {
	store := memory.New()
	seedUsers(t, store,
		models.User{ID: "p1", Email: "a@x", Name: "Avi", Role: models.RolePartner},
	)
	r := NewResolver(store)
	ctx := context.Background()

	if _, err := r.RequireRole(ctx, "p1", models.RolePartner); err != nil {
		t.Errorf("expected p1 to resolve as partner, got %v", err)
	}
	if _, err := r.RequireRole(ctx, "p1", models.RoleBoss); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error for wrong role, got %v", err)
	}
	if _, err := r.RequireRole(ctx, "ghost", models.RolePartner); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error for missing id, got %v", err)
	}
}

func TestResolveOrFallback(t *testing.T) {
	roster := []models.User{
		{ID: "p1", Name: "A"},
		{ID: "p2", Name: "B"},
	}

	t.Run("existing id resolves without reassignment", func(t *testing.T) {
		entry, reassigned, ok := ResolveOrFallback("p2", roster)
		if !ok || reassigned {
			t.Fatalf("ok = %v, reassigned = %v, want true/false", ok, reassigned)
		}
		if entry.ID != "p2" {
			t.Errorf("entry = %s, want p2", entry.ID)
		}
	})

	t.Run("ghost id falls back to first entry and flags it", func(t *testing.T) {
		entry, reassigned, ok := ResolveOrFallback("ghost", roster)
		if !ok {
			t.Fatal("expected a fallback entry for a non-empty roster")
		}
		if !reassigned {
			t.Error("expected the reassignment flag to be set")
		}
		if entry.ID != "p1" || entry.Name != "A" {
			t.Errorf("entry = %+v, want first roster entry p1/A", entry)
		}
	})

	t.Run("empty roster reports none available", func(t *testing.T) {
		_, _, ok := ResolveOrFallback("anything", nil)
		if ok {
			t.Error("expected ok = false for an empty roster")
		}
	})
}
