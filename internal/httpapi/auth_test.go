package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mine-martin-12/web-POS/internal/domain"
	"github.com/mine-martin-12/web-POS/internal/store"
	"github.com/mine-martin-12/web-POS/internal/store/memory"
)

func newTestAuth(t *testing.T) (*AuthManager, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	return NewAuthManager("test-secret-key-0123456789abcdef", time.Hour, repo), repo
}

func TestLoginIssuesParsableTenantToken(t *testing.T) {
	auth, _ := newTestAuth(t)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{
		Email:    "admin@demo.local",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	tenant, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if tenant.BusinessID != memory.SeedBusinessID {
		t.Fatalf("expected business %s, got %s", memory.SeedBusinessID, tenant.BusinessID)
	}
	if tenant.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", tenant.Role)
	}
	if tenant.UserID == "" {
		t.Fatalf("expected user id in token")
	}
}

func TestLoginDoesNotRevealWhichFieldWasWrong(t *testing.T) {
	auth, _ := newTestAuth(t)

	_, missingErr := auth.Login(context.Background(), domain.LoginRequest{
		Email:    "nobody@demo.local",
		Password: "admin123",
	})
	_, wrongErr := auth.Login(context.Background(), domain.LoginRequest{
		Email:    "admin@demo.local",
		Password: "not-the-password",
	})
	if missingErr == nil || wrongErr == nil {
		t.Fatalf("expected both logins to fail")
	}
	if missingErr.Error() != wrongErr.Error() {
		t.Fatalf("error messages must match: %q vs %q", missingErr, wrongErr)
	}
}

func TestRegisterProvisionsAdminForNewBusiness(t *testing.T) {
	auth, repo := newTestAuth(t)

	resp, err := auth.Register(context.Background(), domain.RegisterRequest{
		Email:        "owner@duka.example",
		Password:     "correct-horse-battery",
		BusinessName: "Duka la Mtaa",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if resp.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", resp.Role)
	}
	if resp.BusinessID == "" || resp.BusinessID == memory.SeedBusinessID {
		t.Fatalf("expected a fresh business id, got %q", resp.BusinessID)
	}

	if _, err := repo.GetBusiness(context.Background(), resp.BusinessID); err != nil {
		t.Fatalf("business not persisted: %v", err)
	}
	user, err := repo.GetUserByEmail(context.Background(), "owner@duka.example")
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if user.Password == "correct-horse-battery" {
		t.Fatalf("password must be stored hashed")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	auth, _ := newTestAuth(t)

	_, err := auth.Register(context.Background(), domain.RegisterRequest{
		Email:        "admin@demo.local",
		Password:     "correct-horse-battery",
		BusinessName: "Shadow Shop",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for duplicate email, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	cases := []domain.RegisterRequest{
		{Email: "not-an-email", Password: "longenough", BusinessName: "Duka"},
		{Email: "ok@duka.example", Password: "short", BusinessName: "Duka"},
		{Email: "ok@duka.example", Password: "longenough", BusinessName: "  "},
	}
	for _, req := range cases {
		if _, err := auth.Register(ctx, req); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("request %+v: expected ErrValidation, got %v", req, err)
		}
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth, _ := newTestAuth(t)

	if _, err := auth.ParseToken("not.a.token"); err == nil {
		t.Fatalf("expected parse failure for garbage token")
	}
}
