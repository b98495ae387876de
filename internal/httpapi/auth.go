package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mine-martin-12/web-POS/internal/domain"
	"github.com/mine-martin-12/web-POS/internal/store"
)

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	repo     store.Repository
}

type tenantClaims struct {
	jwtlib.RegisteredClaims
	BusinessID string `json:"business_id"`
	Role       string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, repo store.Repository) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		repo:     repo,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		// Same message whether the account is missing or the password is
		// wrong, so login cannot be used to probe for registered emails.
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if !user.Active {
		return domain.LoginResponse{}, errors.New("account is inactive")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		BusinessID:  user.BusinessID,
		Role:        user.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// Register provisions a new business with its first admin account. The
// email-uniqueness race between the precheck and CreateUser is closed by the
// unique constraint in the store.
func (a *AuthManager) Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.RegisterResponse{}, fmt.Errorf("%w: invalid email address", store.ErrValidation)
	}
	if len(req.Password) < 8 {
		return domain.RegisterResponse{}, fmt.Errorf("%w: password must be at least 8 characters", store.ErrValidation)
	}
	businessName := strings.TrimSpace(req.BusinessName)
	if businessName == "" {
		return domain.RegisterResponse{}, fmt.Errorf("%w: business name is required", store.ErrValidation)
	}

	if _, err := a.repo.GetUserByEmail(ctx, email); err == nil {
		return domain.RegisterResponse{}, fmt.Errorf("%w: email already registered", store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.RegisterResponse{}, err
	}

	business, err := a.repo.CreateBusiness(ctx, domain.Business{Name: businessName})
	if err != nil {
		return domain.RegisterResponse{}, err
	}

	user := domain.UserAccount{
		Email:      email,
		Password:   string(hash),
		BusinessID: business.ID,
		Role:       domain.RoleAdmin,
		Active:     true,
	}
	if err := a.repo.CreateUser(ctx, user); err != nil {
		return domain.RegisterResponse{}, err
	}

	return domain.RegisterResponse{
		BusinessID: business.ID,
		Email:      email,
		Role:       domain.RoleAdmin,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.TenantContext, error) {
	claims := &tenantClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.TenantContext{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" || claims.BusinessID == "" {
		return domain.TenantContext{}, errors.New("invalid token claims")
	}
	return domain.TenantContext{
		UserID:     sub,
		BusinessID: claims.BusinessID,
		Role:       claims.Role,
	}, nil
}

func (a *AuthManager) sign(user *domain.UserAccount, expiresAt time.Time) (string, error) {
	claims := tenantClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "web-pos",
		},
		BusinessID: user.BusinessID,
		Role:       user.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
