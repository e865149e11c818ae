// Package auth issues and checks staff session tokens. Clients never log in;
// only barbers carry an Identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

const DefaultTokenTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Identity struct {
	Subject string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

func (i Identity) IsStaff() bool {
	return i.Role == domain.RoleBarber
}

type staffFinder interface {
	FindStaffByEmail(ctx context.Context, email string) (domain.StaffUser, error)
}

type Authenticator struct {
	staff  staffFinder
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Authenticator)

func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

func NewAuthenticator(staff staffFinder, secret string, ttl time.Duration, opts ...Option) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	a := &Authenticator{staff: staff, secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Login checks a staff password and returns a signed token for it. Unknown
// emails and wrong passwords are indistinguishable.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", Identity{}, domain.NewValidationError("email and password are required")
	}

	user, err := a.staff.FindStaffByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", Identity{}, ErrInvalidCredentials
		}
		return "", Identity{}, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return "", Identity{}, ErrInvalidCredentials
	}

	id := Identity{Subject: user.ID.String(), Email: user.Email, Name: user.Name, Role: user.Role}
	token, err := a.Issue(id)
	if err != nil {
		return "", Identity{}, err
	}
	return token, id, nil
}

func (a *Authenticator) Issue(id Identity) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"sub":   id.Subject,
		"email": id.Email,
		"name":  id.Name,
		"role":  id.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(a.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates a token and returns the identity it carries.
func (a *Authenticator) Parse(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrInvalidToken
	}

	// Expiry is checked against the injected clock below.
	parser := jwt.Parser{SkipClaimsValidation: true}
	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(a.now().Unix(), true) {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{
		Subject: claimString(claims, "sub"),
		Email:   claimString(claims, "email"),
		Name:    claimString(claims, "name"),
		Role:    claimString(claims, "role"),
	}
	if id.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}

func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}
