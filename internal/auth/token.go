package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "tasktrack"
	defaultTokenTTL = time.Hour
)

// Claims are the JWT claims carried by an access token.
type Claims struct {
	Username       string `json:"username"`
	Role           Role   `json:"role"`
	OrganizationID *int64 `json:"org,omitempty"`
	jwt.RegisteredClaims
}

// ActorResolver loads the current state of a token subject. Implementations
// return an error wrapping ErrUnknownSubject when the subject no longer exists.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID int64) (Actor, error)
}

// Token is a signed access token and its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	now      func() time.Time
	resolver ActorResolver
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) Option {
	return func(a *Authenticator) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			a.issuer = issuer
		}
	}
}

// WithTTL configures access token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(a *Authenticator) {
		if fn != nil {
			a.now = fn
		}
	}
}

// NewAuthenticator builds an Authenticator from an explicit secret. The secret
// is never read from the environment here.
func NewAuthenticator(secret string, resolver ActorResolver, opts ...Option) (*Authenticator, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if resolver == nil {
		return nil, errors.New("auth: actor resolver is required")
	}
	a := &Authenticator{
		secret:   []byte(secret),
		issuer:   defaultIssuer,
		ttl:      defaultTokenTTL,
		now:      time.Now,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Issue signs an access token for actor.
func (a *Authenticator) Issue(actor Actor) (Token, error) {
	if actor.ID <= 0 {
		return Token{}, errors.New("auth: actor id is required")
	}
	now := a.now().UTC()
	exp := now.Add(a.ttl)
	claims := Claims{
		Username:       actor.Username,
		Role:           ParseRole(string(actor.Role)),
		OrganizationID: actor.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   strconv.FormatInt(actor.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse verifies the token signature, issuer and expiry and returns its claims.
func (a *Authenticator) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(a.now),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate verifies token and re-reads its subject, so role and organization
// always reflect the stored record rather than the claims.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Actor, error) {
	claims, err := a.Parse(token)
	if err != nil {
		return Actor{}, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Actor{}, ErrInvalidToken
	}
	actor, err := a.resolver.ResolveActor(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUnknownSubject) {
			return Actor{}, ErrInvalidToken
		}
		return Actor{}, err
	}
	actor.Role = ParseRole(string(actor.Role))
	return actor, nil
}
