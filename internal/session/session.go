// Package session mints and verifies the session credential both login
// paths produce: a signed claim set carried in a cookie.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/identity-provider/internal/config"
	"github.com/openkcm/identity-provider/internal/serviceerr"
	"github.com/openkcm/identity-provider/internal/user"
)

// Claims is the session token payload. The profile fields ride along so
// authorization requests need no extra lookup.
type Claims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
}

// User rebuilds the profile view carried in the claims.
func (c Claims) User() user.User {
	return user.User{
		ID:          c.Subject,
		Email:       c.Email,
		DisplayName: c.Name,
		AvatarURL:   c.Picture,
	}
}

// Issuer signs and verifies session tokens with a shared HS256 secret,
// separate from the ID-token key material.
type Issuer struct {
	secret   []byte
	duration time.Duration
	cookie   config.CookieTemplate
}

func NewIssuer(cfg config.Session) (*Issuer, error) {
	secret, err := commoncfg.LoadValueFromSourceRef(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("loading session secret: %w", err)
	}

	return &Issuer{
		secret:   secret,
		duration: cfg.Duration,
		cookie:   cfg.CookieTemplate,
	}, nil
}

func (i *Issuer) Issue(u user.User) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.HS256,
		Key:       i.secret,
	}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", fmt.Errorf("creating session signer: %w", err)
	}

	now := time.Now()
	claims := Claims{
		Subject:  u.ID,
		Email:    u.Email,
		Name:     u.DisplayName,
		Picture:  u.AvatarURL,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(i.duration).Unix(),
	}

	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}

	return raw, nil
}

// Verify parses and checks a session token, failing closed with
// serviceerr.ErrUnauthorized on any defect including expiry.
func (i *Issuer) Verify(token string) (Claims, error) {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Claims{}, serviceerr.ErrUnauthorized
	}

	var claims Claims
	if err := parsed.Claims(i.secret, &claims); err != nil {
		return Claims{}, serviceerr.ErrUnauthorized
	}

	if time.Now().Unix() >= claims.Expiry {
		return Claims{}, serviceerr.ErrUnauthorized
	}

	return claims, nil
}

// Cookie wraps a session token in the configured cookie template.
func (i *Issuer) Cookie(token string) *http.Cookie {
	return i.cookie.ToCookie(token)
}

// CookieName exposes the configured cookie name for request parsing.
func (i *Issuer) CookieName() string {
	return i.cookie.Name
}
