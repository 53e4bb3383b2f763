package oidc

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/openkcm/identity-provider/internal/config"
	"github.com/openkcm/identity-provider/internal/user"
)

// Engine validates authorization requests and issues one-time codes
// bound to the caller's resolved claims.
type Engine struct {
	validator *Validator
	codes     CodeRepository

	issuerURL string
	codeTTL   time.Duration
	tokenTTL  time.Duration
}

func NewEngine(validator *Validator, codes CodeRepository, cfg config.Issuer) *Engine {
	return &Engine{
		validator: validator,
		codes:     codes,
		issuerURL: cfg.URL,
		codeTTL:   cfg.CodeTTL,
		tokenTTL:  cfg.TokenTTL,
	}
}

// Authorize validates params against the registered clients, resolves
// the ID-token claims for the already-authenticated caller, persists a
// one-time code and returns the redirect target carrying code and
// state. Validation failures come back as *ValidationError.
func (e *Engine) Authorize(ctx context.Context, caller user.User, params AuthorizeParams) (string, error) {
	req, err := e.validator.Validate(params)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := IDTokenClaims{
		Issuer:   e.issuerURL,
		Subject:  caller.ID,
		Audience: req.Client.ID,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(e.tokenTTL).Unix(),
		Nonce:    req.Nonce,
	}
	ProjectClaims(&claims, req.Scopes, caller)

	code := AuthorizationCode{
		Code:          uuid.NewString(),
		Claims:        claims,
		Scopes:        req.Scopes,
		CodeChallenge: req.CodeChallenge,
		CreatedAt:     now,
		ExpiresAt:     now.Add(e.codeTTL),
	}
	if err := e.codes.StoreCode(ctx, code); err != nil {
		return "", fmt.Errorf("storing authorization code: %w", err)
	}

	redirect, err := url.Parse(req.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("parsing redirect uri: %w", err)
	}

	query := redirect.Query()
	query.Set("code", code.Code)
	query.Set("state", req.State)
	redirect.RawQuery = query.Encode()

	return redirect.String(), nil
}
