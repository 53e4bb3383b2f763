package oidc

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/openkcm/identity-provider/internal/client"
	"github.com/openkcm/identity-provider/internal/pkce"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

// ValidationKind tags the first authorization-request check that
// failed. Each failing rule has its own kind so callers can surface a
// field-specific message.
type ValidationKind string

const (
	KindScopeInvalid               ValidationKind = "scope_invalid"
	KindScopeMissingOpenID         ValidationKind = "scope_missing_openid"
	KindResponseTypeInvalid        ValidationKind = "response_type_invalid"
	KindClientIDMissing            ValidationKind = "client_id_missing"
	KindClientNotFound             ValidationKind = "client_not_found"
	KindRedirectURIMissing         ValidationKind = "redirect_uri_missing"
	KindRedirectURIMismatch        ValidationKind = "redirect_uri_mismatch"
	KindStateMissing               ValidationKind = "state_missing"
	KindUnsupportedChallengeMethod ValidationKind = "unsupported_challenge_method"
	KindInvalidChallengeFormat     ValidationKind = "invalid_challenge_format"
)

// ValidationError reports a failed authorization-request check as a
// value, never a panic.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}

// AuthorizeParams carries the raw query parameters of an authorization
// request, before validation.
type AuthorizeParams struct {
	Scope               string
	ResponseType        string
	ClientID            string
	RedirectURI         string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeRequest is a validated authorization request.
type AuthorizeRequest struct {
	Scopes        []string
	Client        client.Client
	RedirectURI   string
	State         string
	Nonce         string
	CodeChallenge string
}

type Validator struct {
	clients *client.Registry
}

func NewValidator(clients *client.Registry) *Validator {
	return &Validator{clients: clients}
}

var recognizedScopes = []string{ScopeOpenID, ScopeProfile, ScopeEmail, ScopePicture}

// Validate runs the authorization-request checks in a fixed order and
// returns a ValidationError for the first one that fails.
func (v *Validator) Validate(params AuthorizeParams) (AuthorizeRequest, error) {
	scopes := strings.Fields(params.Scope)
	if len(scopes) == 0 {
		return AuthorizeRequest{}, &ValidationError{Kind: KindScopeInvalid, Detail: "scope is required"}
	}
	for _, scope := range scopes {
		if !slices.Contains(recognizedScopes, scope) {
			return AuthorizeRequest{}, &ValidationError{
				Kind:   KindScopeInvalid,
				Detail: fmt.Sprintf("unknown scope %q", scope),
			}
		}
	}
	if !slices.Contains(scopes, ScopeOpenID) {
		return AuthorizeRequest{}, &ValidationError{Kind: KindScopeMissingOpenID, Detail: "scope must include openid"}
	}

	if params.ResponseType != "code" {
		return AuthorizeRequest{}, &ValidationError{Kind: KindResponseTypeInvalid, Detail: "response_type must be code"}
	}

	if params.ClientID == "" {
		return AuthorizeRequest{}, &ValidationError{Kind: KindClientIDMissing, Detail: "client_id is required"}
	}
	c, err := v.clients.FindByID(params.ClientID)
	if err != nil {
		if !errors.Is(err, serviceerr.ErrNotFound) {
			return AuthorizeRequest{}, fmt.Errorf("resolving client: %w", err)
		}

		return AuthorizeRequest{}, &ValidationError{
			Kind:   KindClientNotFound,
			Detail: fmt.Sprintf("unknown client %q", params.ClientID),
		}
	}

	if params.RedirectURI == "" {
		return AuthorizeRequest{}, &ValidationError{Kind: KindRedirectURIMissing, Detail: "redirect_uri is required"}
	}
	// Exact string match against the registered set, no normalization.
	parsed, err := url.Parse(params.RedirectURI)
	if err != nil || !parsed.IsAbs() || !c.HasRedirectURI(params.RedirectURI) {
		return AuthorizeRequest{}, &ValidationError{Kind: KindRedirectURIMismatch, Detail: "redirect_uri is not registered for this client"}
	}

	if params.State == "" {
		return AuthorizeRequest{}, &ValidationError{Kind: KindStateMissing, Detail: "state is required"}
	}

	if params.CodeChallenge != "" {
		if params.CodeChallengeMethod != "" && params.CodeChallengeMethod != pkce.MethodS256 {
			return AuthorizeRequest{}, &ValidationError{
				Kind:   KindUnsupportedChallengeMethod,
				Detail: fmt.Sprintf("unsupported code_challenge_method %q", params.CodeChallengeMethod),
			}
		}
		if !pkce.IsValidCodeChallenge(params.CodeChallenge) {
			return AuthorizeRequest{}, &ValidationError{Kind: KindInvalidChallengeFormat, Detail: "code_challenge is malformed"}
		}
	}

	return AuthorizeRequest{
		Scopes:        scopes,
		Client:        c,
		RedirectURI:   params.RedirectURI,
		State:         params.State,
		Nonce:         params.Nonce,
		CodeChallenge: params.CodeChallenge,
	}, nil
}
