package oidc

import "context"

// CodeRepository stores authorization codes. Implementations must bound
// entries by ExpiresAt. DeleteCode returns serviceerr.ErrNotFound when
// the code was already gone, so exactly one of several concurrent
// exchanges can claim it.
type CodeRepository interface {
	StoreCode(ctx context.Context, code AuthorizationCode) error
	LoadCode(ctx context.Context, code string) (AuthorizationCode, error)
	DeleteCode(ctx context.Context, code string) error
}

// TokenRepository stores opaque access tokens so resource endpoints can
// resolve them back to a subject.
type TokenRepository interface {
	StoreToken(ctx context.Context, token AccessToken) error
	LoadToken(ctx context.Context, token string) (AccessToken, error)
}
