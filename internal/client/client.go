// Package client holds the registry of OAuth clients allowed to use the
// authorization endpoints. Clients are configured statically and loaded
// at startup.
package client

import (
	"crypto/subtle"
	"slices"

	"github.com/openkcm/identity-provider/internal/config"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

// Client is a registered OAuth client.
type Client struct {
	ID           string
	Secret       string
	RedirectURIs []string
}

// HasRedirectURI reports whether uri exactly matches one of the
// registered redirect URIs. No normalization is applied.
func (c Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// Registry resolves and authenticates registered clients.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(cfgClients []config.Client) *Registry {
	clients := make(map[string]Client, len(cfgClients))
	for _, c := range cfgClients {
		clients[c.ID] = Client{
			ID:           c.ID,
			Secret:       c.Secret,
			RedirectURIs: slices.Clone(c.RedirectURIs),
		}
	}

	return &Registry{clients: clients}
}

// FindByID returns the client registered under id, or
// serviceerr.ErrNotFound when no such client exists.
func (r *Registry) FindByID(id string) (Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return Client{}, serviceerr.ErrNotFound
	}

	return c, nil
}

// Authenticate verifies the client credentials. It returns
// serviceerr.ErrUnauthorized for an unknown client or a wrong secret,
// without distinguishing the two.
func (r *Registry) Authenticate(id, secret string) (Client, error) {
	c, ok := r.clients[id]
	if !ok {
		// Compare against a dummy value so unknown IDs take the same
		// time as known ones.
		subtle.ConstantTimeCompare([]byte(secret), []byte(secret))
		return Client{}, serviceerr.ErrUnauthorized
	}

	if subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) != 1 {
		return Client{}, serviceerr.ErrUnauthorized
	}

	return c, nil
}
