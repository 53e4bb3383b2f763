package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/identity-provider/internal/config"
	"github.com/openkcm/identity-provider/internal/serviceerr"
)

func newTestRegistry() *Registry {
	return NewRegistry([]config.Client{
		{
			ID:           "c1",
			Secret:       "s1",
			RedirectURIs: []string{"https://rp.example/callback"},
		}, {
			ID:           "c2",
			Secret:       "s2",
			RedirectURIs: []string{"https://rp.example/cb", "https://rp.example/cb2"},
		},
	})
}

func TestRegistry_FindByID(t *testing.T) {
	registry := newTestRegistry()

	t.Run("known client", func(t *testing.T) {
		c, err := registry.FindByID("c1")
		require.NoError(t, err)
		assert.Equal(t, "c1", c.ID)
		assert.Equal(t, []string{"https://rp.example/callback"}, c.RedirectURIs)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := registry.FindByID("nope")
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})
}

func TestRegistry_Authenticate(t *testing.T) {
	registry := newTestRegistry()

	tests := []struct {
		name    string
		id      string
		secret  string
		wantErr error
	}{
		{
			name:   "valid credentials",
			id:     "c1",
			secret: "s1",
		}, {
			name:    "wrong secret",
			id:      "c1",
			secret:  "s2",
			wantErr: serviceerr.ErrUnauthorized,
		}, {
			name:    "unknown client",
			id:      "ghost",
			secret:  "s1",
			wantErr: serviceerr.ErrUnauthorized,
		}, {
			name:    "empty secret",
			id:      "c1",
			secret:  "",
			wantErr: serviceerr.ErrUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := registry.Authenticate(tt.id, tt.secret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.id, c.ID)
		})
	}
}

func TestClient_HasRedirectURI(t *testing.T) {
	registry := newTestRegistry()
	c, err := registry.FindByID("c2")
	require.NoError(t, err)

	assert.True(t, c.HasRedirectURI("https://rp.example/cb"))
	assert.True(t, c.HasRedirectURI("https://rp.example/cb2"))
	assert.False(t, c.HasRedirectURI("https://rp.example/cb/"))
	assert.False(t, c.HasRedirectURI("https://rp.example/CB"))
	assert.False(t, c.HasRedirectURI(""))
}
