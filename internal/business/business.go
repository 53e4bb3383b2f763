package business

import (
	"context"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/identity-provider/internal/business/server"
	"github.com/openkcm/identity-provider/internal/challenge"
	challengevalkey "github.com/openkcm/identity-provider/internal/challenge/valkey"
	"github.com/openkcm/identity-provider/internal/client"
	"github.com/openkcm/identity-provider/internal/config"
	"github.com/openkcm/identity-provider/internal/keystore"
	"github.com/openkcm/identity-provider/internal/oidc"
	oidcvalkey "github.com/openkcm/identity-provider/internal/oidc/valkey"
	"github.com/openkcm/identity-provider/internal/session"
	"github.com/openkcm/identity-provider/internal/user"
	"github.com/openkcm/identity-provider/internal/user/usersql"
	"github.com/openkcm/identity-provider/internal/webauthn"
	webauthnvalkey "github.com/openkcm/identity-provider/internal/webauthn/valkey"
)

// Main starts the public HTTP API server.
func Main(ctx context.Context, cfg *config.Config) error {
	components, closeFn, err := initComponents(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the provider components: %w", err)
	}

	defer closeFn()

	return server.StartHTTPServer(ctx, cfg, components)
}

func initComponents(ctx context.Context, cfg *config.Config) (_ server.Components, closeFn func(), _ error) {
	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return server.Components{}, nil, fmt.Errorf("making dsn from config: %w", err)
	}

	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return server.Components{}, nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	valkeyClient, err := newValkeyClient(cfg.ValKey)
	if err != nil {
		return server.Components{}, nil, err
	}

	keys, err := keystore.New(cfg.Issuer)
	if err != nil {
		return server.Components{}, nil, fmt.Errorf("loading issuer keys: %w", err)
	}

	sessions, err := session.NewIssuer(cfg.Session)
	if err != nil {
		return server.Components{}, nil, fmt.Errorf("creating session issuer: %w", err)
	}

	registry := client.NewRegistry(cfg.Clients)
	codeRepo := oidcvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix)
	challengeRepo := challengevalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix)
	credentialRepo := webauthnvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix)
	challenges := challenge.NewStore(challengeRepo, cfg.RelyingParty.ChallengeTTL)

	return server.Components{
		Engine:        oidc.NewEngine(oidc.NewValidator(registry), codeRepo, cfg.Issuer),
		Issuer:        oidc.NewIssuer(registry, keys, codeRepo, codeRepo, cfg.Issuer.TokenTTL),
		JWKS:          keys.JWKS(),
		ServesJWKS:    keys.Algorithm() == jose.RS256,
		Users:         user.NewService(usersql.NewRepository(db)),
		Sessions:      sessions,
		Registrar:     webauthn.NewRegistrar(challenges, credentialRepo, cfg.RelyingParty),
		Authenticator: webauthn.NewAuthenticator(challenges, credentialRepo, cfg.RelyingParty),
	}, valkeyClient.Close, nil
}

func newValkeyClient(cfg config.ValKey) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyClient, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	})
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}
