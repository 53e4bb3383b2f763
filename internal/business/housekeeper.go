package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/identity-provider/internal/config"
	"github.com/openkcm/identity-provider/internal/serviceerr"
	"github.com/openkcm/identity-provider/internal/user"
	"github.com/openkcm/identity-provider/internal/user/usersql"
	"github.com/openkcm/identity-provider/internal/webauthn"
	webauthnvalkey "github.com/openkcm/identity-provider/internal/webauthn/valkey"
)

// HousekeeperMain starts the house keeping jobs
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return fmt.Errorf("making dsn from config: %w", err)
	}

	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	valkeyClient, err := newValkeyClient(cfg.ValKey)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	credentials := webauthnvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix)
	users := usersql.NewRepository(db)

	// Start the housekeeper loop
	c := time.Tick(cfg.Housekeeper.TriggerInterval)
	for {
		if err := pruneCredentials(ctx, credentials, users); err != nil {
			slogctx.Error(ctx, "Error during passkey housekeeping", "error", err)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

// pruneCredentials removes passkey records whose primary entry or owning
// account is gone. Codes, tokens and challenges expire on their own, so
// only the unexpiring credential entries need sweeping.
func pruneCredentials(ctx context.Context, credentials webauthn.Repository, users user.Repository) error {
	all, err := credentials.ListAllCredentials(ctx)
	if err != nil {
		return fmt.Errorf("listing credentials: %w", err)
	}

	var pruned int
	for _, cred := range all {
		stale, err := isStale(ctx, credentials, users, cred)
		if err != nil {
			slogctx.Error(ctx, "Checking credential", "credentialId", cred.CredentialID, "error", err)
			continue
		}
		if !stale {
			continue
		}

		if err := credentials.DeleteCredential(ctx, cred); err != nil {
			slogctx.Error(ctx, "Pruning credential", "credentialId", cred.CredentialID, "error", err)
			continue
		}
		pruned++
	}

	slogctx.Info(ctx, "Passkey housekeeping finished", "checked", len(all), "pruned", pruned)
	return nil
}

func isStale(ctx context.Context, credentials webauthn.Repository, users user.Repository, cred webauthn.RegisteredCredential) (bool, error) {
	if _, err := credentials.LoadCredential(ctx, cred.CredentialID); err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	if _, err := users.FindByEmail(ctx, cred.Identity); err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	return false, nil
}
