package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/target/identity-session/config"
	"github.com/target/identity-session/internal/adapters/authapi"
	"github.com/target/identity-session/internal/adapters/authroles"
	"github.com/target/identity-session/internal/adapters/cookies"
	"github.com/target/identity-session/internal/adapters/filestore"
	"github.com/target/identity-session/internal/adapters/httpclient"
	"github.com/target/identity-session/internal/adapters/oidc"
	redisadapter "github.com/target/identity-session/internal/adapters/redis"
	"github.com/target/identity-session/internal/data"
	"github.com/target/identity-session/internal/domain/events"
	"github.com/target/identity-session/internal/ports"
	"github.com/target/identity-session/internal/service"
)

// Infrastructure holds the connections the configured storage mode needs.
type Infrastructure struct {
	DB          *sql.DB
	RedisClient redis.UniversalClient
}

// ConnectInfrastructure opens only what cfg.Storage.Mode requires.
func ConnectInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	infra := &Infrastructure{}

	switch cfg.Storage.Mode {
	case config.StorageModePostgres:
		db, err := ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		infra.DB = db
		if cfg.Storage.RunMigrationsOnStart {
			if err := RunMigrations(ctx, db, logger); err != nil {
				return nil, errors.Join(err, infra.Close())
			}
		}
	case config.StorageModeRedis:
		client, err := ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		infra.RedisClient = client
	}
	return infra, nil
}

// Close releases every open connection.
func (i *Infrastructure) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if i.RedisClient != nil {
		if err := i.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// SessionConfig contains configuration for the session runtime.
type SessionConfig struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	// Bus is the process-wide signal bus. A new one is created when nil.
	Bus    *events.Bus
	Logger *slog.Logger
	// Gateway overrides the configured remote authority (tests).
	Gateway ports.SessionGateway
}

// SessionRuntime is everything a process needs to hold a session.
type SessionRuntime struct {
	Session   *service.SessionService
	Listener  *service.LogoutListener
	Bus       *events.Bus
	Client    *http.Client
	Transport *httpclient.BearerTransport
	Cookies   *cookies.JarStore
	Storage   ports.SnapshotStore
}

// BuildSession wires cookies, the shared client, storage, role mapping, the gateway and the
// logout listener around one SessionService. The listener is built but not started.
func BuildSession(ctx context.Context, cfg SessionConfig) (*SessionRuntime, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	auth := cfg.Config.Auth

	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus()
	}

	jar, err := cookies.NewJarStore(cookies.JarOptions{URL: auth.CookieURL, FilePath: auth.CookieFile, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("build cookie store: %w", err)
	}

	transport := httpclient.NewBearerTransport(httpclient.TransportOptions{
		Publisher: bus,
		SkipPaths: []string{authapi.AuthPathPrefix},
		Logger:    logger,
	})
	client := httpclient.NewClient(httpclient.ClientOptions{
		Transport: transport,
		Jar:       jar.Jar(),
		Timeout:   auth.HTTPTimeout,
	})

	storage, err := buildSnapshotStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("build snapshot store: %w", err)
	}

	roles, err := authroles.NewClaimRoleMapper(authroles.ClaimRoleMapperOptions{
		Paths:  auth.RoleClaimPaths,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build role mapper: %w", err)
	}

	gateway := cfg.Gateway
	if gateway == nil {
		gateway, err = buildGateway(ctx, auth, client, logger)
		if err != nil {
			return nil, fmt.Errorf("build gateway: %w", err)
		}
	}

	session, err := service.NewSessionService(service.SessionServiceOptions{
		Gateway: gateway,
		Storage: storage,
		Cookies: jar,
		Binder:  transport,
		Roles:   roles,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	listener, err := service.NewLogoutListener(service.LogoutListenerOptions{
		Bus:     bus,
		Session: session,
		Timeout: auth.SignOutTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("session runtime built",
		"gateway", auth.Gateway,
		"storage", cfg.Config.Storage.Mode,
		"namespace", auth.Namespace,
	)

	return &SessionRuntime{
		Session:   session,
		Listener:  listener,
		Bus:       bus,
		Client:    client,
		Transport: transport,
		Cookies:   jar,
		Storage:   storage,
	}, nil
}

//nolint:ireturn // the storage backend is chosen at runtime.
func buildSnapshotStore(cfg SessionConfig) (ports.SnapshotStore, error) {
	storage := cfg.Config.Storage
	namespace := cfg.Config.Auth.Namespace

	switch storage.Mode {
	case config.StorageModeNone:
		return nil, nil
	case config.StorageModeRedis:
		if cfg.RedisClient == nil {
			return nil, errors.New("redis storage selected but no redis client configured")
		}
		return redisadapter.NewSnapshotStore(cfg.RedisClient, redisadapter.SnapshotStoreOptions{
			Namespace: namespace,
			TTL:       storage.TTL,
		})
	case config.StorageModePostgres:
		if cfg.DB == nil {
			return nil, errors.New("postgres storage selected but no database configured")
		}
		return data.NewSnapshotRepo(cfg.DB, namespace)
	default:
		dir := storage.Dir
		if dir == "" {
			var err error
			if dir, err = filestore.DefaultDir(); err != nil {
				return nil, err
			}
		}
		return filestore.NewSnapshotStore(dir, namespace)
	}
}

//nolint:ireturn // the gateway implementation is chosen at runtime.
func buildGateway(
	ctx context.Context,
	auth config.AuthConfig,
	client *http.Client,
	logger *slog.Logger,
) (ports.SessionGateway, error) {
	switch auth.Gateway {
	case config.GatewayModeOIDC:
		oidcCfg := auth.OIDC
		// Token endpoint calls carry client credentials, never the session's bearer credential.
		return oidc.NewGateway(ctx, oidc.GatewayConfig{
			ClientID:         oidcCfg.ClientID,
			ClientSecret:     oidcCfg.ClientSecret,
			Scope:            oidcCfg.Scope,
			DiscoveryURL:     oidcCfg.DiscoveryURL,
			RevocationURL:    oidcCfg.RevocationURL,
			CredentialSource: oidc.CredentialSource(oidcCfg.CredentialSource),
			HTTPClient:       &http.Client{Timeout: auth.HTTPTimeout},
			Logger:           logger,
		})
	default:
		return authapi.New(authapi.Options{BaseURL: auth.APIBaseURL, Client: client, Logger: logger})
	}
}
