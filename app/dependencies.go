package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/serverless-todos/auth"
	"github.com/upb/serverless-todos/authorizer"
	"github.com/upb/serverless-todos/config"
	"github.com/upb/serverless-todos/handlers"
	"github.com/upb/serverless-todos/internal/observability"
	"github.com/upb/serverless-todos/middleware"
	"github.com/upb/serverless-todos/repositories"
	"github.com/upb/serverless-todos/repositories/postgres"
	"github.com/upb/serverless-todos/services/todos"
)

// ErrDatabaseNotInitialized is reported by the readiness check when no database is wired
var ErrDatabaseNotInitialized = errors.New("database not initialized")

// Dependencies holds all application dependencies.
// This is the central wiring point for the Lambda binaries and the local server.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	DB      *postgres.DB

	// Repository Factory
	RepoFactory  *postgres.RepositoryFactory
	Repositories *repositories.Repositories

	// Auth
	KeySource  auth.KeySource
	Verifier   *auth.Verifier
	Authorizer *authorizer.Authorizer
	Identity   *auth.IdentityExtractor

	// Todos
	TodoService  *todos.Service
	TodosHandler *handlers.TodosHandler

	// HTTP
	HealthHandler  *handlers.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// NewAuthorizerDependencies wires what the authorizer Lambda needs: a key
// source, a verifier and the decision maker. No database is opened.
func NewAuthorizerDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewMetrics()
	}

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	logger.Info("authorizer dependencies initialized",
		zap.Bool("jwks", cfg.Auth.UsesJWKS()),
		zap.String("policy_scope", cfg.Auth.PolicyScope))
	return deps, nil
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps, err := NewAuthorizerDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize PostgreSQL
	if err := deps.initDatabase(ctx, cfg); err != nil {
		deps.closeAuth()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initTodos()
	deps.initHTTP()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initAuth builds the key source from the configured trust anchor
func (d *Dependencies) initAuth(cfg *config.Config) error {
	if cfg.Auth.UsesJWKS() {
		keys, err := auth.NewJWKSKeySource(auth.JWKSConfig{
			URL:             cfg.Auth.JWKSURL,
			RefreshInterval: cfg.Auth.JWKSRefreshInterval,
		}, d.Logger)
		if err != nil {
			return err
		}
		d.KeySource = keys
	} else {
		keys, err := auth.NewStaticKeySource([]byte(cfg.Auth.Certificate))
		if err != nil {
			return err
		}
		d.KeySource = keys
	}

	d.Verifier = auth.NewVerifier(d.KeySource)
	d.Authorizer = authorizer.New(d.Verifier, d.Logger,
		authorizer.WithPolicyScope(cfg.Auth.PolicyScope),
		authorizer.WithMetrics(d.Metrics))
	d.Identity = auth.NewIdentityExtractor(d.Verifier)
	return nil
}

// initDatabase opens the PostgreSQL pool and makes sure the todos table exists
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Repositories = factory.NewRepositories()
	d.Logger.Info("repositories initialized")
	return nil
}

func (d *Dependencies) initTodos() {
	d.TodoService = todos.NewService(d.Repositories.Todos, d.Logger)
	d.TodosHandler = handlers.NewTodosHandler(d.TodoService, d.Identity, d.Metrics, d.Logger)
}

func (d *Dependencies) initHTTP() {
	d.HealthHandler = handlers.NewHealthHandler(d.Logger, d.HealthChecks()...)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Authorizer, d.Logger)
}

// HealthChecks returns the readiness checks for the wired infrastructure
func (d *Dependencies) HealthChecks() []handlers.HealthCheck {
	return []handlers.HealthCheck{
		{
			Name: "database",
			Check: func(ctx context.Context) error {
				if d.DB == nil {
					return ErrDatabaseNotInitialized
				}
				return d.DB.HealthCheck(ctx)
			},
		},
	}
}

func (d *Dependencies) closeAuth() {
	if keys, ok := d.KeySource.(*auth.JWKSKeySource); ok {
		keys.Close()
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	d.closeAuth()

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}

	return nil
}
