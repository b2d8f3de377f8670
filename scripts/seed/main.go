// Command seed provisions the permission catalog, the role baselines, and an
// initial super-admin account. Safe to re-run; every statement upserts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/munigestion/munigestion/internal/app"
	"github.com/munigestion/munigestion/internal/authz"
	"github.com/munigestion/munigestion/internal/platform/db"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Default().Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := authz.NewRepository(pool)
	resolver := authz.NewResolver(repo, logger)

	catalog := authz.DefaultCatalog()
	if err := resolver.EnsurePermissions(ctx, catalog); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info("permission catalog seeded", slog.Int("count", len(catalog)))

	active, err := resolver.Catalog(ctx)
	if err != nil {
		return err
	}
	idByName := make(map[string]int64, len(active))
	for _, p := range active {
		idByName[p.Name] = p.ID
	}

	for role, names := range authz.DefaultRolePermissions() {
		ids := make([]int64, 0, len(names))
		for _, name := range names {
			id, ok := idByName[name]
			if !ok {
				return fmt.Errorf("seed role %s: permission %q not in catalog", role, name)
			}
			ids = append(ids, id)
		}
		if err := resolver.SyncRolePermissions(ctx, role, ids); err != nil {
			return fmt.Errorf("seed role %s: %w", role, err)
		}
		logger.Info("role baseline synced", slog.String("role", string(role)), slog.Int("count", len(ids)))
	}

	return seedAdmin(ctx, pool, logger)
}

// seedAdmin creates the bootstrap super-admin account when SEED_ADMIN_EMAIL
// and SEED_ADMIN_PASSWORD are set. An existing account with the same email is
// left untouched.
func seedAdmin(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		logger.Info("admin seed skipped, SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD unset")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	tag, err := pool.Exec(ctx,
		`INSERT INTO users (email, password_hash, name, role, is_active)
		 VALUES ($1, $2, 'Administrador General', $3, TRUE)
		 ON CONFLICT (email) DO NOTHING`,
		email, string(hash), string(authz.RoleSuperAdmin))
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logger.Info("admin account already present", slog.String("email", email))
		return nil
	}
	logger.Info("admin account created", slog.String("email", email))
	return nil
}
