//go:build integration
// +build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/campuskit/prefect/id"
)

// setupPostgres starts a disposable PostgreSQL container and applies the
// migration DDL. Skips when Docker is unavailable.
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration test")
	}
	defer provider.Close()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("prefect_test"),
		tcpostgres.WithUsername("prefect"),
		tcpostgres.WithPassword("prefect_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		// Fresh context so cleanup survives a cancelled test context.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}

	for _, ddl := range []string{ddlModules, ddlGrants, ddlDecisionLogs} {
		if _, err := db.Exec(ddl); err != nil {
			t.Fatalf("apply DDL: %v", err)
		}
	}
	return db
}

func insertModule(t *testing.T, db *sql.DB, moduleID, tenantID, name string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO prefect_modules (id, tenant_id, name) VALUES ($1, $2, $3)`,
		moduleID, tenantID, name)
	if err != nil {
		t.Fatalf("insert module: %v", err)
	}
}

func insertGrant(db *sql.DB, grantID, tenantID, userID, roleID, moduleID, targetType, targetID, action, scope string) error {
	_, err := db.Exec(
		`INSERT INTO prefect_grants
		 (id, tenant_id, user_id, role_id, module_id, target_type, target_id, action, scope)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		grantID, tenantID, userID, roleID, moduleID, targetType, targetID, action, scope)
	return err
}

func TestSchemaGrantUniqueness(t *testing.T) {
	db := setupPostgres(t)
	modID := id.NewModuleID().String()
	insertModule(t, db, modID, "school-1", "assignment")

	err := insertGrant(db, id.NewGrantID().String(),
		"school-1", "user-1", "", modID, "class", "class-7", "read", "specific")
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Same tuple with a different primary key must hit the unique index.
	err = insertGrant(db, id.NewGrantID().String(),
		"school-1", "user-1", "", modID, "class", "class-7", "read", "specific")
	if pgErrCode(err) != pgUniqueViolation {
		t.Fatalf("expected unique violation, got %v", err)
	}

	// A different action is a different tuple.
	err = insertGrant(db, id.NewGrantID().String(),
		"school-1", "user-1", "", modID, "class", "class-7", "update", "specific")
	if err != nil {
		t.Fatalf("different action: %v", err)
	}
}

func TestSchemaUnscopedTargetCollides(t *testing.T) {
	db := setupPostgres(t)
	modID := id.NewModuleID().String()
	insertModule(t, db, modID, "school-1", "gradebook")

	// Unscoped targets store '' so two of them collide, unlike NULLs.
	err := insertGrant(db, id.NewGrantID().String(),
		"school-1", "user-1", "", modID, "class", "", "read", "all")
	if err != nil {
		t.Fatalf("first unscoped insert: %v", err)
	}
	err = insertGrant(db, id.NewGrantID().String(),
		"school-1", "user-1", "", modID, "class", "", "read", "all")
	if pgErrCode(err) != pgUniqueViolation {
		t.Fatalf("expected unique violation for unscoped duplicate, got %v", err)
	}
}

func TestSchemaModuleDeleteRestricted(t *testing.T) {
	db := setupPostgres(t)
	modID := id.NewModuleID().String()
	insertModule(t, db, modID, "school-1", "attendance")

	err := insertGrant(db, id.NewGrantID().String(),
		"school-1", "user-1", "", modID, "school", "", "read", "all")
	if err != nil {
		t.Fatalf("insert grant: %v", err)
	}

	_, err = db.Exec(`DELETE FROM prefect_modules WHERE id = $1`, modID)
	if pgErrCode(err) != pgFKViolation {
		t.Fatalf("expected FK violation, got %v", err)
	}

	if _, err := db.Exec(`DELETE FROM prefect_grants WHERE module_id = $1`, modID); err != nil {
		t.Fatalf("delete grants: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM prefect_modules WHERE id = $1`, modID); err != nil {
		t.Fatalf("delete module after grants removed: %v", err)
	}
}
