package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Prefect store (SQLite).
var Migrations = migrate.NewGroup("prefect")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_modules",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS prefect_modules (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    name            TEXT NOT NULL,
    created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),

    UNIQUE(tenant_id, name)
);

CREATE INDEX IF NOT EXISTS idx_prefect_modules_tenant ON prefect_modules (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS prefect_modules`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_grants",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				// target_id stores '' for unscoped grants so the unique
				// constraint covers them (NULLs never collide in SQLite).
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS prefect_grants (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    user_id         TEXT NOT NULL DEFAULT '',
    role_id         TEXT NOT NULL DEFAULT '',
    setter_id       TEXT NOT NULL DEFAULT '',
    module_id       TEXT NOT NULL REFERENCES prefect_modules(id) ON DELETE RESTRICT,
    target_type     TEXT NOT NULL,
    target_id       TEXT NOT NULL DEFAULT '',
    action          TEXT NOT NULL,
    scope           TEXT NOT NULL,
    title           TEXT NOT NULL DEFAULT '',
    created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),

    UNIQUE(tenant_id, user_id, role_id, module_id, target_type, target_id, action, scope)
);

CREATE INDEX IF NOT EXISTS idx_prefect_grants_tenant ON prefect_grants (tenant_id);
CREATE INDEX IF NOT EXISTS idx_prefect_grants_user ON prefect_grants (tenant_id, user_id);
CREATE INDEX IF NOT EXISTS idx_prefect_grants_role ON prefect_grants (tenant_id, role_id);
CREATE INDEX IF NOT EXISTS idx_prefect_grants_match ON prefect_grants (tenant_id, module_id, target_type, target_id, action);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS prefect_grants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_decision_logs",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS prefect_decision_logs (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    actor_id        TEXT NOT NULL,
    role_id         TEXT NOT NULL DEFAULT '',
    module          TEXT NOT NULL,
    action          TEXT NOT NULL,
    target_type     TEXT NOT NULL,
    target_id       TEXT NOT NULL DEFAULT '',
    allowed         INTEGER NOT NULL,
    decision        TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    eval_time_ns    INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_prefect_dlogs_tenant ON prefect_decision_logs (tenant_id);
CREATE INDEX IF NOT EXISTS idx_prefect_dlogs_actor ON prefect_decision_logs (tenant_id, actor_id);
CREATE INDEX IF NOT EXISTS idx_prefect_dlogs_created ON prefect_decision_logs (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS prefect_decision_logs`)
				return err
			},
		},
	)
}
