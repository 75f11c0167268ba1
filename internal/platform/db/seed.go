package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/querier"
)

// EnsureTenant returns the id of the tenant called name, creating it when missing.
func EnsureTenant(ctx context.Context, q querier.Querier, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("tenant name required")
	}

	var id string
	err := q.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1 ORDER BY created_at LIMIT 1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	err = q.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", err
	}
	if _, err := q.Exec(ctx, "INSERT INTO tenant_settings (tenant_id) VALUES ($1) ON CONFLICT (tenant_id) DO NOTHING", id); err != nil {
		return "", err
	}
	return id, nil
}
