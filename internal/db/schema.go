package db

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL the repositories are written against.
func Schema() string {
	return schemaSQL
}

// EnsureSchema applies the idempotent DDL. Used by the seed tool and local setups.
func EnsureSchema(ctx context.Context, conn DBTX) error {
	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
