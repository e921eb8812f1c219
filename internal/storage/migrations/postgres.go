package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"decay-ledger/internal/storage/postgres"
)

// ledgerTables are the relations the embedded migrations must produce:
// token_configs carries per-token supply and decay parameters,
// account_balances the per-owner balances with their decay checkpoints.
var ledgerTables = []string{"token_configs", "account_balances"}

// RunPostgresMigrations applies all embedded SQL files in lexical order and
// then verifies the ledger schema came out complete. Migrations are
// expected to be idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	entries, err := fs.ReadDir(PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("read embedded postgres migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	for _, table := range ledgerTables {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = $1)`, table,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("verify table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("migrations applied but table %s is missing", table)
		}
	}

	return nil
}
