package migrations

import "embed"

// PostgresFS embeds the PostgreSQL migration files building the
// token_configs and account_balances tables.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the ClickHouse migration files building the
// ledger_events journal.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
