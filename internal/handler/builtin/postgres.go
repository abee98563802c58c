package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/orbitflow/orbitflow/internal/handler"
)

// PostgresRunQueryHandler runs an ad-hoc read/write query against a
// caller-specified Postgres instance. Grounded on postgres_run_query.py's
// PostgresRunQueryHandler: the query is the only LLM-facing parameter,
// connection details (host/port/database/username/password) come
// exclusively from creds, never from params, and a fresh connection is
// opened and closed per call rather than pooled (this handler runs rarely
// enough that pooling isn't worth the lifecycle complexity).
type PostgresRunQueryHandler struct{}

func (h *PostgresRunQueryHandler) ParameterSpecs() []handler.ParameterSpec {
	return []handler.ParameterSpec{
		{Name: "query", Type: handler.TypeString, Required: true, Description: "SQL statement to run"},
	}
}

func (h *PostgresRunQueryHandler) Execute(ctx context.Context, params handler.Params, creds handler.Creds) (*handler.Result, error) {
	start := time.Now()

	query, _ := params["query"].(string)
	if query == "" {
		return errResult(start, fmt.Errorf("missing required parameter 'query'")), nil
	}

	host, _ := creds["host"].(string)
	database, _ := creds["database"].(string)
	username, _ := creds["username"].(string)
	password, _ := creds["password"].(string)
	if host == "" || database == "" || username == "" {
		return errResult(start, fmt.Errorf("incomplete credentials: host, database and username are required")), nil
	}
	port := 5432
	if p, ok := creds["port"].(int); ok {
		port = p
	}

	dsn := fmt.Sprintf("postgresql://%s:%s@%s:%d/%s", username, password, host, port, database)

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return errResult(start, err), nil
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return errResult(start, err), nil
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return errResult(start, err), nil
	}
	return okResult(start, records), nil
}
