// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	// Warehouse drivers. Which one is used is a deployment choice (Driver
	// in SQLToolConfig); both read-only paths behave identically.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Read-only statement policy. Both checks must pass: the statement must
// start with an allow-listed verb AND must not contain any deny-listed
// keyword anywhere, so "SELECT * FROM t; DROP TABLE t" is rejected.
var (
	allowedPrefixes = []string{"SELECT", "DESCRIBE", "DESC", "SHOW"}
	deniedKeywords  = []string{"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "TRUNCATE", "CREATE"}

	deniedPattern = regexp.MustCompile(`\b(` + strings.Join(deniedKeywords, "|") + `)\b`)
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
)

// ValidateReadOnly reports whether the statement is allowed under the
// read-only policy. Pure function of the normalized query text.
func ValidateReadOnly(query string) error {
	normalized := strings.ToUpper(strings.TrimSpace(query))
	if normalized == "" {
		return errors.New("empty query")
	}

	allowed := false
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("only read-only queries are allowed (%s)", strings.Join(allowedPrefixes, ", "))
	}
	if kw := deniedPattern.FindString(normalized); kw != "" {
		return fmt.Errorf("query contains forbidden keyword %s; only read-only queries are allowed", kw)
	}
	return nil
}

// SQLToolConfig configures warehouse access for the query tools.
type SQLToolConfig struct {
	// Driver is "postgres" or "mysql".
	Driver string

	// DSN is the warehouse connection string.
	DSN string

	// MaxRows caps rows returned to the LLM. Default 15.
	MaxRows int

	// Timeout bounds a single query. Default 30s.
	Timeout time.Duration

	// RequireUserToken refuses queries when no per-user token is present in
	// the context. Enforced so data access runs under the human's
	// permissions, never silently under the shared service credential.
	RequireUserToken bool
}

func (c *SQLToolConfig) applyDefaults() {
	if c.MaxRows == 0 {
		c.MaxRows = 15
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Driver == "" {
		c.Driver = "postgres"
	}
}

// SQLTool executes read-only warehouse queries with row truncation.
type SQLTool struct {
	db     *sql.DB
	cfg    SQLToolConfig
	logger *zap.Logger
}

// NewSQLTool opens the warehouse connection and returns the execute_sql tool.
func NewSQLTool(cfg SQLToolConfig, logger *zap.Logger) (*SQLTool, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	return &SQLTool{db: db, cfg: cfg, logger: logger}, nil
}

// NewSQLToolWithDB wires an existing connection, used by tests and by
// get_table_schema which shares the pool.
func NewSQLToolWithDB(db *sql.DB, cfg SQLToolConfig, logger *zap.Logger) *SQLTool {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLTool{db: db, cfg: cfg, logger: logger}
}

// DB exposes the underlying pool for sibling tools.
func (t *SQLTool) DB() *sql.DB { return t.db }

// Close releases the warehouse connection.
func (t *SQLTool) Close() error { return t.db.Close() }

func (t *SQLTool) Name() string { return "execute_sql" }

func (t *SQLTool) Description() string {
	return "Execute a read-only SQL query (SELECT, DESCRIBE, SHOW) against the data warehouse. " +
		"Results are truncated to a fixed row cap; the true total row count is reported."
}

func (t *SQLTool) InputSchema() *JSONSchema {
	return ObjectSchema("execute_sql parameters", map[string]*JSONSchema{
		"sql": StringSchema("The SQL query to execute. Read-only statements only."),
	}, []string{"sql"})
}

func (t *SQLTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	query, _ := params["sql"].(string)
	if err := ValidateReadOnly(query); err != nil {
		return Errorf(ErrReadOnly, err.Error()), nil
	}

	usingUserToken := UserTokenFromContext(ctx) != ""
	if t.cfg.RequireUserToken && !usingUserToken {
		return Errorf(ErrUserToken,
			"a per-user access token is required for warehouse queries and none was provided"), nil
	}

	qctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	rows, err := t.db.QueryContext(qctx, query)
	if err != nil {
		return t.queryError(qctx, err), nil
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Errorf(ErrExecution, fmt.Sprintf("SQL Error: %v", err)), nil
	}

	var (
		kept     [][]interface{}
		rowCount int
	)
	for rows.Next() {
		rowCount++
		if rowCount > t.cfg.MaxRows {
			// Keep counting so the true total is reported.
			continue
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Errorf(ErrExecution, fmt.Sprintf("SQL Error: %v", err)), nil
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		kept = append(kept, values)
	}
	if err := rows.Err(); err != nil {
		return t.queryError(qctx, err), nil
	}

	truncated := rowCount > t.cfg.MaxRows
	if truncated {
		t.logger.Debug("query result truncated",
			zap.Int("row_count", rowCount), zap.Int("max_rows", t.cfg.MaxRows))
	}
	return &Result{
		Data: map[string]interface{}{
			"columns":          columns,
			"rows":             kept,
			"row_count":        rowCount,
			"truncated":        truncated,
			"using_user_token": usingUserToken,
		},
	}, nil
}

// queryError distinguishes timeouts from other warehouse failures so the
// LLM can tell "your query was rejected" from "the backend was unreachable".
func (t *SQLTool) queryError(ctx context.Context, err error) *Result {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Errorf(ErrTimeout, fmt.Sprintf("query timed out after %s", t.cfg.Timeout))
	}
	return Errorf(ErrExecution, fmt.Sprintf("SQL Error: %v", err))
}

// TableSchemaTool returns column definitions for one table.
type TableSchemaTool struct {
	sqlTool *SQLTool
}

// NewTableSchemaTool shares the SQLTool's pool, read-only policy, and
// per-user token requirement.
func NewTableSchemaTool(sqlTool *SQLTool) *TableSchemaTool {
	return &TableSchemaTool{sqlTool: sqlTool}
}

func (t *TableSchemaTool) Name() string { return "get_table_schema" }

func (t *TableSchemaTool) Description() string {
	return "Get the column names, types, and nullability for a warehouse table."
}

func (t *TableSchemaTool) InputSchema() *JSONSchema {
	return ObjectSchema("get_table_schema parameters", map[string]*JSONSchema{
		"table_name": StringSchema("Fully qualified table name, e.g. analytics.churn_scores."),
	}, []string{"table_name"})
}

func (t *TableSchemaTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	tableName, _ := params["table_name"].(string)
	if !identPattern.MatchString(tableName) {
		return Errorf(ErrInvalidArguments, fmt.Sprintf("invalid table name: %q", tableName)), nil
	}

	// Same credential policy as execute_sql: schema lookups hit the
	// warehouse too, so they must not fall through to the shared pool
	// credential when per-user tokens are required.
	usingUserToken := UserTokenFromContext(ctx) != ""
	if t.sqlTool.cfg.RequireUserToken && !usingUserToken {
		return Errorf(ErrUserToken,
			"a per-user access token is required for warehouse queries and none was provided"), nil
	}

	// Unqualified part for information_schema lookup.
	parts := strings.Split(tableName, ".")
	bare := parts[len(parts)-1]

	query := `SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`
	if t.sqlTool.cfg.Driver == "mysql" {
		query = strings.Replace(query, "$1", "?", 1)
	}

	qctx, cancel := context.WithTimeout(ctx, t.sqlTool.cfg.Timeout)
	defer cancel()

	rows, err := t.sqlTool.db.QueryContext(qctx, query, bare)
	if err != nil {
		return t.sqlTool.queryError(qctx, err), nil
	}
	defer rows.Close()

	type column struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Nullable string `json:"nullable"`
	}
	var cols []column
	for rows.Next() {
		var c column
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable); err != nil {
			return Errorf(ErrExecution, fmt.Sprintf("SQL Error: %v", err)), nil
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return t.sqlTool.queryError(qctx, err), nil
	}
	if len(cols) == 0 {
		return Errorf(ErrExecution, fmt.Sprintf("table not found: %s", tableName)), nil
	}
	return &Result{
		Data: map[string]interface{}{
			"table":            tableName,
			"columns":          cols,
			"using_user_token": usingUserToken,
		},
	}, nil
}
