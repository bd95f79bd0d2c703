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
	"fmt"
	"testing"

	_ "github.com/mutecomm/go-sqlcipher/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReadOnly_Allowed(t *testing.T) {
	queries := []string{
		"SELECT * FROM customers",
		"  select count(*) from churn_scores where churn_risk is null",
		"DESCRIBE analytics.churn_scores",
		"SHOW TABLES",
	}
	for _, q := range queries {
		assert.NoError(t, ValidateReadOnly(q), "query: %s", q)
	}
}

func TestValidateReadOnly_Rejected(t *testing.T) {
	queries := []string{
		"",
		"DROP TABLE customers",
		"DELETE FROM customers WHERE id = 1",
		"UPDATE customers SET name = 'x'",
		"INSERT INTO customers VALUES (1)",
		"TRUNCATE customers",
		"WITH x AS (SELECT 1) SELECT * FROM x", // not an allowed prefix
	}
	for _, q := range queries {
		assert.Error(t, ValidateReadOnly(q), "query: %s", q)
	}
}

func TestValidateReadOnly_DeniedKeywordAnywhere(t *testing.T) {
	// Starts with SELECT but smuggles a mutation; deny-list must win.
	err := ValidateReadOnly("SELECT * FROM t; DROP TABLE t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DROP")
}

func TestValidateReadOnly_Idempotent(t *testing.T) {
	queries := []string{
		"SELECT * FROM t",
		"SELECT * FROM t; DROP TABLE t",
		"delete from t",
	}
	for _, q := range queries {
		first := ValidateReadOnly(q)
		second := ValidateReadOnly(q)
		assert.Equal(t, first == nil, second == nil, "query: %s", q)
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", t.TempDir()+"/warehouse.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLTool_Execute(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE scores (id INTEGER, risk TEXT)`)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := db.Exec(`INSERT INTO scores VALUES (?, ?)`, i, fmt.Sprintf("r%d", i))
		require.NoError(t, err)
	}

	// CREATE/INSERT above go through database/sql directly; the tool itself
	// only ever sees read-only statements.
	tool := NewSQLToolWithDB(db, SQLToolConfig{MaxRows: 15}, nil)

	result, execErr := tool.Execute(context.Background(), map[string]interface{}{
		"sql": "SELECT id, risk FROM scores",
	})
	require.NoError(t, execErr)
	require.True(t, result.OK(), "unexpected error: %v", result.Error)

	data := result.Data.(map[string]interface{})
	assert.Equal(t, 5, data["row_count"])
	assert.Equal(t, false, data["truncated"])
	assert.Len(t, data["rows"], 5)
}

func TestSQLTool_Execute_Truncation(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE big (id INTEGER)`)
	require.NoError(t, err)
	for i := 0; i < 40; i++ {
		_, err := db.Exec(`INSERT INTO big VALUES (?)`, i)
		require.NoError(t, err)
	}

	tool := NewSQLToolWithDB(db, SQLToolConfig{MaxRows: 15}, nil)
	result, execErr := tool.Execute(context.Background(), map[string]interface{}{
		"sql": "SELECT id FROM big",
	})
	require.NoError(t, execErr)
	require.True(t, result.OK())

	data := result.Data.(map[string]interface{})
	rows := data["rows"].([][]interface{})
	assert.Len(t, rows, 15)
	// The true total is reported and is >= rows returned.
	assert.Equal(t, 40, data["row_count"])
	assert.Equal(t, true, data["truncated"])
}

func TestSQLTool_Execute_RejectsMutations(t *testing.T) {
	db := openTestDB(t)
	tool := NewSQLToolWithDB(db, SQLToolConfig{}, nil)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"sql": "SELECT * FROM t; DROP TABLE t",
	})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, ErrReadOnly, result.Error.Code)
}

func TestSQLTool_Execute_BadQueryIsSoft(t *testing.T) {
	db := openTestDB(t)
	tool := NewSQLToolWithDB(db, SQLToolConfig{}, nil)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"sql": "SELECT * FROM no_such_table",
	})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Contains(t, result.Render(), "error")
}

func TestSQLTool_RequireUserToken(t *testing.T) {
	db := openTestDB(t)
	tool := NewSQLToolWithDB(db, SQLToolConfig{RequireUserToken: true}, nil)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"sql": "SELECT 1",
	})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, ErrUserToken, result.Error.Code)

	ctx := WithUserToken(context.Background(), "user-token")
	result, err = tool.Execute(ctx, map[string]interface{}{"sql": "SELECT 1"})
	require.NoError(t, err)
	assert.True(t, result.OK())
	data := result.Data.(map[string]interface{})
	assert.Equal(t, true, data["using_user_token"])
}

func TestTableSchemaTool_RequireUserToken(t *testing.T) {
	db := openTestDB(t)
	sqlTool := NewSQLToolWithDB(db, SQLToolConfig{RequireUserToken: true}, nil)
	tool := NewTableSchemaTool(sqlTool)

	// Without a per-user token the lookup must be refused before any
	// query reaches the warehouse under the shared credential.
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"table_name": "analytics.churn_scores",
	})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, ErrUserToken, result.Error.Code)

	// With a token the query proceeds; it fails downstream only because
	// this test database has no information_schema.
	ctx := WithUserToken(context.Background(), "user-token")
	result, err = tool.Execute(ctx, map[string]interface{}{
		"table_name": "analytics.churn_scores",
	})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.NotEqual(t, ErrUserToken, result.Error.Code)
}

func TestTableSchemaTool_InvalidName(t *testing.T) {
	db := openTestDB(t)
	sqlTool := NewSQLToolWithDB(db, SQLToolConfig{}, nil)
	tool := NewTableSchemaTool(sqlTool)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"table_name": "scores; DROP TABLE scores",
	})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, ErrInvalidArguments, result.Error.Code)
}
