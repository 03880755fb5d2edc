package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres(t *testing.T) {
	ms, err := Postgres()
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "001_factor_registry", ms[0].Name)
	assert.Equal(t, 2, ms[1].Version)
	assert.Contains(t, ms[1].SQL, "factor_runs")
}

func TestClickHouse(t *testing.T) {
	ms, err := ClickHouse()
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "001_datasets", ms[0].Name)
	assert.Equal(t, "002_factor_values", ms[1].Name)

	for _, m := range ms {
		assert.Len(t, Statements(m.SQL), 1, m.Name)
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "line comments",
			sql:  "-- header\nCREATE TABLE a (x Int8);\n\n-- next\nCREATE TABLE b (y Int8);\n",
			want: []string{"CREATE TABLE a (x Int8)", "CREATE TABLE b (y Int8)"},
		},
		{
			name: "semicolon in literal",
			sql:  "SELECT 'a;b'; SELECT 2",
			want: []string{"SELECT 'a;b'", "SELECT 2"},
		},
		{
			name: "escaped quotes",
			sql:  `SELECT 'it''s;'; SELECT 'x\';y'`,
			want: []string{"SELECT 'it''s;'", `SELECT 'x\';y'`},
		},
		{
			name: "block comment",
			sql:  "SELECT /* a; b */ 1;",
			want: []string{"SELECT   1"},
		},
		{
			name: "empty",
			sql:  " ;\n-- only a comment\n;",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Statements(tt.sql))
		})
	}
}
