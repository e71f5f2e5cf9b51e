package db

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docask/docask/internal/config"
)

func TestParseVectorDimension(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "vector(768)", want: 768},
		{input: "vector(1536)", want: 1536},
		{input: " vector(3) ", want: 3},
		{input: "vector", wantErr: true},
		{input: "vector()", wantErr: true},
		{input: "text", wantErr: true},
		{input: "vector(abc)", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseVectorDimension(tc.input)
		if tc.wantErr {
			require.Error(t, err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		require.Equal(t, tc.want, got, tc.input)
	}
}

func TestCheckVectorDimension(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}
	dbc, err := Open(config.DatabaseConfig{DSN: dsn})
	require.NoError(t, err)
	defer dbc.Close()
	require.NoError(t, ApplyMigrations(dbc))

	require.NoError(t, CheckVectorDimension(dbc, 768))

	err = CheckVectorDimension(dbc, 1536)
	require.Error(t, err)
	require.Contains(t, err.Error(), "embed_dimension")
}
