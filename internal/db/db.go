package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/docask/docask/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// CheckVectorDimension verifies the chunks.embedding column width
// matches the configured embedding dimension. The column is created by
// the migrations with a fixed width, so a mismatched config would
// otherwise only surface as a pgvector error on the first upsert.
func CheckVectorDimension(db *sql.DB, want int) error {
	var columnType string
	err := db.QueryRow(`
SELECT format_type(atttypid, atttypmod)
FROM pg_attribute
WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'`).Scan(&columnType)
	if err != nil {
		return fmt.Errorf("read embedding column type: %w", err)
	}
	got, err := parseVectorDimension(columnType)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("chunks.embedding is %s but ai.embed_dimension is %d; migrate the column or fix the config", columnType, want)
	}
	return nil
}

func parseVectorDimension(columnType string) (int, error) {
	s := strings.TrimSpace(columnType)
	if !strings.HasPrefix(s, "vector(") || !strings.HasSuffix(s, ")") {
		return 0, fmt.Errorf("chunks.embedding has unexpected type %q", columnType)
	}
	dim, err := strconv.Atoi(s[len("vector(") : len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("chunks.embedding has unexpected type %q", columnType)
	}
	return dim, nil
}

func ApplyMigrations(db *sql.DB) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return err
		}
		queries := strings.Split(string(content), ";")
		for _, q := range queries {
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			if _, err := db.Exec(q); err != nil {
				if strings.Contains(err.Error(), "already exists") {
					continue
				}
				return fmt.Errorf("execute query in %s: %w", file, err)
			}
		}
	}
	return nil
}
