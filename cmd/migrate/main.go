package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

const ensureMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	filename   TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	dir := "migrations"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			dir = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if _, err := db.Exec(ensureMigrationsTable); err != nil {
		log.Fatalf("schema_migrations: %v", err)
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		log.Fatalf("list applied migrations: %v", err)
	}

	if listOnly {
		files, err := migrationFiles(dir)
		if err != nil {
			log.Fatal(err)
		}
		for _, f := range files {
			state := "pending"
			if applied[f] {
				state = "applied"
			}
			fmt.Printf("  %-40s %s\n", f, state)
		}
		fmt.Printf("Total: %d migrations, %d applied\n", len(files), len(applied))
		return
	}

	files, err := migrationFiles(dir)
	if err != nil {
		log.Fatal(err)
	}

	var okCount, skipCount, errCount int
	for _, f := range files {
		if applied[f] {
			skipCount++
			continue
		}
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Printf("  %s ... ", f)

		tx, err := db.Begin()
		if err != nil {
			fmt.Printf("BEGIN ERROR: %v\n", err)
			errCount++
			continue
		}
		if _, err := tx.Exec(content); err != nil {
			tx.Rollback()
			fmt.Printf("ERROR: %v\n", err)
			errCount++
			// Later files build on earlier ones.
			break
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, f); err != nil {
			tx.Rollback()
			fmt.Printf("ERROR recording: %v\n", err)
			errCount++
			break
		}
		if err := tx.Commit(); err != nil {
			fmt.Printf("COMMIT ERROR: %v\n", err)
			errCount++
			break
		}
		fmt.Println("OK")
		okCount++
	}
	log.Printf("Done: %d applied, %d already applied, %d errors", okCount, skipCount, errCount)
	if errCount > 0 {
		os.Exit(1)
	}
	log.Println("Migrations complete")
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func appliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	applied := make(map[string]bool)
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		applied[f] = true
	}
	return applied, rows.Err()
}
