package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"seal-telemetry/internal/config"
)

// seedTimeLayout is the timestamp format expected in metadata seed files.
const seedTimeLayout = "2006-01-02 15:04:05"

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	seedFile := flag.String("seed", "", "Optional CSV file of deployment metadata to load after migrating up")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Connect to database
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to ping database: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Connected to database successfully")

	// Read migration file
	var migrationFile string
	if *direction == "up" {
		migrationFile = "migrations/001_create_deployments.up.sql"
	} else {
		migrationFile = "migrations/001_create_deployments.down.sql"
	}

	migrationPath := filepath.Join(".", migrationFile)
	content, err := os.ReadFile(migrationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read migration file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running migration: %s\n", migrationFile)

	// Execute migration
	_, err = db.Exec(string(content))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")

	if *seedFile != "" && *direction == "up" {
		count, err := loadSeed(db, *seedFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load seed file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %d deployment metadata rows from %s\n", count, *seedFile)
	}
}

// loadSeed upserts deployment metadata rows from a CSV file with columns
// deploy_id, deploy_start, deploy_end, age_class, sex. Empty date cells
// load as NULL (open-ended deployment).
func loadSeed(db *sql.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read seed header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"deploy_id", "deploy_start", "deploy_end", "age_class", "sex"} {
		if _, ok := cols[required]; !ok {
			return 0, fmt.Errorf("seed file missing column %q", required)
		}
	}

	query := `
		INSERT INTO deployments (deploy_id, deploy_start, deploy_end, age_class, sex, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (deploy_id) DO UPDATE SET
			deploy_start = EXCLUDED.deploy_start,
			deploy_end   = EXCLUDED.deploy_end,
			age_class    = EXCLUDED.age_class,
			sex          = EXCLUDED.sex
	`

	count := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read seed row: %w", err)
		}

		start, err := parseSeedTime(row[cols["deploy_start"]])
		if err != nil {
			return count, fmt.Errorf("row %d: bad deploy_start: %w", count+1, err)
		}
		end, err := parseSeedTime(row[cols["deploy_end"]])
		if err != nil {
			return count, fmt.Errorf("row %d: bad deploy_end: %w", count+1, err)
		}

		if _, err := db.Exec(query,
			strings.TrimSpace(row[cols["deploy_id"]]),
			start,
			end,
			strings.TrimSpace(row[cols["age_class"]]),
			strings.TrimSpace(row[cols["sex"]]),
		); err != nil {
			return count, fmt.Errorf("row %d: %w", count+1, err)
		}
		count++
	}

	return count, nil
}

func parseSeedTime(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(seedTimeLayout, v, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
