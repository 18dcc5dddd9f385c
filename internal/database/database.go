package database

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
)

// ErrNoDatabaseURL means no connection string was configured anywhere.
// Callers treat this as "run without persistence", not as a failure.
var ErrNoDatabaseURL = errors.New("DATABASE_URL not set in config, environment, or .env")

// Connect opens and pings a Postgres connection. An empty url falls back
// to DATABASE_URL from the environment, then to a .env file found by
// walking up from the working directory.
func Connect(url string) (*sql.DB, error) {
	if strings.TrimSpace(url) == "" {
		resolved, err := ResolveURL()
		if err != nil {
			return nil, err
		}
		url = resolved
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return db, nil
}

// ResolveURL locates a DATABASE_URL outside the config file.
func ResolveURL() (string, error) {
	if direct := strings.TrimSpace(os.Getenv("DATABASE_URL")); direct != "" {
		return direct, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	envPath := findEnvFile(wd)
	if envPath == "" {
		return "", ErrNoDatabaseURL
	}

	url, err := readEnvValue(envPath, "DATABASE_URL")
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", ErrNoDatabaseURL
	}
	return url, nil
}

func readEnvValue(path, key string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		eqIdx := strings.IndexRune(line, '=')
		if eqIdx <= 0 {
			continue
		}
		if strings.TrimSpace(line[:eqIdx]) != key {
			continue
		}

		value := strings.TrimSpace(line[eqIdx+1:])
		return strings.Trim(value, "\"'"), nil
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return "", nil
}

func findEnvFile(start string) string {
	dir := start
	for {
		candidate := filepath.Join(dir, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
