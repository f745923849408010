package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/medrec/medrec/internal/platform/db"
)

const defaultPostgresImage = "postgres:16-alpine"

// startPostgresContainer runs a throwaway Postgres through the Docker CLI on
// a port Docker picks, and returns its connection string and a cleanup
// function. MEDREC_IT_IMAGE overrides the image.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	if _, err := exec.LookPath("docker"); err != nil {
		return "", nil, fmt.Errorf("docker not available: %w", err)
	}
	image := os.Getenv("MEDREC_IT_IMAGE")
	if image == "" {
		image = defaultPostgresImage
	}

	out, err := docker(ctx, "run", "-d", "--rm",
		"--label", "medrec.integration=true",
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER=medrec",
		"-e", "POSTGRES_PASSWORD=medrec",
		"-e", "POSTGRES_DB=medrectest",
		image,
	)
	if err != nil {
		return "", nil, err
	}
	id := out
	cleanup := func() { _, _ = docker(context.Background(), "stop", id) }

	addr, err := docker(ctx, "port", id, "5432/tcp")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	// docker port may list one binding per address family.
	addr = strings.Split(addr, "\n")[0]

	connStr := fmt.Sprintf("postgres://medrec:medrec@%s/medrectest?sslmode=disable", addr)
	if err := waitForPostgres(ctx, connStr, 30*time.Second); err != nil {
		cleanup()
		return "", nil, err
	}
	return connStr, cleanup, nil
}

func docker(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("docker %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// waitForPostgres retries until the server accepts a connection. The entry
// point script restarts Postgres once during init, so an early success is
// not trusted until a second ping passes.
func waitForPostgres(ctx context.Context, connStr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ready := 0
	var lastErr error
	for {
		pool, err := db.NewPool(ctx, connStr, db.WithConns(1, 0))
		if err == nil {
			pool.Close()
			ready++
		} else {
			lastErr = err
			ready = 0
		}
		if ready == 2 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %v", timeout, lastErr)
		case <-time.After(500 * time.Millisecond):
		}
	}
}
