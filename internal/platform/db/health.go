package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the part of pgxpool.Stat the readiness probe reports.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireDuration string `json:"acquire_duration"`
}

func statsOf(pool *pgxpool.Pool) PoolStats {
	st := pool.Stat()
	return PoolStats{
		TotalConns:      st.TotalConns(),
		IdleConns:       st.IdleConns(),
		AcquiredConns:   st.AcquiredConns(),
		MaxConns:        st.MaxConns(),
		AcquireDuration: st.AcquireDuration().String(),
	}
}

// Readiness is the body of /health/db.
type Readiness struct {
	Status        string    `json:"status"`
	Service       string    `json:"service"`
	SchemaVersion int       `json:"schema_version"`
	Error         string    `json:"error,omitempty"`
	Pool          PoolStats `json:"pool"`
}

type prober interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LivenessHandler answers /health. It never touches the database.
func LivenessHandler(service string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": service})
	}
}

// HealthHandler answers /health/db. The service is ready once the database
// answers and at least one migration has been applied to the schema on its
// search_path; otherwise it answers 503.
func HealthHandler(service string, pool *pgxpool.Pool) echo.HandlerFunc {
	return readiness(service, pool, func() PoolStats { return statsOf(pool) })
}

func readiness(service string, p prober, stats func() PoolStats) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		r := Readiness{Status: "ready", Service: service}
		if err := p.Ping(ctx); err != nil {
			r.Error = err.Error()
		} else if err := p.QueryRow(ctx, schemaVersionQuery).Scan(&r.SchemaVersion); err != nil {
			r.Error = err.Error()
		} else if r.SchemaVersion == 0 {
			r.Error = "schema not migrated"
		}
		r.Pool = stats()

		if r.Error != "" {
			r.Status = "unavailable"
			return c.JSON(http.StatusServiceUnavailable, r)
		}
		return c.JSON(http.StatusOK, r)
	}
}

const schemaVersionQuery = `SELECT CASE
    WHEN to_regclass('_migrations') IS NULL THEN 0
    ELSE (SELECT COALESCE(MAX(version), 0) FROM _migrations)
END`
