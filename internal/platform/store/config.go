package store

import (
	"strings"
	"time"

	"litscreen/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	// AppName becomes application_name in pg_stat_activity and the
	// clickhouse client name
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures the postgres pool
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // zero means 20
	PingTimeout    time.Duration // zero means 3s
}

// CHConfig configures the clickhouse audit sink
type CHConfig struct {
	Enabled bool
	URL     string

	// ClientRole is reported in system.query_log, e.g. "api" or "relay"
	ClientRole string
}

// FromEnv reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* below root. A backend is
// enabled when its DBURL is set; callers may switch it off afterwards
func FromEnv(root config.Conf, app string, maxConns int) Config {
	pg := root.Prefix("SERVICE_PGSQL_")
	ch := root.Prefix("SERVICE_CLICKHOUSE_")

	pgURL := pg.MayString("DBURL", "")
	chURL := ch.MayString("DBURL", "")

	return Config{
		AppName: app,
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(pg.MayPositiveInt("MAX_CONNS", maxConns)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
			ConnectRetries: pg.MayPositiveInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:    chURL != "",
			URL:        chURL,
			ClientRole: strings.TrimPrefix(app, "litscreen-"),
		},
	}
}
