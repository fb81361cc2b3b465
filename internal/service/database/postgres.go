package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/pkg/errors"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	connectTimeout         = 5 * time.Second
)

// PostgresService owns the shared connection pool for the content tables.
type PostgresService struct {
	db     *sql.DB
	logger *zap.Logger
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Zero values use the package defaults.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds a lib/pq connection URL. Credentials are escaped.
func (cfg PostgresConfig) DSN() string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

func (cfg PostgresConfig) poolLimits() (open, idle int, lifetime time.Duration) {
	open, idle, lifetime = cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime
	if open <= 0 {
		open = defaultMaxOpenConns
	}
	if idle <= 0 {
		idle = defaultMaxIdleConns
	}
	if idle > open {
		idle = open
	}
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}
	return open, idle, lifetime
}

func NewPostgresService(cfg PostgresConfig, logger *zap.Logger) (*PostgresService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	open, idle, lifetime := cfg.poolLimits()
	db.SetMaxOpenConns(open)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewServiceError("failed to connect to postgres", "postgres", "ping", err)
	}

	logger.Info("PostgreSQL connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Int("max_open_conns", open),
	)

	return &PostgresService{
		db:     db,
		logger: logger,
	}, nil
}

func (ps *PostgresService) GetDB() *sql.DB {
	return ps.db
}

func (ps *PostgresService) Close() error {
	if ps.db == nil {
		return nil
	}
	if err := ps.db.Close(); err != nil {
		ps.logger.Error("Failed to close PostgreSQL pool", zap.Error(err))
		return err
	}
	ps.logger.Info("PostgreSQL disconnected")
	return nil
}

// Ping is the readiness check used by the health endpoint.
func (ps *PostgresService) Ping(ctx context.Context) error {
	if err := ps.db.PingContext(ctx); err != nil {
		return errors.NewServiceError("postgres is unreachable", "postgres", "ping", err)
	}
	return nil
}
