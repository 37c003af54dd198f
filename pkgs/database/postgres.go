package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/tonghsuan/chirp/pkgs/model"
)

////////////////////////////////////////////////////////////////////////////////

// Config describes a PostgreSQL connection. URL, when set, wins over the
// discrete fields.
type Config struct {
	URL string `yaml:"url"`

	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`

	// StatementTimeout bounds long-running statements on every connection
	// from this pool. Zero means no limit. The cleanup tool sets 5 minutes.
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

func (c Config) dsn() string {
	dsn := c.URL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.DBName,
		)
	} else if parsed, err := pq.ParseURL(dsn); err == nil {
		// Key=value form so connection options can be appended below.
		dsn = parsed
	}
	if c.StatementTimeout > 0 {
		dsn += fmt.Sprintf(" options='-c statement_timeout=%d'", c.StatementTimeout.Milliseconds())
	}
	return dsn
}

////////////////////////////////////////////////////////////////////////////////

// Connect opens a PostgreSQL connection pool and verifies it with a ping.
func Connect(cfg Config) (*sqlx.DB, error) {
	logger := log.WithFields(log.Fields{
		"caller": "Connect",
		"host":   cfg.Host,
		"port":   cfg.Port,
		"dbname": cfg.DBName,
	})

	db, err := sqlx.Connect("postgres", cfg.dsn())
	if err != nil {
		logger.WithError(err).Error("Failed to connect to PostgreSQL")
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		logger.WithError(err).Error("Failed to ping PostgreSQL")
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("Connected to PostgreSQL database")
	return db, nil
}

// EnsureSchema creates all tables and base indexes if they do not exist.
// The materialized aggregate views are attempted separately and only logged
// on failure: CREATE MATERIALIZED VIEW IF NOT EXISTS needs Postgres >= 9.5
// and the views depend on tweet_tags being present.
func EnsureSchema(db *sqlx.DB) error {
	if _, err := db.Exec(model.Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec(model.AggregateViews); err != nil {
		log.WithError(err).Warn("Could not create aggregate views")
	}

	log.Info("Database schema ensured")
	return nil
}
