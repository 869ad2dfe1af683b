package telemetry

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"tuxedoctl/internal/errors"
	"tuxedoctl/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

type Repository interface {
	Store(sample *Sample) error
	Close() error
}

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing telemetry repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{
		db: db,
	}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS fan_status (
            timestamp INTEGER PRIMARY KEY,
            fan1_duty INTEGER,
            fan2_duty INTEGER,
            auto_mode INTEGER
        )
    `)

	return err
}

func (r *sqliteRepository) Store(sample *Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`
        INSERT INTO fan_status (timestamp, fan1_duty, fan2_duty, auto_mode)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(timestamp) DO UPDATE SET
            fan1_duty = excluded.fan1_duty,
            fan2_duty = excluded.fan2_duty,
            auto_mode = excluded.auto_mode
    `,
		sample.Timestamp.Unix(),
		sample.Fan1Duty,
		sample.Fan2Duty,
		boolToInt(sample.AutoMode),
	)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}
