package pgstore

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pershin-daniil/MeetingScheduler/pkg/metrics"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var migrations embed.FS

const backend = "pg"

// Store mirrors the file store contract on top of Postgres: the meeting list
// is always read and replaced as a whole.
type Store struct {
	log *logrus.Entry
	db  *sqlx.DB
}

func New(ctx context.Context, log *logrus.Logger, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		log: log.WithField("component", "pgstore"),
		db:  db,
	}, nil
}

func (s *Store) Migrate(direction migrate.MigrationDirection) error {
	assetDir := func(path string) ([]string, error) {
		dirEntry, er := migrations.ReadDir(path)
		if er != nil {
			return nil, er
		}
		entries := make([]string, 0, len(dirEntry))
		for _, e := range dirEntry {
			entries = append(entries, e.Name())
		}
		return entries, nil
	}
	asset := migrate.AssetMigrationSource{
		Asset:    migrations.ReadFile,
		AssetDir: assetDir,
		Dir:      "migrations",
	}
	_, err := migrate.Exec(s.db.DB, "postgres", asset, direction)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) ([]models.Meeting, error) {
	defer observe("load", time.Now())
	meetings := make([]models.Meeting, 0)
	query := `
SELECT id, topic, date, time, duration, email, phone, calendar_event_id, created_at
FROM meetings
ORDER BY position;`
	if err := s.db.SelectContext(ctx, &meetings, query); err != nil {
		return nil, storageErr("load", fmt.Errorf("err selecting meetings: %w", err))
	}
	return meetings, nil
}

// Save replaces every row in one transaction. An empty list is a no-op.
func (s *Store) Save(ctx context.Context, meetings []models.Meeting) error {
	if len(meetings) == 0 {
		s.log.Debug("save of empty list skipped")
		return nil
	}
	defer observe("save", time.Now())
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("save", fmt.Errorf("err starting tx: %w", err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Warnf("err during rollback: %v", rbErr)
			}
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM meetings;`); err != nil {
		return storageErr("save", fmt.Errorf("err clearing meetings: %w", err))
	}
	query := `
INSERT INTO meetings (position, id, topic, date, time, duration, email, phone, calendar_event_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	for i, m := range meetings {
		if _, err = tx.ExecContext(ctx, query, i, m.ID, m.Topic, m.Date, m.Time, m.Duration,
			m.Email, m.Phone, m.CalendarEventID, m.CreatedAt); err != nil {
			return storageErr("save", fmt.Errorf("err inserting meeting %s: %w", m.ID, err))
		}
	}
	if err = tx.Commit(); err != nil {
		return storageErr("save", fmt.Errorf("err committing: %w", err))
	}
	return nil
}

func (s *Store) ResetTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE TABLE meetings`)
	return err
}

func storageErr(method string, err error) error {
	metrics.StoreErrCount.WithLabelValues(backend, method).Inc()
	return fmt.Errorf("%w: %w", models.ErrStorage, err)
}

func observe(method string, started time.Time) {
	metrics.StoreDuration.WithLabelValues(backend, method).Observe(time.Since(started).Seconds())
}
