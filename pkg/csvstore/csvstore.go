package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pershin-daniil/MeetingScheduler/pkg/metrics"
	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	"github.com/sirupsen/logrus"
)

const backend = "csv"

// Columns is the header written on every save, in order.
var Columns = []string{
	"id", "topic", "date", "time", "duration", "email", "phone", "calendar_event_id", "created_at",
}

// Store keeps the whole meeting list in one header-driven CSV file.
type Store struct {
	log  *logrus.Entry
	path string
}

func New(log *logrus.Logger, path string) *Store {
	return &Store{
		log:  log.WithField("component", "csvstore"),
		path: path,
	}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns every row in file order. A missing file is an empty list.
func (s *Store) Load(_ context.Context) ([]models.Meeting, error) {
	defer observe("load", time.Now())
	f, err := os.Open(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return []models.Meeting{}, nil
	case err != nil:
		return nil, storageErr("load", fmt.Errorf("err opening %s: %w", s.path, err))
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warnf("err during closing %s: %v", s.path, err)
		}
	}()
	meetings, err := decode(f)
	if err != nil {
		return nil, storageErr("load", fmt.Errorf("err reading %s: %w", s.path, err))
	}
	return meetings, nil
}

// Save rewrites the whole file. An empty list leaves the file untouched.
func (s *Store) Save(_ context.Context, meetings []models.Meeting) error {
	if len(meetings) == 0 {
		s.log.Debug("save of empty list skipped")
		return nil
	}
	defer observe("save", time.Now())
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageErr("save", fmt.Errorf("err creating %s: %w", dir, err))
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return storageErr("save", fmt.Errorf("err creating temp file: %w", err))
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if err = encode(tmp, meetings); err != nil {
		_ = tmp.Close()
		return storageErr("save", fmt.Errorf("err writing %s: %w", tmp.Name(), err))
	}
	if err = tmp.Close(); err != nil {
		return storageErr("save", fmt.Errorf("err closing %s: %w", tmp.Name(), err))
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return storageErr("save", fmt.Errorf("err replacing %s: %w", s.path, err))
	}
	return nil
}

func decode(r io.Reader) ([]models.Meeting, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []models.Meeting{}, nil
	}
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	meetings := make([]models.Meeting, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(name string) (string, bool) {
			i, ok := index[name]
			if !ok {
				return "", false
			}
			return row[i], true
		}
		m, err := parseRow(field)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}

func parseRow(field func(string) (string, bool)) (models.Meeting, error) {
	var m models.Meeting
	m.ID, _ = field("id")
	m.Topic, _ = field("topic")
	m.Date, _ = field("date")
	m.Time, _ = field("time")
	m.Email, _ = field("email")
	m.Phone, _ = field("phone")
	m.CalendarEventID, _ = field("calendar_event_id")

	m.Duration = models.DefaultDuration
	if raw, ok := field("duration"); ok {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return models.Meeting{}, fmt.Errorf("bad duration %q: %w", raw, err)
		}
		m.Duration = d
	}
	if raw, ok := field("created_at"); ok && raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return models.Meeting{}, fmt.Errorf("bad created_at %q: %w", raw, err)
		}
		m.CreatedAt = t
	}
	return m, nil
}

func encode(w io.Writer, meetings []models.Meeting) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, m := range meetings {
		createdAt := ""
		if !m.CreatedAt.IsZero() {
			createdAt = m.CreatedAt.Format(time.RFC3339Nano)
		}
		row := []string{
			m.ID, m.Topic, m.Date, m.Time, strconv.Itoa(m.Duration),
			m.Email, m.Phone, m.CalendarEventID, createdAt,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func storageErr(method string, err error) error {
	metrics.StoreErrCount.WithLabelValues(backend, method).Inc()
	return fmt.Errorf("%w: %w", models.ErrStorage, err)
}

func observe(method string, started time.Time) {
	metrics.StoreDuration.WithLabelValues(backend, method).Observe(time.Since(started).Seconds())
}
