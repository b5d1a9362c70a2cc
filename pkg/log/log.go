// Package log is the process-wide zerolog logger. Events are stored as JSON rows
// in an SQLite database under the app dir so past runs can be queried with
// `axine logs`; extra writers (usually the console) receive the same events.
package log

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"sync"
	"sync/atomic"
	"time"

	"axine-go/pkg/appdir"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var (
	writesSinceInit atomic.Int64
	pkgLogger       = zerolog.Nop()
	sink            *dbSink
	dbHandle        *sql.DB
	// mu guards sink, dbHandle and pkgLogger across Init/Close.
	mu sync.RWMutex
	// Fixed width and always UTC so stored times compare correctly as strings.
	timeFieldFormat = "2006-01-02T15:04:05.000000Z07:00"

	ErrNotInitialized = errors.New("log: logger not initialized, call log.Init() first")
)

// dbSink is an io.Writer inserting every zerolog event as one row.
type dbSink struct {
	db   *sql.DB
	stmt *sql.Stmt
	mu   sync.Mutex
}

func openSink(dbPath string) (*dbSink, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode=wal&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db %s: %w", dbPath, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db %s: %w", dbPath, err)
	}

	_, err = db.Exec(`
    CREATE TABLE IF NOT EXISTS logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        inserted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL,
        log_data TEXT NOT NULL
    );`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create logs table: %w", err)
	}
	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_logs_json_time ON logs (json_extract(log_data, '$.time'));`,
		`CREATE INDEX IF NOT EXISTS idx_logs_json_level ON logs (json_extract(log_data, '$.level'));`,
	} {
		if _, err := db.Exec(idx); err != nil {
			stdlog.Printf("Warning: failed to create log index: %v", err)
		}
	}

	stmt, err := db.Prepare(`INSERT INTO logs (log_data) VALUES (?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	return &dbSink{db: db, stmt: stmt}, nil
}

func (w *dbSink) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err = w.stmt.Exec(string(p)); err != nil {
		stdlog.Printf("ERROR writing log to SQLite: %v", err)
		return 0, err
	}
	writesSinceInit.Add(1)
	return len(p), nil
}

func (w *dbSink) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	if w.stmt != nil {
		errs = append(errs, w.stmt.Close())
		w.stmt = nil
	}
	if w.db != nil {
		errs = append(errs, w.db.Close())
		w.db = nil
	}
	return errors.Join(errs...)
}

// SetOutput logs to w only, without a database. Init replaces it.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	pkgLogger = zerolog.New(w).With().Timestamp().Logger()
}

// ConsoleWriter formats events for a terminal.
func ConsoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// Init opens the log database (relative names resolve under the app dir) and
// routes all events to it and to the extra writers.
func Init(dbFile string, extra ...io.Writer) error {
	if dbFile == "" {
		return fmt.Errorf("logger need an explicit dbFile")
	}
	dbPath, err := appdir.Path(dbFile)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if sink != nil {
		return fmt.Errorf("logger already initialized")
	}

	s, err := openSink(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite writer: %w", err)
	}
	sink = s
	dbHandle = s.db
	writesSinceInit.Store(0)

	writers := append([]io.Writer{s}, extra...)
	zerolog.TimeFieldFormat = timeFieldFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	pkgLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return nil
}

// Close flushes and closes the database and turns the logger into a no-op.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	pkgLogger = zerolog.Nop()
	if sink == nil {
		return nil
	}
	s := sink
	sink = nil
	dbHandle = nil

	if err := s.close(); err != nil {
		return fmt.Errorf("error closing SQLite logger: %w", err)
	}
	return nil
}

// SetLevel sets the global minimum level.
func SetLevel(l zerolog.Level) { zerolog.SetGlobalLevel(l) }

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := pkgLogger
	return &l
}

func Debug() *zerolog.Event { return current().Debug() }
func Info() *zerolog.Event  { return current().Info() }
func Warn() *zerolog.Event  { return current().Warn() }
func Error() *zerolog.Event { return current().Error() }

// Printf sends an info event with no extra field.
// Arguments are handled in the manner of fmt.Printf.
func Printf(format string, v ...interface{}) {
	current().Info().CallerSkipFrame(1).Msgf(format, v...)
}
