// Package postgres stores delivery entries as rows of a Postgres samples table.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/misc"
	"github.com/vshulcz/Lumectra/internal/ports"
)

const insertSample = `
INSERT INTO samples (ts, host, name, labels, value)
VALUES ($1, $2, $3, $4, $5);`

var retryablePGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                           {},
	pgerrcode.ConnectionDoesNotExist:                        {},
	pgerrcode.ConnectionFailure:                             {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection:       {},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {},
	pgerrcode.ProtocolViolation:                             {},
	pgerrcode.SerializationFailure:                          {},
	pgerrcode.DeadlockDetected:                              {},
	pgerrcode.LockNotAvailable:                              {},
	pgerrcode.TooManyConnections:                            {},
	pgerrcode.AdminShutdown:                                 {},
	pgerrcode.CrashShutdown:                                 {},
	pgerrcode.CannotConnectNow:                              {},
	pgerrcode.QueryCanceled:                                 {},
}

// Sink opens database sessions for the pusher.
type Sink struct {
	dsn     string
	log     *zap.Logger
	open    func(driverName, dsn string) (*sql.DB, error)
	migrate func(context.Context, *sql.DB) error
	now     func() time.Time
}

var _ ports.Sink = (*Sink)(nil)

// Option customizes a Sink.
type Option func(*Sink)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Sink for dsn. No connection is made until Open.
func New(dsn string, opts ...Option) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}
	s := &Sink{
		dsn:     dsn,
		log:     zap.NewNop(),
		open:    sql.Open,
		migrate: Migrate,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Name implements ports.Sink.
func (s *Sink) Name() string { return "postgres" }

// Open connects, verifies the connection and applies migrations.
func (s *Sink) Open(ctx context.Context) (ports.Session, error) {
	db, err := s.open("postgres", s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	op := func() error { return s.migrate(ctx, db) }
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info("database session opened")
	return &session{db: db, now: s.now}, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	op := func() error {
		pctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return db.PingContext(pctx)
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op)
}

type session struct {
	db  *sql.DB
	now func() time.Time
}

type row struct {
	name   string
	labels []byte
	value  float64
}

// Send writes all numeric samples of e in one transaction, attempted once.
// A failed commit may still have been applied, so the pusher decides what happens next.
func (ss *session) Send(ctx context.Context, e domain.Entry) error {
	rows, err := toRows(e.Samples)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	ts := ss.now().UTC()

	tx, err := ss.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, insertSample, ts, e.Host, r.name, r.labels, r.value); err != nil {
			return fmt.Errorf("insert %s: %w", r.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (ss *session) Close() error {
	return ss.db.Close()
}

func toRows(samples []domain.Sample) ([]row, error) {
	rows := make([]row, 0, len(samples))
	for _, smp := range samples {
		v, err := strconv.ParseFloat(smp.Value, 64)
		if err != nil {
			continue
		}
		labels := make(map[string]string, len(smp.Labels))
		for _, l := range smp.Labels {
			labels[l.Key] = l.Value
		}
		b, err := json.Marshal(labels)
		if err != nil {
			return nil, fmt.Errorf("marshal labels: %w", err)
		}
		rows = append(rows, row{name: smp.Name, labels: b, value: v})
	}
	return rows, nil
}

// IsRetryable reports whether the error should trigger a retry according to Postgres semantics.
func IsRetryable(err error) bool {
	return isRetryablePG(err)
}

func isRetryablePG(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return isRetryablePGCode(string(pqe.Code))
	}
	return false
}

func isRetryablePGCode(code string) bool {
	// the outcome of the last commit is unknown; repeating it could apply it twice
	if code == pgerrcode.TransactionResolutionUnknown {
		return false
	}
	if _, ok := retryablePGCodes[code]; ok {
		return true
	}
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "40")
}
