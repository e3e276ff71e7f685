package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	// registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/geofix/locmgr/location"
	"github.com/geofix/locmgr/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS cached_position (
	id          INTEGER PRIMARY KEY,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	altitude    DOUBLE PRECISION NOT NULL,
	accuracy    DOUBLE PRECISION NOT NULL,
	fix_time    BIGINT NOT NULL,
	captured_at BIGINT NOT NULL
)`

// dialect covers the little that differs between the SQL backends.
type dialect struct {
	driver string
	// param returns the placeholder for the i-th (1-based) argument.
	param func(i int) string
}

var (
	sqliteDialect   = dialect{driver: "sqlite", param: func(int) string { return "?" }}
	postgresDialect = dialect{driver: "pgx", param: func(i int) string { return fmt.Sprintf("$%d", i) }}
)

type sqlStore struct {
	db      *sql.DB
	selectQ string
	upsertQ string
}

// OpenSQLite opens (creating if needed) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (Store, error) {
	if path == "" {
		return nil, errors.New("sqlite cache path is empty")
	}
	return openSQL(ctx, sqliteDialect, path)
}

// OpenPostgres connects to the PostgreSQL database at url.
func OpenPostgres(ctx context.Context, url string) (Store, error) {
	return openSQL(ctx, postgresDialect, url)
}

func openSQL(ctx context.Context, d dialect, dsn string) (Store, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s cache", d.driver)
	}
	guard := utils.NewGuard(func() { db.Close() })
	defer guard.OnFail()

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "connecting to %s cache", d.driver)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Wrap(err, "creating cached_position table")
	}

	s := &sqlStore{
		db: db,
		selectQ: `SELECT latitude, longitude, altitude, accuracy, fix_time, captured_at
			FROM cached_position WHERE id = 1`,
		upsertQ: d.upsertQuery(),
	}
	guard.Success()
	return s, nil
}

func (d dialect) upsertQuery() string {
	p := d.param
	return fmt.Sprintf(`INSERT INTO cached_position
		(id, latitude, longitude, altitude, accuracy, fix_time, captured_at)
		VALUES (1, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			altitude = excluded.altitude,
			accuracy = excluded.accuracy,
			fix_time = excluded.fix_time,
			captured_at = excluded.captured_at`,
		p(1), p(2), p(3), p(4), p(5), p(6))
}

func (s *sqlStore) Get(ctx context.Context) (*location.CachedPosition, error) {
	var (
		c                   location.Coordinate
		fixTime, capturedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.selectQ).
		Scan(&c.Latitude, &c.Longitude, &c.Altitude, &c.Accuracy, &fixTime, &capturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading cached position")
	}
	c.Timestamp = fromUnixNano(fixTime)
	return &location.CachedPosition{Coordinate: c, CapturedAt: fromUnixNano(capturedAt)}, nil
}

func (s *sqlStore) Set(ctx context.Context, p location.CachedPosition) error {
	c := p.Coordinate
	_, err := s.db.ExecContext(ctx, s.upsertQ,
		c.Latitude, c.Longitude, c.Altitude, c.Accuracy, toUnixNano(c.Timestamp), toUnixNano(p.CapturedAt))
	return errors.Wrap(err, "writing cached position")
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// zero times are stored as 0 since UnixNano is undefined for them.
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
