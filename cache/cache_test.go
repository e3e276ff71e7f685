package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.viam.com/test"

	"github.com/geofix/locmgr/location"
)

var (
	fixTime  = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	position = location.CachedPosition{
		Coordinate: location.Coordinate{
			Latitude:  45.0703,
			Longitude: 7.6869,
			Altitude:  239,
			Accuracy:  4.5,
			Timestamp: fixTime,
		},
		CapturedAt: fixTime.Add(200 * time.Millisecond),
	}
	moved = location.CachedPosition{
		Coordinate: location.NewCoordinate(45.0712, 7.6851, fixTime.Add(time.Minute)),
		CapturedAt: fixTime.Add(time.Minute),
	}
)

// exerciseStore checks the behaviour every Store shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldBeNil)

	test.That(t, s.Set(ctx, position), test.ShouldBeNil)
	got, err = s.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldNotBeNil)
	test.That(t, got.Coordinate.Latitude, test.ShouldEqual, position.Coordinate.Latitude)
	test.That(t, got.Coordinate.Longitude, test.ShouldEqual, position.Coordinate.Longitude)
	test.That(t, got.Coordinate.Altitude, test.ShouldEqual, position.Coordinate.Altitude)
	test.That(t, got.Coordinate.Accuracy, test.ShouldEqual, position.Coordinate.Accuracy)
	test.That(t, got.Coordinate.Timestamp.Equal(position.Coordinate.Timestamp), test.ShouldBeTrue)
	test.That(t, got.CapturedAt.Equal(position.CapturedAt), test.ShouldBeTrue)

	test.That(t, s.Set(ctx, moved), test.ShouldBeNil)
	got, err = s.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Coordinate.Latitude, test.ShouldEqual, moved.Coordinate.Latitude)
	test.That(t, got.Coordinate.Altitude, test.ShouldEqual, 0.0)
	test.That(t, got.CapturedAt.Equal(moved.CapturedAt), test.ShouldBeTrue)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)

	// callers get a copy
	got, err := s.Get(context.Background())
	test.That(t, err, test.ShouldBeNil)
	got.Coordinate.Latitude = 0
	again, err := s.Get(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.Coordinate.Latitude, test.ShouldEqual, moved.Coordinate.Latitude)
	test.That(t, s.Close(), test.ShouldBeNil)
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "position.db")

	s, err := OpenSQLite(ctx, path)
	test.That(t, err, test.ShouldBeNil)
	exerciseStore(t, s)
	test.That(t, s.Close(), test.ShouldBeNil)

	// survives a reopen
	s, err = OpenSQLite(ctx, path)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, s.Close(), test.ShouldBeNil)
	}()
	got, err := s.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldNotBeNil)
	test.That(t, got.Coordinate.Latitude, test.ShouldEqual, moved.Coordinate.Latitude)
	test.That(t, got.Coordinate.Timestamp.Equal(moved.Coordinate.Timestamp), test.ShouldBeTrue)

	_, err = OpenSQLite(ctx, "")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedis(client, "")
	exerciseStore(t, s)
	test.That(t, mr.Exists(DefaultRedisKey), test.ShouldBeTrue)

	// not owned, so the client stays usable
	test.That(t, s.Close(), test.ShouldBeNil)
	test.That(t, client.Ping(context.Background()).Err(), test.ShouldBeNil)

	t.Run("corrupt value", func(t *testing.T) {
		test.That(t, mr.Set("broken", "{not json"), test.ShouldBeNil)
		_, err := NewRedis(client, "broken").Get(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "decoding broken")
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, uri := range []string{"", "memory:"} {
		s, err := Open(ctx, uri)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s, test.ShouldHaveSameTypeAs, &memory{})
	}

	s, err := Open(ctx, "sqlite:"+filepath.Join(t.TempDir(), "c.db"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldHaveSameTypeAs, &sqlStore{})
	test.That(t, s.Close(), test.ShouldBeNil)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, "redis://"+mr.Addr()+"/0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Set(ctx, position), test.ShouldBeNil)
	test.That(t, mr.Exists(DefaultRedisKey), test.ShouldBeTrue)
	test.That(t, s.Close(), test.ShouldBeNil)

	_, err = Open(ctx, "postgres://locmgr@127.0.0.1:1/locmgr?sslmode=disable&connect_timeout=1")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "connecting to pgx cache")

	_, err = Open(ctx, "ftp://example.com/cache")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported")
}

func TestUpsertPlaceholders(t *testing.T) {
	pg := postgresDialect.upsertQuery()
	test.That(t, pg, test.ShouldContainSubstring, "VALUES (1, $1, $2, $3, $4, $5, $6)")
	test.That(t, pg, test.ShouldNotContainSubstring, "?")

	lite := sqliteDialect.upsertQuery()
	test.That(t, lite, test.ShouldContainSubstring, "VALUES (1, ?, ?, ?, ?, ?, ?)")
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("LOCMGR_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("LOCMGR_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	s, err := OpenPostgres(ctx, url)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, s.Close(), test.ShouldBeNil)
	}()
	_, err = s.(*sqlStore).db.ExecContext(ctx, "DELETE FROM cached_position")
	test.That(t, err, test.ShouldBeNil)

	exerciseStore(t, s)
}
