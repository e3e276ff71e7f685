package nmea

import (
	"testing"
	"time"

	"go.viam.com/test"
)

const (
	ggaFix        = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	ggaPoorHDOP   = "$GPGGA,123520,4807.038,N,01131.000,E,1,05,3.5,545.4,M,46.9,M,,*4F"
	ggaNoFix      = "$GPGGA,123521,4807.038,N,01131.000,E,0,00,,,M,,M,,*59"
	ggaMoved      = "$GPGGA,123523,4807.100,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*44"
	ggaJitter     = "$GPGGA,123524,4807.0381,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*78"
	ggaNullIsland = "$GPGGA,123525,0000.000,N,00000.000,E,1,08,0.9,0.0,M,0.0,M,,*71"
	rmcFix        = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	rmcVoid       = "$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D"
	gllFix        = "$GPGLL,4916.45,N,12311.12,W,225444,A*31"
	gsa           = "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39"
)

func TestParseSentence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("gga", func(t *testing.T) {
		rd, ok, err := parseSentence(ggaFix+"\r\n", DefaultMaxHDOP, now)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, rd.high, test.ShouldBeTrue)
		test.That(t, rd.coord.Latitude, test.ShouldAlmostEqual, 48.1173, 1e-6)
		test.That(t, rd.coord.Longitude, test.ShouldAlmostEqual, 11.516667, 1e-6)
		test.That(t, rd.coord.Altitude, test.ShouldAlmostEqual, 545.4)
		test.That(t, rd.coord.Accuracy, test.ShouldAlmostEqual, 4.5)
		test.That(t, rd.coord.Timestamp, test.ShouldEqual, now)
		test.That(t, rd.qualifies(true), test.ShouldBeTrue)
		test.That(t, rd.qualifies(false), test.ShouldBeTrue)
	})

	t.Run("gga above max hdop", func(t *testing.T) {
		rd, ok, err := parseSentence(ggaPoorHDOP, DefaultMaxHDOP, now)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, rd.high, test.ShouldBeFalse)
		test.That(t, rd.qualifies(true), test.ShouldBeFalse)
		test.That(t, rd.qualifies(false), test.ShouldBeTrue)

		rd, _, err = parseSentence(ggaPoorHDOP, 4, now)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rd.high, test.ShouldBeTrue)
	})

	t.Run("rmc and gll are low accuracy", func(t *testing.T) {
		rd, ok, err := parseSentence(rmcFix, DefaultMaxHDOP, now)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, rd.high, test.ShouldBeFalse)
		test.That(t, rd.coord.Latitude, test.ShouldAlmostEqual, 48.1173, 1e-6)

		rd, ok, err = parseSentence(gllFix, DefaultMaxHDOP, now)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, rd.high, test.ShouldBeFalse)
		test.That(t, rd.coord.Latitude, test.ShouldAlmostEqual, 49.274167, 1e-6)
		test.That(t, rd.coord.Longitude, test.ShouldAlmostEqual, -123.185333, 1e-6)
	})

	t.Run("no position", func(t *testing.T) {
		for _, line := range []string{"", "\r\n", ggaNoFix, ggaNullIsland, rmcVoid, gsa} {
			_, ok, err := parseSentence(line, DefaultMaxHDOP, now)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, ok, test.ShouldBeFalse)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, ok, err := parseSentence("$GPGGA,123519,4807.038,N*00", DefaultMaxHDOP, now)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, ok, test.ShouldBeFalse)
	})
}
