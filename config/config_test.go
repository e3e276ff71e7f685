package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/geofix/locmgr/logging"
)

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("LOCMGR_DEVICE", "/dev/ttyACM0")

	path := filepath.Join(t.TempDir(), "locmgr.json")
	test.That(t, os.WriteFile(path, []byte(`{
		"timeout_ms": 15000,
		"max_age_ms": 60000,
		"request_permission": true,
		"cache": "sqlite:/var/lib/locmgr/cache.db",
		"nmea": {"serial_path": "${LOCMGR_DEVICE}", "serial_baud_rate": 4800, "max_hdop": 1.5},
		"log_level": "debug",
		"log_file": "/var/log/locmgr/locate.log"
	}`), 0o600), test.ShouldBeNil)

	cfg, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Timeout(), test.ShouldEqual, 15*time.Second)
	test.That(t, cfg.LowAccuracyTimeout(), test.ShouldEqual, time.Duration(0))
	test.That(t, cfg.MaxAge(), test.ShouldEqual, time.Minute)
	test.That(t, cfg.RequestPermission, test.ShouldBeTrue)
	test.That(t, cfg.OpenSettings, test.ShouldBeFalse)
	test.That(t, cfg.Cache, test.ShouldEqual, "sqlite:/var/lib/locmgr/cache.db")
	test.That(t, cfg.NMEA, test.ShouldNotBeNil)
	test.That(t, cfg.NMEA.SerialPath, test.ShouldEqual, "/dev/ttyACM0")
	test.That(t, cfg.NMEA.SerialBaudRate, test.ShouldEqual, 4800)
	test.That(t, cfg.NMEA.MaxHDOP, test.ShouldEqual, 1.5)
	test.That(t, cfg.Level(), test.ShouldEqual, logging.DEBUG)
	test.That(t, cfg.LogFile, test.ShouldEqual, "/var/log/locmgr/locate.log")

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	for _, tc := range []struct {
		name string
		json string
		msg  string
	}{
		{"bad json", `{"timeout_ms": `, "decode"},
		{"unknown key", `{"timeout": 5}`, "timeout"},
		{"wrong type", `{"cache": 5}`, "cache"},
		{"negative", `{"max_age_ms": -1}`, "max_age_ms"},
		{"cache scheme", `{"cache": "mongodb://localhost"}`, "unsupported cache"},
		{"log level", `{"log_level": "loud"}`, "unknown log level"},
		{"nmea path", `{"nmea": {"serial_baud_rate": 9600}}`, "serial_path"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader("", strings.NewReader(tc.json), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromReader("", strings.NewReader(`{}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Timeout(), test.ShouldEqual, time.Duration(0))
	test.That(t, cfg.MaxAge(), test.ShouldEqual, time.Duration(0))
	test.That(t, cfg.Cache, test.ShouldEqual, "")
	test.That(t, cfg.NMEA, test.ShouldBeNil)
	test.That(t, cfg.Level(), test.ShouldEqual, logging.INFO)
}
