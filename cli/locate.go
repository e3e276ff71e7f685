package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/geofix/locmgr/acquisition"
	"github.com/geofix/locmgr/cache"
	"github.com/geofix/locmgr/config"
	"github.com/geofix/locmgr/location"
	"github.com/geofix/locmgr/logging"
	"github.com/geofix/locmgr/manager"
	"github.com/geofix/locmgr/permission"
	"github.com/geofix/locmgr/positioning"
	"github.com/geofix/locmgr/positioning/fake"
	"github.com/geofix/locmgr/settings"
)

const logFileMaxSizeMB = 16

// simulatedFix is what the --fake receiver reports.
var simulatedFix = location.Coordinate{Latitude: 45.0703, Longitude: 7.6869, Accuracy: 5}

func loadEnvFile(c *cli.Context) error {
	path := c.String(flagEnvFile)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "loading %s", path)
	}
	return nil
}

func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("locate")
	}
	return logging.NewLogger("locate")
}

// FixAction prints the current position and where it came from.
func FixAction(c *cli.Context) error {
	logger := newLogger(c)

	cfg := &config.Config{}
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return err
		}
		if !c.Bool(flagDebug) {
			logger.SetLevel(cfg.Level())
		}
		if cfg.LogFile != "" {
			file := logging.NewFileAppender(cfg.LogFile, logFileMaxSizeMB)
			logger.AddAppender(file)
			defer func() {
				if err := file.Close(); err != nil {
					printf(c.App.ErrWriter, "can't close %s: %s", cfg.LogFile, err)
				}
			}()
		}
	}

	m, closeAll, err := newManager(c.Context, cfg, c.Bool(flagFake), logger)
	if err != nil {
		return err
	}
	fix, err := m.LocateFix(c.Context)
	if closeErr := closeAll(); closeErr != nil {
		logger.Warnw("error closing", "error", closeErr)
	}
	if err != nil {
		return err
	}

	printf(c.App.Writer, "%s (%s)", fix.Coordinate.String(), fix.Source)
	return nil
}

func newManager(
	ctx context.Context,
	cfg *config.Config,
	simulated bool,
	logger logging.Logger,
) (*manager.Manager, func() error, error) {
	store, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	var (
		p        positioning.Positioner
		perm     permission.Oracle
		set      settings.Oracle
		closeSrc = func() error { return nil }
	)
	switch {
	case simulated:
		p = fake.NewScripted(clock.New(), &fake.Outcome{Coordinate: simulatedFix}, &fake.Outcome{Coordinate: simulatedFix})
		perm = permission.NewStatic(permission.StatusAuthorized, permission.StatusAuthorized)
		set = settings.NewStatic(settings.StateEnabled, settings.StateEnabled)
	case cfg.NMEA != nil:
		perm = &permission.Device{Path: cfg.NMEA.SerialPath}
		set = &settings.DevicePresent{Path: cfg.NMEA.SerialPath}
		// the receiver is opened lazily so permission and settings are checked first
		lazy := &lazySource{cfg: cfg.NMEA, logger: logger.Sublogger("nmea")}
		p, closeSrc = lazy, lazy.Close
	default:
		return nil, nil, multierr.Combine(errors.New("no nmea receiver configured, use --fake to simulate one"), store.Close())
	}

	acq := acquisition.NewAcquirer(p, logger.Sublogger("acquisition"),
		acquisition.WithLowAccuracyTimeout(cfg.LowAccuracyTimeout()))
	m := manager.New(acq, perm, set, store, logger.Sublogger("manager"), manager.Config{
		MaxAge:              cfg.MaxAge(),
		HighAccuracyTimeout: cfg.Timeout(),
		RequestPermission:   cfg.RequestPermission,
		OpenSettings:        cfg.OpenSettings,
		OnPermissionDenied: func(s permission.Status) {
			logger.Errorw("no permission to read the receiver", "status", s.String())
		},
	})
	return m, func() error { return multierr.Combine(closeSrc(), store.Close()) }, nil
}

// DistanceAction prints the distance between two coordinates.
func DistanceAction(c *cli.Context) error {
	if c.Args().Len() != 4 {
		return errors.New("expected 4 arguments: lat1 lon1 lat2 lon2")
	}
	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(c.Args().Get(i), 64)
		if err != nil {
			return errors.Wrapf(err, "argument %d", i+1)
		}
		vals[i] = v
	}
	printf(c.App.Writer, "%.3f", location.Distance(vals[0], vals[1], vals[2], vals[3]))
	return nil
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
