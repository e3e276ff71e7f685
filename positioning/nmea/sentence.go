package nmea

import (
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/pkg/errors"

	"github.com/geofix/locmgr/location"
)

// userEquivalentRangeError converts HDOP into an approximate horizontal error in meters.
const userEquivalentRangeError = 5.0

// reading is one position carried by an NMEA sentence.
type reading struct {
	coord location.Coordinate
	// high is set when the fix quality and HDOP are good enough for a high accuracy request.
	high bool
}

func (r reading) qualifies(highAccuracy bool) bool {
	return r.high || !highAccuracy
}

// highAccuracyQualities are the GGA fix qualities backed by satellites, as opposed to invalid,
// dead reckoning, manual input or simulation.
var highAccuracyQualities = map[string]bool{
	nmea.GPS:  true,
	nmea.DGPS: true,
	nmea.PPS:  true,
	nmea.RTK:  true,
	nmea.FRTK: true,
}

// parseSentence parses a single NMEA line. It returns ok=false for sentences that carry no
// usable position, such as satellite lists or a receiver that has not acquired a fix yet.
func parseSentence(line string, maxHDOP float64, now time.Time) (reading, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return reading{}, false, nil
	}
	s, err := nmea.Parse(line)
	if err != nil {
		return reading{}, false, errors.Wrapf(err, "parsing %q", line)
	}

	switch sentence := s.(type) {
	case nmea.GGA:
		if sentence.FixQuality == nmea.Invalid {
			return reading{}, false, nil
		}
		coord := location.Coordinate{
			Latitude:  sentence.Latitude,
			Longitude: sentence.Longitude,
			Altitude:  sentence.Altitude,
			Timestamp: now,
		}
		if sentence.HDOP > 0 {
			coord.Accuracy = sentence.HDOP * userEquivalentRangeError
		}
		high := highAccuracyQualities[sentence.FixQuality] && sentence.HDOP > 0 && sentence.HDOP <= maxHDOP
		return usable(coord, high)
	case nmea.RMC:
		if sentence.Validity != nmea.ValidRMC {
			return reading{}, false, nil
		}
		return usable(location.NewCoordinate(sentence.Latitude, sentence.Longitude, now), false)
	case nmea.GLL:
		if sentence.Validity != nmea.ValidGLL {
			return reading{}, false, nil
		}
		return usable(location.NewCoordinate(sentence.Latitude, sentence.Longitude, now), false)
	default:
		return reading{}, false, nil
	}
}

func usable(coord location.Coordinate, high bool) (reading, bool, error) {
	// receivers report 0,0 until they get their first fix
	if coord.IsZero() || !coord.Valid() {
		return reading{}, false, nil
	}
	return reading{coord: coord, high: high}, true, nil
}
