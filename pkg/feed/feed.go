// Package feed decodes the upstream flight feed format: a JSON object mapping
// opaque record keys to positional arrays of flight fields, mixed with scalar
// metadata entries (full_count, version).
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Unknown is the sentinel for string fields absent from a feed record.
const Unknown = "Unknown"

// Positional field indices within an upstream record array. Any index not
// listed here is ignored.
const (
	idxCallsign    = 0
	idxLatitude    = 1
	idxLongitude   = 2
	idxHeading     = 3
	idxAltitude    = 4
	idxSpeed       = 5
	idxAirline     = 8
	idxAircraft    = 9
	idxOrigin      = 11
	idxDestination = 12
	idxStatus      = 14
)

// Flight is one observed aircraft at one point in time. Flights are built
// fresh on every poll and never mutated; the next poll supersedes the whole
// set.
//
// Altitude and Speed carry the feed's raw numeric values. The upstream unit
// labels are ambiguous, so no conversion is applied.
type Flight struct {
	// ID is the feed's own record key, stable for the lifetime of one response.
	ID string

	// Callsign is the display identifier, "Unknown" when absent.
	Callsign string

	// Latitude and Longitude in decimal degrees; zero when the record is
	// incomplete.
	Latitude  float64
	Longitude float64

	// Heading in degrees 0-360 clockwise from north, used for marker rotation.
	Heading float64

	Altitude float64
	Speed    float64

	Aircraft    string
	Airline     string
	Origin      string
	Destination string
	Status      string
}

// HasPosition reports whether the record carried usable coordinates.
func (f Flight) HasPosition() bool {
	return f.Latitude != 0 || f.Longitude != 0
}

// Position returns the flight's coordinates as (lat, lon).
func (f Flight) Position() (float64, float64) {
	return f.Latitude, f.Longitude
}

type valueKind int

const (
	// kindMetadata covers scalar entries like full_count and version, and any
	// value that is not a positional array.
	kindMetadata valueKind = iota

	// kindRecord is a positional flight record.
	kindRecord
)

// value is the discriminated union of the two shapes the feed mixes into one
// object. Decoding never fails: a value that cannot be read as a record is
// classified as metadata, and a malformed record decodes to an empty field
// list so defaults substitute field by field. One bad record must not abort
// the batch.
type value struct {
	kind   valueKind
	fields []any
}

func (v *value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		v.kind = kindMetadata
		return nil
	}

	v.kind = kindRecord
	if err := json.Unmarshal(trimmed, &v.fields); err != nil {
		v.fields = nil
	}
	return nil
}

// Decode converts an upstream feed response into flight entities, one per
// array-valued key. Metadata keys produce no entities. Field defaults are
// substituted independently: absent or null strings become "Unknown", absent
// or null numbers become 0, so the entity count always equals the record
// count.
//
// The result is sorted by ID to make output deterministic across polls.
func Decode(data []byte) ([]Flight, error) {
	var raw map[string]value
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}

	flights := make([]Flight, 0, len(raw))
	for key, v := range raw {
		if key == "full_count" || key == "version" {
			continue
		}
		if v.kind != kindRecord {
			continue
		}
		flights = append(flights, decodeRecord(key, v.fields))
	}

	sort.Slice(flights, func(i, j int) bool { return flights[i].ID < flights[j].ID })

	return flights, nil
}

// decodeRecord builds a Flight from a positional field array.
func decodeRecord(key string, fields []any) Flight {
	return Flight{
		ID:          key,
		Callsign:    stringAt(fields, idxCallsign),
		Latitude:    floatAt(fields, idxLatitude),
		Longitude:   floatAt(fields, idxLongitude),
		Heading:     floatAt(fields, idxHeading),
		Altitude:    floatAt(fields, idxAltitude),
		Speed:       floatAt(fields, idxSpeed),
		Airline:     stringAt(fields, idxAirline),
		Aircraft:    stringAt(fields, idxAircraft),
		Origin:      stringAt(fields, idxOrigin),
		Destination: stringAt(fields, idxDestination),
		Status:      stringAt(fields, idxStatus),
	}
}

// stringAt extracts a string field, substituting Unknown for missing slots,
// nulls, wrong types, and empty strings.
func stringAt(fields []any, idx int) string {
	if idx >= len(fields) {
		return Unknown
	}
	s, ok := fields[idx].(string)
	if !ok || s == "" {
		return Unknown
	}
	return s
}

// floatAt extracts a numeric field, substituting 0 for missing slots, nulls,
// and wrong types.
func floatAt(fields []any, idx int) float64 {
	if idx >= len(fields) {
		return 0
	}
	f, ok := fields[idx].(float64)
	if !ok {
		return 0
	}
	return f
}
