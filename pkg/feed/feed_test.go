package feed

import "testing"

// TestDecode tests decoding a realistic feed response mixing metadata and
// positional records.
func TestDecode(t *testing.T) {
	data := []byte(`{
		"full_count": 5,
		"version": 1,
		"abc123": ["UAL123", 51.5, -0.1, 90, 10000, 250, null, null, "United", "B738", null, "JFK", "LHR", null, "Scheduled"]
	}`)

	flights, err := Decode(data)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(flights) != 1 {
		t.Fatalf("Expected 1 flight, got %d", len(flights))
	}

	f := flights[0]
	if f.ID != "abc123" {
		t.Errorf("ID = %q, want %q", f.ID, "abc123")
	}
	if f.Callsign != "UAL123" {
		t.Errorf("Callsign = %q, want %q", f.Callsign, "UAL123")
	}
	if f.Latitude != 51.5 {
		t.Errorf("Latitude = %f, want 51.5", f.Latitude)
	}
	if f.Longitude != -0.1 {
		t.Errorf("Longitude = %f, want -0.1", f.Longitude)
	}
	if f.Heading != 90 {
		t.Errorf("Heading = %f, want 90", f.Heading)
	}
	if f.Altitude != 10000 {
		t.Errorf("Altitude = %f, want 10000", f.Altitude)
	}
	if f.Speed != 250 {
		t.Errorf("Speed = %f, want 250", f.Speed)
	}
	if f.Airline != "United" {
		t.Errorf("Airline = %q, want %q", f.Airline, "United")
	}
	if f.Aircraft != "B738" {
		t.Errorf("Aircraft = %q, want %q", f.Aircraft, "B738")
	}
	if f.Origin != "JFK" {
		t.Errorf("Origin = %q, want %q", f.Origin, "JFK")
	}
	if f.Destination != "LHR" {
		t.Errorf("Destination = %q, want %q", f.Destination, "LHR")
	}
	if f.Status != "Scheduled" {
		t.Errorf("Status = %q, want %q", f.Status, "Scheduled")
	}
}

// TestDecodeMetadataKeys tests that scalar metadata entries produce no
// entities even when the key is not one of the well-known names.
func TestDecodeMetadataKeys(t *testing.T) {
	data := []byte(`{"full_count": 5, "version": 1, "stats": {"total": 5}}`)

	flights, err := Decode(data)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(flights) != 0 {
		t.Errorf("Expected 0 flights, got %d", len(flights))
	}
}

// TestDecodeDefaults tests per-field default substitution.
func TestDecodeDefaults(t *testing.T) {
	t.Run("Null callsign becomes Unknown", func(t *testing.T) {
		data := []byte(`{"x1": [null, 51.5, -0.1, 90, 10000, 250]}`)

		flights, err := Decode(data)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(flights) != 1 {
			t.Fatalf("Expected 1 flight, got %d", len(flights))
		}
		if flights[0].Callsign != Unknown {
			t.Errorf("Callsign = %q, want %q", flights[0].Callsign, Unknown)
		}
	})

	t.Run("Null numeric becomes zero", func(t *testing.T) {
		data := []byte(`{"x1": ["BAW9", null, null, null, null, null]}`)

		flights, err := Decode(data)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		f := flights[0]
		if f.Latitude != 0 || f.Longitude != 0 || f.Heading != 0 || f.Altitude != 0 || f.Speed != 0 {
			t.Errorf("Expected zero numerics, got %+v", f)
		}
		if f.HasPosition() {
			t.Error("Expected HasPosition to be false for zeroed coordinates")
		}
	})

	t.Run("Short array defaults trailing fields", func(t *testing.T) {
		data := []byte(`{"x1": ["DLH400", 50.0, 8.5]}`)

		flights, err := Decode(data)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		f := flights[0]
		if f.Airline != Unknown || f.Aircraft != Unknown || f.Origin != Unknown ||
			f.Destination != Unknown || f.Status != Unknown {
			t.Errorf("Expected Unknown for trailing strings, got %+v", f)
		}
		if !f.HasPosition() {
			t.Error("Expected HasPosition to be true")
		}
	})

	t.Run("Empty string becomes Unknown", func(t *testing.T) {
		data := []byte(`{"x1": ["", 50.0, 8.5]}`)

		flights, _ := Decode(data)
		if flights[0].Callsign != Unknown {
			t.Errorf("Callsign = %q, want %q", flights[0].Callsign, Unknown)
		}
	})
}

// TestDecodeMalformedRecord tests that one unreadable record does not abort
// the batch: it decodes with defaults and the entity count still matches the
// record count.
func TestDecodeMalformedRecord(t *testing.T) {
	data := []byte(`{
		"good": ["UAL123", 51.5, -0.1, 90, 10000, 250],
		"weird": [{"nested": true}, "not-a-number", [1,2]],
		"meta": "some-string"
	}`)

	flights, err := Decode(data)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(flights) != 2 {
		t.Fatalf("Expected 2 flights (one per array record), got %d", len(flights))
	}

	// Sorted by ID: "good" then "weird".
	if flights[0].ID != "good" || flights[1].ID != "weird" {
		t.Fatalf("Unexpected IDs: %q, %q", flights[0].ID, flights[1].ID)
	}
	weird := flights[1]
	if weird.Callsign != Unknown {
		t.Errorf("Callsign = %q, want %q", weird.Callsign, Unknown)
	}
	if weird.Latitude != 0 {
		t.Errorf("Latitude = %f, want 0", weird.Latitude)
	}
}

// TestDecodeInvalidDocument tests that an unparseable document is the only
// fatal decode condition.
func TestDecodeInvalidDocument(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("Expected error for invalid JSON document")
	}
	if _, err := Decode([]byte(`[1, 2, 3]`)); err == nil {
		t.Error("Expected error for non-object document")
	}
}

// TestDecodeDeterministicOrder tests that output ordering is stable by ID.
func TestDecodeDeterministicOrder(t *testing.T) {
	data := []byte(`{
		"c3": ["THY3", 41.0, 29.0],
		"a1": ["THY1", 41.0, 29.0],
		"b2": ["THY2", 41.0, 29.0]
	}`)

	flights, err := Decode(data)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	want := []string{"a1", "b2", "c3"}
	for i, id := range want {
		if flights[i].ID != id {
			t.Errorf("Flight %d ID = %q, want %q", i, flights[i].ID, id)
		}
	}
}
