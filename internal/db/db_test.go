package db

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"plantcare/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows drives the scan helpers without a live connection. pgx surfaces a
// mid-iteration connection failure only through Err after Next returns false,
// so the fake mimics that shape.
type fakeRows struct {
	rows   [][]any
	idx    int
	err    error
	closed bool
}

func (f *fakeRows) Close()                                       { f.closed = true }
func (f *fakeRows) Err() error                                   { return f.err }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Next() bool {
	if f.idx < len(f.rows) {
		f.idx++
		return true
	}
	return false
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.idx-1]
	for i := range dest {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func TestScanSensors(t *testing.T) {
	rows := &fakeRows{rows: [][]any{
		{"sen-soil", "dev-1", models.SensorSoilMoisture, "%"},
		{"sen-temp", "dev-1", models.SensorAirTemperature, "C"},
	}}

	sensors, err := scanSensors(rows)
	if err != nil {
		t.Fatalf("scanSensors: %v", err)
	}
	if len(sensors) != 2 {
		t.Fatalf("got %d sensors, want 2", len(sensors))
	}
	if sensors[0].ID != "sen-soil" || sensors[0].Type != models.SensorSoilMoisture {
		t.Errorf("first sensor = %+v", sensors[0])
	}
	if !rows.closed {
		t.Error("rows were not closed")
	}
}

func TestScanSensorsSurfacesIterationError(t *testing.T) {
	// A connection failure mid-iteration must come back as an error, not
	// as a silently truncated sensor list.
	rows := &fakeRows{
		rows: [][]any{{"sen-soil", "dev-1", models.SensorSoilMoisture, "%"}},
		err:  errors.New("connection reset"),
	}

	if _, err := scanSensors(rows); err == nil {
		t.Fatal("expected iteration error to surface")
	}
}

func TestScanActuators(t *testing.T) {
	lastAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	rows := &fakeRows{rows: [][]any{
		{"act-pump", "dev-1", models.ActuatorPump, "off", (*time.Time)(nil), lastAt.Add(-time.Hour)},
		{"act-lamp", "dev-1", models.ActuatorLamp, "on", &lastAt, lastAt.Add(-time.Hour)},
	}}

	actuators, err := scanActuators(rows)
	if err != nil {
		t.Fatalf("scanActuators: %v", err)
	}
	if len(actuators) != 2 {
		t.Fatalf("got %d actuators, want 2", len(actuators))
	}
	if actuators[0].LastCommandAt != nil {
		t.Errorf("pump LastCommandAt = %v, want nil", actuators[0].LastCommandAt)
	}
	if actuators[1].LastCommandAt == nil || !actuators[1].LastCommandAt.Equal(lastAt) {
		t.Errorf("lamp LastCommandAt = %v, want %v", actuators[1].LastCommandAt, lastAt)
	}
	if !rows.closed {
		t.Error("rows were not closed")
	}
}

func TestScanActuatorsSurfacesIterationError(t *testing.T) {
	rows := &fakeRows{
		rows: [][]any{{"act-pump", "dev-1", models.ActuatorPump, "off", (*time.Time)(nil), time.Now()}},
		err:  errors.New("connection reset"),
	}

	if _, err := scanActuators(rows); err == nil {
		t.Fatal("expected iteration error to surface")
	}
}

type fakeRow struct {
	createdAt time.Time
	err       error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*time.Time)) = r.createdAt
	return nil
}

func TestScanConditionalInsert(t *testing.T) {
	serverNow := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("created", func(t *testing.T) {
		var createdAt time.Time
		created, err := scanConditionalInsert(fakeRow{createdAt: serverNow}, &createdAt)
		if err != nil {
			t.Fatalf("scanConditionalInsert: %v", err)
		}
		if !created {
			t.Error("created = false, want true")
		}
		if !createdAt.Equal(serverNow) {
			t.Errorf("createdAt = %v, want server-side %v", createdAt, serverNow)
		}
	})

	t.Run("suppressed leaves timestamp zero", func(t *testing.T) {
		var createdAt time.Time
		created, err := scanConditionalInsert(fakeRow{err: pgx.ErrNoRows}, &createdAt)
		if err != nil {
			t.Fatalf("scanConditionalInsert: %v", err)
		}
		if created {
			t.Error("created = true, want false")
		}
		if !createdAt.IsZero() {
			t.Errorf("createdAt = %v, want zero for a suppressed insert", createdAt)
		}
	})

	t.Run("infra error", func(t *testing.T) {
		var createdAt time.Time
		if _, err := scanConditionalInsert(fakeRow{err: errors.New("connection reset")}, &createdAt); err == nil {
			t.Fatal("expected error to propagate")
		}
	})
}
