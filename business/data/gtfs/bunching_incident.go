package gtfs

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// BunchingIncident records one detected cluster of vehicles arriving at the same stop
// within a short time window. Rows are immutable after creation.
type BunchingIncident struct {
	RouteId       string
	StopId        string
	DetectedAt    time.Time
	VehicleCount  int
	TimeWindowSec int
	VehicleIds    []string
	WeatherRef    *string
}

// RecordBunchingIncidents saves a batch of incidents
func RecordBunchingIncidents(db *sqlx.DB, incidents []*BunchingIncident) error {
	if len(incidents) == 0 {
		return nil
	}
	statementString := "insert into bunching_incident ( " +
		"route_id, " +
		"stop_id, " +
		"detected_at, " +
		"vehicle_count, " +
		"time_window_sec, " +
		"vehicle_ids, " +
		"weather_ref) " +
		"values (" +
		":route_id, " +
		":stop_id, " +
		":detected_at, " +
		":vehicle_count, " +
		":time_window_sec, " +
		":vehicle_ids, " +
		":weather_ref)"
	statementString = db.Rebind(statementString)
	for _, incident := range incidents {
		_, err := db.NamedExec(statementString, map[string]interface{}{
			"route_id":        incident.RouteId,
			"stop_id":         incident.StopId,
			"detected_at":     incident.DetectedAt,
			"vehicle_count":   incident.VehicleCount,
			"time_window_sec": incident.TimeWindowSec,
			"vehicle_ids":     strings.Join(incident.VehicleIds, ","),
			"weather_ref":     incident.WeatherRef,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// BunchingIncidentStore adapts incident persistence to the interface the bunching
// detector consumes
type BunchingIncidentStore struct {
	db *sqlx.DB
}

// NewBunchingIncidentStore builds a BunchingIncidentStore
func NewBunchingIncidentStore(db *sqlx.DB) *BunchingIncidentStore {
	return &BunchingIncidentStore{db: db}
}

// DeleteForDate clears a day's incidents ahead of a re-run
func (b *BunchingIncidentStore) DeleteForDate(day time.Time) (int64, error) {
	return DeleteBunchingIncidentsForDate(b.db, day)
}

// Record saves a batch of incidents
func (b *BunchingIncidentStore) Record(incidents []*BunchingIncident) error {
	return RecordBunchingIncidents(b.db, incidents)
}

// DeleteBunchingIncidentsForDate removes all incidents detected on the calendar day
// containing "day", returning the number of rows removed. Running detection for a date
// deletes and reinserts so re-runs replace rather than duplicate incidents.
func DeleteBunchingIncidentsForDate(db *sqlx.DB, day time.Time) (int64, error) {
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	result, err := db.Exec(db.Rebind("delete from bunching_incident where detected_at >= $1 and detected_at < $2"),
		startOfDay, endOfDay)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
