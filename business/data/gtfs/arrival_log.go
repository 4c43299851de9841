package gtfs

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samuelwilk/mindthewait/foundation/database"
)

// ArrivalLog is one logged arrival prediction, kept for historical analysis.
// Rows are append only; retention is handled by DeleteArrivalLogsOlderThan.
type ArrivalLog struct {
	Id                 int64      `db:"id" json:"id"`
	VehicleId          string     `db:"vehicle_id" json:"vehicle_id"`
	RouteId            string     `db:"route_id" json:"route_id"`
	TripId             string     `db:"trip_id" json:"trip_id"`
	StopId             string     `db:"stop_id" json:"stop_id"`
	PredictedArrivalAt time.Time  `db:"predicted_arrival_at" json:"predicted_arrival_at"`
	ScheduledArrivalAt *time.Time `db:"scheduled_arrival_at" json:"scheduled_arrival_at"`
	DelaySec           *int       `db:"delay_sec" json:"delay_sec"`
	Confidence         string     `db:"confidence" json:"confidence"`
	StopsAway          *int       `db:"stops_away" json:"stops_away"`
	PredictedAt        time.Time  `db:"predicted_at" json:"predicted_at"`
}

// RecordArrivalLog saves one arrival log row
func RecordArrivalLog(db *sqlx.DB, arrivalLog *ArrivalLog) error {
	statementString := "insert into arrival_log ( " +
		"vehicle_id, " +
		"route_id, " +
		"trip_id, " +
		"stop_id, " +
		"predicted_arrival_at, " +
		"scheduled_arrival_at, " +
		"delay_sec, " +
		"confidence, " +
		"stops_away, " +
		"predicted_at) " +
		"values (" +
		":vehicle_id, " +
		":route_id, " +
		":trip_id, " +
		":stop_id, " +
		":predicted_arrival_at, " +
		":scheduled_arrival_at, " +
		":delay_sec, " +
		":confidence, " +
		":stops_away, " +
		":predicted_at)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, arrivalLog)
	return err
}

// GetArrivalLogsForDate retrieves all arrival logs whose predicted arrival falls on the
// calendar day containing "day", ordered by route, stop and predicted arrival time
func GetArrivalLogsForDate(db *sqlx.DB, day time.Time) ([]ArrivalLog, error) {
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	query := "select * from arrival_log " +
		"where predicted_arrival_at >= :start_of_day and predicted_arrival_at < :end_of_day " +
		"order by route_id, stop_id, predicted_arrival_at"
	rows, err := database.NamedQueryRowsFromMap(query, db, map[string]interface{}{
		"start_of_day": startOfDay,
		"end_of_day":   endOfDay,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var results []ArrivalLog
	for rows.Next() {
		arrivalLog := ArrivalLog{}
		err = rows.StructScan(&arrivalLog)
		if err != nil {
			return nil, err
		}
		results = append(results, arrivalLog)
	}
	return results, nil
}

// ArrivalLogStore adapts arrival log queries to the interfaces the prediction and
// bunching layers consume
type ArrivalLogStore struct {
	db *sqlx.DB
}

// NewArrivalLogStore builds an ArrivalLogStore
func NewArrivalLogStore(db *sqlx.DB) *ArrivalLogStore {
	return &ArrivalLogStore{db: db}
}

// Record saves one arrival log row
func (a *ArrivalLogStore) Record(arrivalLog *ArrivalLog) error {
	return RecordArrivalLog(a.db, arrivalLog)
}

// ArrivalsForDate retrieves the day's arrival logs
func (a *ArrivalLogStore) ArrivalsForDate(day time.Time) ([]ArrivalLog, error) {
	return GetArrivalLogsForDate(a.db, day)
}

// DeleteOlderThan removes arrival logs past the retention period
func (a *ArrivalLogStore) DeleteOlderThan(days int) (int64, error) {
	return DeleteArrivalLogsOlderThan(a.db, days)
}

// DeleteArrivalLogsOlderThan removes arrival logs predicted more than "days" days ago,
// returning the number of rows removed
func DeleteArrivalLogsOlderThan(db *sqlx.DB, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result, err := db.Exec(db.Rebind("delete from arrival_log where predicted_at < $1"), cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
