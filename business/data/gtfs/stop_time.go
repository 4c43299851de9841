package gtfs

import (
	"github.com/jmoiron/sqlx"
)

// StopTime contains a record from a gtfs stop_times.txt file.
// ArrivalTime and DepartureTime are seconds relative to the start of the service day,
// which allows times past midnight (for example 25:30:00) on late-running trips.
type StopTime struct {
	TripId        string `db:"trip_id" json:"trip_id"`
	StopSequence  int    `db:"stop_sequence" json:"stop_sequence"`
	StopId        string `db:"stop_id" json:"stop_id"`
	ArrivalTime   *int   `db:"arrival_time" json:"arrival_time"`
	DepartureTime *int   `db:"departure_time" json:"departure_time"`
}

// GetStopTimes retrieves the ordered stop times for a trip restricted to serviceClass.
// Returns an empty slice when the trip is unknown or not active for the service class.
func GetStopTimes(db *sqlx.DB, tripId string, serviceClass string) ([]StopTime, error) {
	query := "select st.trip_id, st.stop_sequence, st.stop_id, st.arrival_time, st.departure_time " +
		"from stop_time st " +
		"join trip t on t.trip_id = st.trip_id " +
		"where st.trip_id = $1 and t.service_id = $2 " +
		"order by st.stop_sequence"
	var results []StopTime
	err := db.Select(&results, db.Rebind(query), tripId, serviceClass)
	if err != nil {
		return nil, err
	}
	return results, nil
}
