package gtfs

import (
	"github.com/jmoiron/sqlx"
)

// Stop contains a record from a gtfs stops.txt file
type Stop struct {
	StopId   string  `db:"stop_id" json:"stop_id"`
	StopName string  `db:"stop_name" json:"stop_name"`
	StopLat  float64 `db:"stop_lat" json:"stop_lat"`
	StopLon  float64 `db:"stop_lon" json:"stop_lon"`
}

// GetStopLocationsForTrip retrieves the coordinates of every stop on a trip, keyed by stop_id
func GetStopLocationsForTrip(db *sqlx.DB, tripId string) (map[string]StopLocation, error) {
	query := "select s.stop_id, s.stop_name, s.stop_lat, s.stop_lon " +
		"from stop s " +
		"join stop_time st on st.stop_id = s.stop_id " +
		"where st.trip_id = $1"
	var stops []Stop
	err := db.Select(&stops, db.Rebind(query), tripId)
	if err != nil {
		return nil, err
	}
	results := make(map[string]StopLocation, len(stops))
	for _, stop := range stops {
		results[stop.StopId] = StopLocation{
			StopId: stop.StopId,
			Lat:    stop.StopLat,
			Lon:    stop.StopLon,
		}
	}
	return results, nil
}
