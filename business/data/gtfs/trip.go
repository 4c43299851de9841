package gtfs

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Trip contains data from a gtfs trip definition in a trips.txt file
type Trip struct {
	TripId       string  `db:"trip_id" json:"trip_id"`
	RouteId      string  `db:"route_id" json:"route_id"`
	ServiceId    string  `db:"service_id" json:"service_id"`
	DirectionId  *int    `db:"direction_id" json:"direction_id"`
	TripHeadsign *string `db:"trip_headsign" json:"trip_headsign"`
}

// GetTrip retrieves a trip by its gtfs trip_id, nil result when no trip is found
func GetTrip(db *sqlx.DB, tripId string) (*Trip, error) {
	query := "select * from trip where trip_id = $1"
	trip := Trip{}
	err := db.Get(&trip, db.Rebind(query), tripId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}
