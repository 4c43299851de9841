package gtfs

import (
	logger "log"

	"github.com/jmoiron/sqlx"
)

// FeedbackSummary aggregates crowd-sourced punctuality reports for one vehicle
type FeedbackSummary struct {
	Ahead  int `db:"ahead" json:"ahead"`
	OnTime int `db:"on_time" json:"on_time"`
	Late   int `db:"late" json:"late"`
	Total  int `db:"total" json:"total"`
}

// GetFeedbackSummary counts feedback rows for vehicleId by label.
// An unknown vehicle yields a zero summary, not an error.
func GetFeedbackSummary(db *sqlx.DB, vehicleId string) (FeedbackSummary, error) {
	query := "select " +
		"count(*) filter (where label = 'ahead') as ahead, " +
		"count(*) filter (where label = 'on_time') as on_time, " +
		"count(*) filter (where label = 'late') as late, " +
		"count(*) as total " +
		"from vehicle_feedback where vehicle_id = $1"
	summary := FeedbackSummary{}
	err := db.Get(&summary, db.Rebind(query), vehicleId)
	if err != nil {
		return FeedbackSummary{}, err
	}
	return summary, nil
}

// FeedbackStore adapts feedback queries to the summary lookups the prediction layer needs,
// degrading to an empty summary on database errors
type FeedbackStore struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewFeedbackStore builds a FeedbackStore
func NewFeedbackStore(log *logger.Logger, db *sqlx.DB) *FeedbackStore {
	return &FeedbackStore{db: db, log: log}
}

// Summary returns the feedback summary for vehicleId
func (f *FeedbackStore) Summary(vehicleId string) FeedbackSummary {
	summary, err := GetFeedbackSummary(f.db, vehicleId)
	if err != nil {
		f.log.Printf("error loading feedback summary for vehicle %s: %v\n", vehicleId, err)
		return FeedbackSummary{}
	}
	return summary
}
