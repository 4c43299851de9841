package gtfs

import (
	"testing"

	"github.com/matryer/is"
)

func int64Ptr(i int64) *int64 {
	return &i
}

func Test_StopTimeEntry_BestTimes(t *testing.T) {
	is := is.New(t)

	both := StopTimeEntry{ArrivalTime: int64Ptr(100), DepartureTime: int64Ptr(110)}
	is.Equal(*both.BestArrivalTime(), int64(100))
	is.Equal(*both.BestDepartureTime(), int64(110))

	//each side falls back to the other when missing
	arrivalOnly := StopTimeEntry{ArrivalTime: int64Ptr(100)}
	is.Equal(*arrivalOnly.BestDepartureTime(), int64(100))

	departureOnly := StopTimeEntry{DepartureTime: int64Ptr(110)}
	is.Equal(*departureOnly.BestArrivalTime(), int64(110))

	empty := StopTimeEntry{}
	is.Equal(empty.BestArrivalTime(), nil)
	is.Equal(empty.BestDepartureTime(), nil)
}

func Test_TripDurationFromEntries(t *testing.T) {
	is := is.New(t)

	entries := []StopTimeEntry{
		{StopId: "A", StopSequence: 1, ArrivalTime: int64Ptr(1000), DepartureTime: int64Ptr(1010)},
		{StopId: "B", StopSequence: 2, ArrivalTime: int64Ptr(1300)},
		{StopId: "C", StopSequence: 3, ArrivalTime: int64Ptr(1600)},
	}
	//starts at the first stop's departure, ends at the last stop's arrival
	duration := TripDurationFromEntries(entries)
	is.True(duration != nil)
	is.Equal(duration.Start, int64(1010))
	is.Equal(duration.End, int64(1600))
	is.Equal(duration.Seconds(), int64(590))

	//fewer than two entries
	is.Equal(TripDurationFromEntries(entries[:1]), nil)
	is.Equal(TripDurationFromEntries(nil), nil)

	//degenerate trip ending at or before its start
	flat := []StopTimeEntry{
		{StopId: "A", StopSequence: 1, ArrivalTime: int64Ptr(1000)},
		{StopId: "B", StopSequence: 2, ArrivalTime: int64Ptr(1000)},
	}
	is.Equal(TripDurationFromEntries(flat), nil)
}
