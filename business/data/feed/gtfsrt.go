package feed

import (
	"fmt"
	"io"
	logger "log"
	"net/http"
	"time"

	gtfsrtproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
	"google.golang.org/protobuf/proto"
)

// FetchSnapshot loads and decodes the vehicle position and trip update feeds into one
// Snapshot. A failure on either feed fails the whole fetch; the caller keeps serving
// from its previous snapshot.
func FetchSnapshot(log *logger.Logger, vehiclePositionsURL string, tripUpdatesURL string) (*Snapshot, error) {
	vehicleFeed, err := loadFeedMessage(vehiclePositionsURL)
	if err != nil {
		return nil, fmt.Errorf("unable to load vehicle positions from %s: %w", vehiclePositionsURL, err)
	}
	tripFeed, err := loadFeedMessage(tripUpdatesURL)
	if err != nil {
		return nil, fmt.Errorf("unable to load trip updates from %s: %w", tripUpdatesURL, err)
	}

	snapshot := &Snapshot{
		Timestamp: time.Now().Unix(),
	}
	if vehicleFeed.GetHeader().GetTimestamp() > 0 {
		snapshot.Timestamp = int64(vehicleFeed.GetHeader().GetTimestamp())
	}

	for _, entity := range vehicleFeed.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil {
			continue
		}
		vehicle := newVehiclePosition(entity.GetId(), vp)
		if vehicle.Id == "" {
			log.Printf("discarding vehicle position with no usable identifier in entity %s\n", entity.GetId())
			continue
		}
		snapshot.Vehicles = append(snapshot.Vehicles, vehicle)
	}

	for _, entity := range tripFeed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil || tu.GetTrip().GetTripId() == "" {
			continue
		}
		snapshot.Trips = append(snapshot.Trips, newTripEntry(tu))
	}

	return snapshot, nil
}

// loadFeedMessage retrieves a GTFS-RT protocol buffer feed over http
func loadFeedMessage(url string) (*gtfsrtproto.FeedMessage, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	feedMessage := gtfsrtproto.FeedMessage{}
	err = proto.Unmarshal(body, &feedMessage)
	if err != nil {
		return nil, fmt.Errorf("unable to unmarshal feed: %w", err)
	}
	return &feedMessage, nil
}

// newVehiclePosition flattens one feed vehicle into a VehiclePosition value.
// The vehicle descriptor id wins; entity id is the fallback identifier.
func newVehiclePosition(entityId string, vp *gtfsrtproto.VehiclePosition) VehiclePosition {
	vehicle := VehiclePosition{
		Id:      vp.GetVehicle().GetId(),
		Label:   vp.GetVehicle().GetLabel(),
		RouteId: vp.GetTrip().GetRouteId(),
	}
	if vehicle.Id == "" {
		vehicle.Id = entityId
	}
	if trip := vp.GetTrip(); trip != nil {
		if trip.TripId != nil && *trip.TripId != "" {
			tripId := trip.GetTripId()
			vehicle.TripId = &tripId
		}
		if trip.DirectionId != nil {
			direction := int(trip.GetDirectionId())
			vehicle.Direction = &direction
		}
	}
	if position := vp.GetPosition(); position != nil {
		latitude := float64(position.GetLatitude())
		longitude := float64(position.GetLongitude())
		vehicle.Latitude = &latitude
		vehicle.Longitude = &longitude
	}
	if vp.Timestamp != nil {
		timestamp := int64(vp.GetTimestamp())
		vehicle.Timestamp = &timestamp
	}
	return vehicle
}

// newTripEntry flattens one trip update into a TripEntry with its predicted stop times
// ordered as delivered by the feed
func newTripEntry(tu *gtfsrtproto.TripUpdate) TripEntry {
	entry := TripEntry{
		TripId: tu.GetTrip().GetTripId(),
	}
	if tu.GetTrip().RouteId != nil {
		routeId := tu.GetTrip().GetRouteId()
		entry.RouteId = &routeId
	}
	if tu.GetTrip().DirectionId != nil {
		direction := int(tu.GetTrip().GetDirectionId())
		entry.Direction = &direction
	}
	for _, stu := range tu.GetStopTimeUpdate() {
		stop := gtfs.StopTimeEntry{
			StopId:       stu.GetStopId(),
			StopSequence: int(stu.GetStopSequence()),
		}
		if arrival := stu.GetArrival(); arrival != nil {
			if arrival.Time != nil {
				arrivalTime := arrival.GetTime()
				stop.ArrivalTime = &arrivalTime
			}
			if arrival.Delay != nil {
				delay := int(arrival.GetDelay())
				stop.Delay = &delay
			}
		}
		if departure := stu.GetDeparture(); departure != nil && departure.Time != nil {
			departureTime := departure.GetTime()
			stop.DepartureTime = &departureTime
		}
		entry.Stops = append(entry.Stops, stop)
	}
	return entry
}
