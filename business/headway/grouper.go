package headway

import (
	"fmt"

	"github.com/samuelwilk/mindthewait/business/data/feed"
)

// GroupKey identifies a set of vehicles scored together: one route in one direction.
// Vehicles without a direction share the route's "all" group.
func GroupKey(routeId string, direction *int) string {
	if direction == nil {
		return fmt.Sprintf("%s|all", routeId)
	}
	return fmt.Sprintf("%s|%d", routeId, *direction)
}

// GroupByRouteDirection partitions vehicles into route+direction groups. Vehicles
// without a route id are skipped since they cannot be attributed to any group.
func GroupByRouteDirection(vehicles []feed.VehiclePosition) map[string][]feed.VehiclePosition {
	groups := make(map[string][]feed.VehiclePosition)
	for _, vehicle := range vehicles {
		if vehicle.RouteId == "" {
			continue
		}
		key := GroupKey(vehicle.RouteId, vehicle.Direction)
		groups[key] = append(groups[key], vehicle)
	}
	return groups
}
