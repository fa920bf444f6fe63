package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/core/logger"
	"github.com/civigrid/evacd/core/model"
)

// OrderStops sequences picks by repeated nearest-neighbor selection from
// the start position. Ties keep the first pick found.
func OrderStops(start geo.Point, picks []model.Target) []model.Target {
	remaining := append([]model.Target(nil), picks...)
	ordered := make([]model.Target, 0, len(picks))
	current := start
	for len(remaining) > 0 {
		best := 0
		bestDist := geo.Haversine(current, remaining[0].Location)
		for i := 1; i < len(remaining); i++ {
			if d := geo.Haversine(current, remaining[i].Location); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := remaining[best]
		ordered = append(ordered, next)
		current = next.Location
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}

// RouteBuilder turns a vehicle's picks into a drivable route. When the path
// provider is missing or fails, the route degrades to straight-line
// segments with summed geodesic distance and no duration.
type RouteBuilder struct {
	paths PathProvider
	log   logger.Logger
}

func NewRouteBuilder(paths PathProvider, log logger.Logger) *RouteBuilder {
	return &RouteBuilder{paths: paths, log: log}
}

// Build orders the picks, requests a drivable path and emits the route with
// its per-stop records.
func (b *RouteBuilder) Build(ctx context.Context, v model.Vehicle, picks []model.Target) (model.Route, []model.Stop) {
	ordered := OrderStops(v.Location, picks)
	points := make([]geo.Point, 0, len(ordered)+1)
	points = append(points, v.Location)
	for _, t := range ordered {
		points = append(points, t.Location)
	}

	route := model.Route{
		ID:        uuid.NewString(),
		VehicleID: v.ID,
		Plate:     v.Plate,
		City:      v.City,
		SeatsUsed: len(ordered),
	}

	if b.paths != nil {
		if path, err := b.paths.Path(ctx, points); err == nil {
			route.Path = path.Geometry
			route.DistanceKm = path.DistanceKm
			dur := path.DurationMin
			route.DurationMin = &dur
		} else {
			b.log.Warnf("path provider failed for vehicle %s, using straight lines: %v", v.ID, err)
		}
	}
	if route.Path == nil {
		route.Path = points
		route.DistanceKm = pathLengthKm(points)
		routesDegraded.Inc()
	}

	stops := make([]model.Stop, 0, len(points))
	stops = append(stops, model.Stop{
		RouteID:   route.ID,
		VehicleID: v.ID,
		Sequence:  0,
		Location:  v.Location,
		City:      v.City,
	})
	for i, t := range ordered {
		stops = append(stops, model.Stop{
			RouteID:   route.ID,
			VehicleID: v.ID,
			TargetID:  t.ID,
			Sequence:  i + 1,
			Location:  t.Location,
			City:      v.City,
		})
	}
	return route, stops
}

func pathLengthKm(points []geo.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += geo.Haversine(points[i-1], points[i])
	}
	return total
}
