package delivery

import (
	"time"

	"github.com/richxcame/fleet-engine/pkg/geo"
	"gonum.org/v1/gonum/stat"
)

const (
	// stopInterval separates consecutive planned arrivals
	stopInterval = 30 * time.Minute
	// dwellTime is spent at each stop
	dwellTime = 15 * time.Minute
	// averageSpeed is in meters per second
	averageSpeed = 30.0
	// polylinePoints is the interpolation resolution of a segment
	polylinePoints = 10

	minUtilization   = 0.4
	utilizationRange = 0.4
)

// Partition splits stops into contiguous chunks of len(stops)/len(vehicles);
// the last vehicle takes the remainder.
func Partition(stops []Stop, vehicles int) [][]Stop {
	if vehicles <= 0 {
		return nil
	}

	chunk := len(stops) / vehicles
	parts := make([][]Stop, vehicles)
	for i := 0; i < vehicles; i++ {
		from := i * chunk
		to := from + chunk
		if i == vehicles-1 {
			to = len(stops)
		}
		parts[i] = stops[from:to]
	}
	return parts
}

// Plan builds one route per vehicle that received stops. Vehicles without
// stops are left out. Random draws happen per route in order: one traffic
// level per segment, then the utilization.
func Plan(vehicles []Vehicle, stops []Stop, date time.Time, rnd RandomSource) []Route {
	routes := []Route{}
	for i, assigned := range Partition(stops, len(vehicles)) {
		if len(assigned) == 0 {
			continue
		}
		routes = append(routes, planRoute(vehicles[i], assigned, date, rnd))
	}
	return routes
}

func planRoute(v Vehicle, stops []Stop, date time.Time, rnd RandomSource) Route {
	route := Route{
		VehicleID:  v.ID,
		Stops:      make([]ScheduledStop, 0, len(stops)),
		Segments:   make([]Segment, 0, len(stops)),
		TotalStops: len(stops),
	}

	for i, s := range stops {
		arrival := date.Add(time.Duration(i) * stopInterval)
		route.Stops = append(route.Stops, ScheduledStop{
			Stop:          s,
			Sequence:      i + 1,
			ArrivalTime:   arrival,
			DepartureTime: arrival.Add(dwellTime),
		})
		route.TotalLoad += s.Load
	}

	for i := 1; i < len(stops); i++ {
		seg := buildSegment(stops[i-1], stops[i], rnd)
		route.Segments = append(route.Segments, seg)
		route.TotalDistance += seg.Distance
		route.TotalDuration += seg.Duration
	}

	route.Utilization = minUtilization + rnd.Float64()*utilizationRange
	return route
}

func buildSegment(from, to Stop, rnd RandomSource) Segment {
	distance := geo.DistanceMeters(from.Location, to.Location)
	return Segment{
		FromStopID:   from.ID,
		ToStopID:     to.ID,
		Distance:     distance,
		Duration:     distance / averageSpeed,
		TrafficLevel: trafficLevel(rnd.Float64()),
		Polyline:     geo.EncodePolyline(geo.Interpolate(from.Location, to.Location, polylinePoints)),
	}
}

func trafficLevel(r float64) TrafficLevel {
	switch {
	case r < 1.0/3:
		return TrafficLow
	case r < 2.0/3:
		return TrafficMedium
	default:
		return TrafficHigh
	}
}

// Summarize totals the routes
func Summarize(routes []Route) Summary {
	s := Summary{TotalRoutes: len(routes)}
	utilizations := make([]float64, 0, len(routes))
	for _, r := range routes {
		s.TotalDistance += r.TotalDistance
		s.TotalDuration += r.TotalDuration
		s.TotalStops += r.TotalStops
		s.TotalLoad += r.TotalLoad
		utilizations = append(utilizations, r.Utilization)
	}
	if len(utilizations) > 0 {
		s.AverageUtilization = stat.Mean(utilizations, nil)
	}
	return s
}
