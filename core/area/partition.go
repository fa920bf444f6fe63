// Package area buckets vehicles and targets into named service areas so the
// per-run matching problems stay small.
package area

import "github.com/civigrid/evacd/core/geo"

// ServiceArea is a named region with a center point and a fetch radius.
type ServiceArea struct {
	Name     string
	Center   geo.Point
	RadiusKm float64
}

// Partitioner assigns points to the nearest service area center. Membership
// is recomputed for every run; nothing here is persisted.
type Partitioner struct {
	areas []ServiceArea
}

func NewPartitioner(areas []ServiceArea) *Partitioner {
	return &Partitioner{areas: areas}
}

// Locate returns the name of the nearest area whose radius covers p, or the
// empty string when no area is in range. Equal distances keep the first area
// in configured order.
func (pt *Partitioner) Locate(p geo.Point) string {
	best := ""
	bestDist := 0.0
	for _, a := range pt.areas {
		d := geo.Haversine(p, a.Center)
		if d > a.RadiusKm {
			continue
		}
		if best == "" || d < bestDist {
			best = a.Name
			bestDist = d
		}
	}
	return best
}

// Names returns the configured area names in order.
func (pt *Partitioner) Names() []string {
	names := make([]string, 0, len(pt.areas))
	for _, a := range pt.areas {
		names = append(names, a.Name)
	}
	return names
}
