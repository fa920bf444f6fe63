package model

import (
	"time"

	"github.com/civigrid/evacd/core/geo"
)

// HazardZone is an immutable snapshot of a disaster's affected area with its
// activity window.
type HazardZone struct {
	ID       string
	Name     string
	Geometry geo.Geometry
	Start    *time.Time // nil means already started
	End      *time.Time // nil means open-ended
}

// ActiveAt reports whether the zone's activity window covers t: the start,
// when set, is not in the future and the end, when set, is still ahead.
func (h HazardZone) ActiveAt(t time.Time) bool {
	if h.Start != nil && h.Start.After(t) {
		return false
	}
	return h.End == nil || h.End.After(t)
}

// Covers reports whether p lies inside the zone's geometry.
func (h HazardZone) Covers(p geo.Point) bool {
	return geo.PointInGeometry(p, h.Geometry)
}
