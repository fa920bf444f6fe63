package geo

import (
	"encoding/json"
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// Point is a geographic position. GeoJSON ordering ([lon, lat]) is used on
// the wire.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Ring is a closed loop of positions.
type Ring []Point

// Polygon is an outer ring followed by zero or more hole rings.
type Polygon []Ring

// Geometry is a parsed GeoJSON Polygon or MultiPolygon. A Polygon is stored
// as a single entry in Polygons.
type Geometry struct {
	Type     string
	Polygons []Polygon
}

// ParseGeometry decodes GeoJSON Polygon or MultiPolygon coordinates.
// Rings are not validated beyond shape; degenerate or self-intersecting
// rings classify however ray casting classifies them.
func ParseGeometry(typ string, coordinates json.RawMessage) (Geometry, error) {
	switch typ {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(coordinates, &rings); err != nil {
			return Geometry{}, fmt.Errorf("parse polygon coordinates: %w", err)
		}
		p, err := toPolygon(rings)
		if err != nil {
			return Geometry{}, err
		}
		return Geometry{Type: typ, Polygons: []Polygon{p}}, nil
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(coordinates, &polys); err != nil {
			return Geometry{}, fmt.Errorf("parse multipolygon coordinates: %w", err)
		}
		g := Geometry{Type: typ}
		for _, rings := range polys {
			p, err := toPolygon(rings)
			if err != nil {
				return Geometry{}, err
			}
			g.Polygons = append(g.Polygons, p)
		}
		return g, nil
	default:
		return Geometry{}, fmt.Errorf("unsupported geometry type %q", typ)
	}
}

func toPolygon(rings [][][]float64) (Polygon, error) {
	p := make(Polygon, 0, len(rings))
	for _, ring := range rings {
		r := make(Ring, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				return nil, fmt.Errorf("position has %d coordinates, want at least 2", len(pos))
			}
			r = append(r, Point{Lon: pos[0], Lat: pos[1]})
		}
		p = append(p, r)
	}
	return p, nil
}

// PointInGeometry reports whether p lies inside the geometry: inside any
// polygon of a MultiPolygon, where inside a polygon means inside its outer
// ring and inside none of its holes. Pure function; behavior for points
// exactly on a ring edge follows the ray-casting formula.
func PointInGeometry(p Point, g Geometry) bool {
	for _, poly := range g.Polygons {
		if pointInPolygon(p, poly) {
			return true
		}
	}
	return false
}

func pointInPolygon(p Point, poly Polygon) bool {
	if len(poly) == 0 || !pointInRing(p, poly[0]) {
		return false
	}
	for _, hole := range poly[1:] {
		if pointInRing(p, hole) {
			return false
		}
	}
	return true
}

// pointInRing applies the even-odd ray-casting rule.
func pointInRing(p Point, ring Ring) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) &&
			p.Lon < (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat)+a.Lon {
			inside = !inside
		}
	}
	return inside
}
