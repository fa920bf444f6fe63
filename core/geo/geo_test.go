package geo

import (
	"encoding/json"
	"math"
	"testing"
)

func square(minLon, minLat, maxLon, maxLat float64) Ring {
	return Ring{
		{Lon: minLon, Lat: minLat},
		{Lon: maxLon, Lat: minLat},
		{Lon: maxLon, Lat: maxLat},
		{Lon: minLon, Lat: maxLat},
		{Lon: minLon, Lat: minLat},
	}
}

func TestHaversine(t *testing.T) {
	athens := Point{Lon: 23.7348, Lat: 37.9755}
	patras := Point{Lon: 21.7346, Lat: 38.2466}
	d := Haversine(athens, patras)
	// Straight-line Athens to Patras is roughly 177 km.
	if d < 170 || d > 185 {
		t.Fatalf("unexpected distance %f", d)
	}
	if Haversine(athens, athens) != 0 {
		t.Fatal("distance to self should be zero")
	}
	if math.Abs(Haversine(athens, patras)-Haversine(patras, athens)) > 1e-9 {
		t.Fatal("haversine should be symmetric")
	}
}

func TestPointInGeometry_Square(t *testing.T) {
	g := Geometry{Type: "Polygon", Polygons: []Polygon{{square(0, 0, 2, 2)}}}
	if !PointInGeometry(Point{Lon: 1, Lat: 1}, g) {
		t.Fatal("expected (1,1) inside")
	}
	if PointInGeometry(Point{Lon: 5, Lat: 5}, g) {
		t.Fatal("expected (5,5) outside")
	}
}

func TestPointInGeometry_Hole(t *testing.T) {
	g := Geometry{Type: "Polygon", Polygons: []Polygon{{
		square(0, 0, 10, 10),
		square(4, 4, 6, 6),
	}}}
	if !PointInGeometry(Point{Lon: 1, Lat: 1}, g) {
		t.Fatal("expected point in outer ring inside")
	}
	if PointInGeometry(Point{Lon: 5, Lat: 5}, g) {
		t.Fatal("expected point in hole outside")
	}
}

func TestPointInGeometry_MultiPolygon(t *testing.T) {
	g := Geometry{Type: "MultiPolygon", Polygons: []Polygon{
		{square(0, 0, 1, 1)},
		{square(10, 10, 11, 11)},
	}}
	if !PointInGeometry(Point{Lon: 10.5, Lat: 10.5}, g) {
		t.Fatal("expected point in second polygon inside")
	}
	if PointInGeometry(Point{Lon: 5, Lat: 5}, g) {
		t.Fatal("expected point between polygons outside")
	}
}

func TestPointInGeometry_Idempotent(t *testing.T) {
	g := Geometry{Type: "Polygon", Polygons: []Polygon{{square(0, 0, 2, 2)}}}
	p := Point{Lon: 0.5, Lat: 1.7}
	first := PointInGeometry(p, g)
	for i := 0; i < 10; i++ {
		if PointInGeometry(p, g) != first {
			t.Fatal("classification changed between evaluations")
		}
	}
}

func TestParseGeometry(t *testing.T) {
	raw := json.RawMessage(`[[[0,0],[2,0],[2,2],[0,2],[0,0]]]`)
	g, err := ParseGeometry("Polygon", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(g.Polygons) != 1 || len(g.Polygons[0][0]) != 5 {
		t.Fatalf("unexpected shape: %#v", g)
	}
	if _, err := ParseGeometry("Point", json.RawMessage(`[1,2]`)); err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if _, err := ParseGeometry("Polygon", json.RawMessage(`[[[0]]]`)); err == nil {
		t.Fatal("expected error for short position")
	}
}
