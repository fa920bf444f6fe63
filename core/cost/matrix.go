// Package cost provides travel-cost matrices between sets of origins and
// destinations.
package cost

import (
	"gonum.org/v1/gonum/mat"

	"github.com/civigrid/evacd/core/geo"
)

// Matrix holds pairwise travel costs, origins as rows and destinations as
// columns. Units depend on the producing backend (seconds for a routing
// provider, kilometres for the geodesic fallback); costs are only compared
// against costs from the same backend within one run.
type Matrix struct {
	d *mat.Dense
}

// New builds a Matrix from row-major data. len(data) must equal rows*cols.
// Returns nil when either dimension is zero.
func New(rows, cols int, data []float64) *Matrix {
	if rows == 0 || cols == 0 {
		return nil
	}
	return &Matrix{d: mat.NewDense(rows, cols, data)}
}

// At returns the cost from origin o to destination d.
func (m *Matrix) At(o, d int) float64 { return m.d.At(o, d) }

// Dims returns the number of origins and destinations.
func (m *Matrix) Dims() (int, int) { return m.d.Dims() }

// Raw returns the row-major backing data.
func (m *Matrix) Raw() []float64 { return m.d.RawMatrix().Data }

// HaversineMatrix builds a geodesic-distance matrix in kilometres. It never
// fails and serves as the substitute cost when a routing provider is
// unavailable.
func HaversineMatrix(origins, dests []geo.Point) *Matrix {
	if len(origins) == 0 || len(dests) == 0 {
		return nil
	}
	d := mat.NewDense(len(origins), len(dests), nil)
	for i, o := range origins {
		for j, t := range dests {
			d.Set(i, j, geo.Haversine(o, t))
		}
	}
	return &Matrix{d: d}
}
