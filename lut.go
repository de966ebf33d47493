package bfieldmap

import (
	"fmt"
	"math"
)

// maxLUTLen caps the bucket count. Real maps need a few thousand buckets
// per axis; a larger table means a corrupt or degenerate mesh.
const maxLUTLen = 1 << 22

// axisLUT maps a coordinate to the index of the grid line at or below it
// in O(1). Buckets are no wider than the narrowest interval, so the table
// is off by at most one line and locate corrects it with a single step.
type axisLUT struct {
	front float64
	invq  float64 // inverse bucket width
	index []int
}

// buildAxisLUT builds the table for the sorted lines in edges.
func buildAxisLUT(edges []float64) (axisLUT, error) {
	if len(edges) < 2 {
		return axisLUT{}, fmt.Errorf("%w: %d grid lines, need at least 2", ErrMesh, len(edges))
	}
	front, back := edges[0], edges[len(edges)-1]
	width := back - front
	q := width
	for i := 0; i+1 < len(edges); i++ {
		d := edges[i+1] - edges[i]
		if !(d > 0) {
			return axisLUT{}, fmt.Errorf("%w: grid lines not increasing at %d (%g, %g)",
				ErrMesh, i, edges[i], edges[i+1])
		}
		q = min(q, d)
	}
	if math.IsInf(width, 0) || width/q > maxLUTLen {
		return axisLUT{}, fmt.Errorf("%w: grid spacing %g too fine for range %g", ErrMesh, q, width)
	}
	n := int(width/q) + 1
	q = width / (float64(n) + 0.5)
	n++
	lut := axisLUT{front: front, invq: 1.0 / q, index: make([]int, 0, n)}
	m := 0
	for i := range n {
		if float64(i)*q+front > edges[m+1] {
			m++
		}
		lut.index = append(lut.index, m)
	}
	return lut, nil
}

// locate returns i such that edges[i] <= x <= edges[i+1]. x must lie
// within [edges[0], edges[len-1]].
func (l *axisLUT) locate(edges []float64, x float64) int {
	i := l.index[int((x-l.front)*l.invq)]
	if x > edges[i+1] {
		i++
	}
	return i
}
