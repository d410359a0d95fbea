package calib

import (
	"math"
	"sort"
)

// maximum is a local maximum of the angle/distance accumulator.
type maximum struct {
	value         int
	angleIndex    int
	distanceIndex int
}

// accumulator is an angle/distance voting space over a window of the image.
// Angle buckets cover 0-180 degrees, distance buckets cover [-dMax, dMax]
// shifted by dMax.
type accumulator struct {
	tables *angleTables
	dMax   int
	cells  [][]int
}

func newAccumulator(tables *angleTables, width, height int) *accumulator {
	dMax := int(math.Ceil(math.Hypot(float64(width), float64(height))))
	cells := make([][]int, numAngles)
	for i := range cells {
		cells[i] = make([]int, 2*dMax+1)
	}
	return &accumulator{tables: tables, dMax: dMax, cells: cells}
}

// walkSector calls fn for every angle bucket from minIndex up to but not
// including maxIndex, wrapping around the bucket count.
func walkSector(minIndex, maxIndex int, fn func(index int)) {
	for index := minIndex; index != maxIndex; index = (index + 1) % numAngles {
		fn(index)
	}
}

// vote adds one vote for the pixel (x, y) in every angle bucket of the
// sector, at distance x*cos + y*sin rounded up.
func (a *accumulator) vote(x, y, minIndex, maxIndex int) {
	walkSector(minIndex, maxIndex, func(index int) {
		d := int(math.Ceil(float64(x)*a.tables.cos[index] + float64(y)*a.tables.sin[index]))
		a.cells[index][d+a.dMax]++
	})
}

// sectorPos maps an angle bucket to its position within the walked sector,
// used to order cells deterministically across the wrap-around.
func sectorPos(index, minIndex int) int {
	return ((index - minIndex) + numAngles) % numAngles
}

// localMaxima returns all cells of the sector that no neighboring cell
// (within one angle bucket circularly and one distance bucket) exceeds.
// Zero cells are excluded. When neighboring cells tie, only the one that
// comes first in scan order (ascending sector position, then ascending
// distance) is reported, so the result is deterministic.
func (a *accumulator) localMaxima(minIndex, maxIndex int) []maximum {
	maxDis := len(a.cells[0])
	isMaximum := func(value, angleIndex, distanceIndex int) bool {
		pos := sectorPos(angleIndex, minIndex)
		for i := -1; i <= 1; i++ {
			index := ((angleIndex + i) + numAngles) % numAngles
			lo := distanceIndex - 1
			if lo < 0 {
				lo = 0
			}
			hi := distanceIndex + 1
			if hi > maxDis-1 {
				hi = maxDis - 1
			}
			for j := lo; j <= hi; j++ {
				if index == angleIndex && j == distanceIndex {
					continue
				}
				other := a.cells[index][j]
				if other > value {
					return false
				}
				if other == value {
					otherPos := sectorPos(index, minIndex)
					if otherPos < pos || (otherPos == pos && j < distanceIndex) {
						return false
					}
				}
			}
		}
		return true
	}

	var maxima []maximum
	walkSector(minIndex, maxIndex, func(angleIndex int) {
		for distanceIndex := 0; distanceIndex < maxDis; distanceIndex++ {
			value := a.cells[angleIndex][distanceIndex]
			if value != 0 && isMaximum(value, angleIndex, distanceIndex) {
				maxima = append(maxima, maximum{value: value, angleIndex: angleIndex, distanceIndex: distanceIndex})
			}
		}
	})
	return maxima
}

// sortMaxima orders maxima by descending vote count, breaking ties by scan
// order so the result does not depend on sort internals.
func sortMaxima(maxima []maximum, minIndex int) {
	sort.Slice(maxima, func(i, j int) bool {
		if maxima[i].value != maxima[j].value {
			return maxima[i].value > maxima[j].value
		}
		pi, pj := sectorPos(maxima[i].angleIndex, minIndex), sectorPos(maxima[j].angleIndex, minIndex)
		if pi != pj {
			return pi < pj
		}
		return maxima[i].distanceIndex < maxima[j].distanceIndex
	})
}
