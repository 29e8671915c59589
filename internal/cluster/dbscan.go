// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package cluster

import "math"

// Noise is the label of points that belong to no cluster. Cluster labels
// start at 1; 0 marks a point that has not been visited yet.
const Noise = -1

const unvisited = 0

// Params configures a DBSCAN run.
type Params struct {
	Eps    float64 // neighbourhood radius in degrees
	MinPts int     // minimum neighbourhood size, including the point itself
}

var (
	// Coarse is used for spatial trend cluster counts.
	Coarse = Params{Eps: 0.01, MinPts: 3}

	// Fine is used for hotspot identification.
	Fine = Params{Eps: 0.005, MinPts: 5}
)

// Point is a coordinate in degree space.
type Point struct {
	Lat, Lng float64
}

// Result holds per-point labels and the number of clusters found.
type Result struct {
	Labels   []int
	Clusters int
}

// Members returns the point indices of each cluster, indexed by label-1.
func (r Result) Members() [][]int {
	members := make([][]int, r.Clusters)
	for i, label := range r.Labels {
		if label > 0 {
			members[label-1] = append(members[label-1], i)
		}
	}
	return members
}

// NoiseCount returns the number of points labelled Noise.
func (r Result) NoiseCount() int {
	n := 0
	for _, label := range r.Labels {
		if label == Noise {
			n++
		}
	}
	return n
}

// DBSCAN clusters points. Points are visited in input order so the labelling
// is deterministic for a given input.
func DBSCAN(points []Point, params Params) Result {
	n := len(points)
	labels := make([]int, n)
	if n == 0 || params.Eps <= 0 || params.MinPts < 1 {
		for i := range labels {
			labels[i] = Noise
		}
		return Result{Labels: labels}
	}

	index := newGridIndex(points, params.Eps)
	clusterID := 0

	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := index.regionQuery(i)
		if len(neighbors) < params.MinPts {
			labels[i] = Noise
			continue
		}

		clusterID++
		expandCluster(index, labels, i, neighbors, clusterID, params.MinPts)
	}

	return Result{Labels: labels, Clusters: clusterID}
}

func expandCluster(index *gridIndex, labels []int, seed int, neighbors []int, clusterID, minPts int) {
	labels[seed] = clusterID

	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]

		if labels[idx] == Noise {
			// border point
			labels[idx] = clusterID
		}
		if labels[idx] != unvisited {
			continue
		}

		labels[idx] = clusterID
		if next := index.regionQuery(idx); len(next) >= minPts {
			neighbors = append(neighbors, next...)
		}
	}
}

// cellKey addresses one eps-sized grid cell.
type cellKey struct {
	X, Y int
}

// gridIndex buckets points into eps-sized cells so a region query only
// inspects the 3x3 block of cells around a point.
type gridIndex struct {
	points   []Point
	cellSize float64
	eps2     float64
	cells    map[cellKey][]int
}

func newGridIndex(points []Point, eps float64) *gridIndex {
	g := &gridIndex{
		points:   points,
		cellSize: eps,
		eps2:     eps * eps,
		cells:    make(map[cellKey][]int, len(points)/4+1),
	}
	for i, p := range points {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *gridIndex) key(p Point) cellKey {
	return cellKey{
		X: int(math.Floor(p.Lng / g.cellSize)),
		Y: int(math.Floor(p.Lat / g.cellSize)),
	}
}

// regionQuery returns the indices of all points within eps of points[idx],
// including idx itself.
func (g *gridIndex) regionQuery(idx int) []int {
	p := g.points[idx]
	center := g.key(p)

	var neighbors []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, c := range g.cells[cellKey{X: center.X + dx, Y: center.Y + dy}] {
				q := g.points[c]
				dLat, dLng := q.Lat-p.Lat, q.Lng-p.Lng
				if dLat*dLat+dLng*dLng <= g.eps2 {
					neighbors = append(neighbors, c)
				}
			}
		}
	}
	return neighbors
}
