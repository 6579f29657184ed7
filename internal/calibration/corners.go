package calibration

import (
	"fmt"
	"sort"

	"github.com/ayusman/paperdrum/internal/geometry"
)

// poolSize caps how many of the largest candidates take part in subset
// enumeration. C(8,4) = 70 subsets at most.
const poolSize = 8

// SelectCorners picks the four fiducials at the sheet corners and returns
// their outward vertices ordered TL, TR, BR, BL in camera pixels.
func SelectCorners(cands []Candidate) ([4]geometry.Point, error) {
	var corners [4]geometry.Point

	if len(cands) < 4 {
		return corners, fmt.Errorf("%w: found %d, need 4", ErrInsufficientFiducials, len(cands))
	}

	four, ok := mostSpread(largest(cands, poolSize))
	if !ok {
		return corners, ErrNoSpreadSubset
	}

	mean := geometry.Mean(four[0].Centroid, four[1].Centroid, four[2].Centroid, four[3].Centroid)

	var outward [4]geometry.Point
	for i, sq := range four {
		outward[i] = outwardVertex(sq, mean)
	}

	return OrderCorners(outward), nil
}

// largest returns up to n candidates with the biggest area. Equal areas keep
// their detection order.
func largest(cands []Candidate, n int) []Candidate {
	pool := make([]Candidate, len(cands))
	copy(pool, cands)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Area > pool[j].Area
	})
	if len(pool) > n {
		pool = pool[:n]
	}
	return pool
}

// mostSpread enumerates every 4-subset of pool and returns the one with the
// largest sum of squared pairwise centroid distances. The first maximum wins.
func mostSpread(pool []Candidate) ([4]Candidate, bool) {
	var best [4]Candidate
	bestScore := -1.0
	found := false

	n := len(pool)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				for l := k + 1; l < n; l++ {
					set := [4]Candidate{pool[i], pool[j], pool[k], pool[l]}
					if s := spread(set); s > bestScore {
						bestScore = s
						best = set
						found = true
					}
				}
			}
		}
	}

	return best, found
}

func spread(set [4]Candidate) float64 {
	var s float64
	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			d := set[a].Centroid.Sub(set[b].Centroid)
			s += d.Dot(d)
		}
	}
	return s
}

// outwardVertex returns the vertex of sq that points furthest away from the
// centre of the four fiducials.
func outwardVertex(sq Candidate, mean geometry.Point) geometry.Point {
	dir := sq.Centroid.Sub(mean)
	best := sq.Vertices[0]
	bestDot := best.Sub(sq.Centroid).Dot(dir)
	for _, v := range sq.Vertices[1:] {
		if d := v.Sub(sq.Centroid).Dot(dir); d > bestDot {
			best, bestDot = v, d
		}
	}
	return best
}

// OrderCorners orders four points as top-left, top-right, bottom-right,
// bottom-left using x+y and x-y extremes. The result does not depend on the
// input order for a convex quad rotated less than about 45 degrees.
func OrderCorners(pts [4]geometry.Point) [4]geometry.Point {
	tl, tr, br, bl := pts[0], pts[0], pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.X+p.Y < tl.X+tl.Y {
			tl = p
		}
		if p.X+p.Y > br.X+br.Y {
			br = p
		}
		if p.X-p.Y > tr.X-tr.Y {
			tr = p
		}
		if p.X-p.Y < bl.X-bl.Y {
			bl = p
		}
	}
	return [4]geometry.Point{tl, tr, br, bl}
}
