// Package sampler picks representative points and animation phases from
// imported geometry. Every function is deterministic and returns empty
// results for meshes without the attributes it needs.
package sampler

import (
	"math"
	"sort"

	"Canopy3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// UVSample pairs a world position with the u coordinate the emissive
// shader animates along.
type UVSample struct {
	Position mgl32.Vec3
	U        float32
}

// SampleSurfacePoints returns n world-space points spread along the mesh's
// dominant bounding-box axis. Vertices are ranked along that axis and n
// evenly spaced ranks are taken, so the result does not depend on
// triangulation order. When n covers every vertex, all vertices are returned
// in rank order.
func SampleSurfacePoints(mesh *scene.Mesh, n int) []mgl32.Vec3 {
	if mesh == nil || n <= 0 || len(mesh.Positions) == 0 {
		return nil
	}
	ranked := rankAlongAxis(mesh.Positions, scene.BoxOf(mesh.Positions).LongestAxis())
	count := len(ranked)
	if n >= count {
		out := make([]mgl32.Vec3, count)
		for i, idx := range ranked {
			out[i] = mesh.Positions[idx]
		}
		return out
	}
	out := make([]mgl32.Vec3, n)
	for i := 0; i < n; i++ {
		r := int(math.Floor((float64(i) + 0.5) * float64(count) / float64(n)))
		if r >= count {
			r = count - 1
		}
		out[i] = mesh.Positions[ranked[r]]
	}
	return out
}

// rankAlongAxis returns vertex indices ordered by coordinate on axis, ties
// broken by original index.
func rankAlongAxis(points []mgl32.Vec3, axis int) []int {
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return points[idx[a]][axis] < points[idx[b]][axis]
	})
	return idx
}

// SampleUVPhase pairs vertices with their u coordinate. Meshes with more
// vertices than maxSamples are downsampled at an even stride. A mesh without
// UVs yields nil.
func SampleUVPhase(mesh *scene.Mesh, maxSamples int) []UVSample {
	if mesh == nil || maxSamples <= 0 || !mesh.HasUVs() {
		return nil
	}
	count := len(mesh.Positions)
	take := count
	if take > maxSamples {
		take = maxSamples
	}
	out := make([]UVSample, take)
	for i := 0; i < take; i++ {
		idx := i
		if count > maxSamples {
			idx = i * count / maxSamples
		}
		out[i] = UVSample{Position: mesh.Positions[idx], U: wrap(mesh.UVs[idx].X())}
	}
	return out
}

// NearestPhase returns the u of the sample closest to point by squared
// distance. Equidistant samples resolve to the first one in the slice.
// ok is false for an empty sample set.
func NearestPhase(point mgl32.Vec3, samples []UVSample) (float32, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	best := 0
	bestDist := float32(math.MaxFloat32)
	for i, s := range samples {
		d := s.Position.Sub(point)
		dist := d.Dot(d)
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return wrap(samples[best].U), true
}

// wrap folds u into [0,1).
func wrap(u float32) float32 {
	f := u - float32(math.Floor(float64(u)))
	if f >= 1 || f < 0 {
		return 0
	}
	return f
}
