// Package rig derives emitter lights from classified geometry. Nothing here
// is authored in the model: positions, aim, throw and intensity all come
// from scene-scale heuristics tuned through Config.
package rig

import (
	"sort"

	"Canopy3D/internal/effects"
	"Canopy3D/internal/layers"
	"Canopy3D/internal/logger"
	"Canopy3D/internal/sampler"
	"Canopy3D/internal/scene"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// placement is one emitter position before photometry is applied.
type placement struct {
	pos      mgl32.Vec3
	source   *scene.Mesh
	segments int  // lights sharing the rig the placement belongs to
	central  bool // the rig's shadow nominee
	follows  bool
}

type synth struct {
	cfg       Config
	bounds    scene.Box3
	groundY   float32
	modelSize float32
}

// Synthesize builds the emitter rig for a classified scene. Groups without
// candidates produce no emitters and no error.
func Synthesize(c *layers.Classified, bounds scene.Box3, cfg Config) *Rig {
	r := &Rig{}
	if c == nil || bounds.IsEmpty() {
		return r
	}
	s := &synth{
		cfg:       cfg,
		bounds:    bounds,
		groundY:   bounds.Min.Y() + cfg.GroundAimOffset,
		modelSize: bounds.MaxDimension(),
	}

	base := s.base(c.ByRole(layers.RoleBaseLight))
	edge, guided := s.edge(c, s.cfg.MaxSpotEmitters-len(base))
	wash := s.wash(c.ByRole(layers.RoleWashLight))

	for _, grp := range []struct {
		g  Group
		es []*Emitter
	}{{GroupEdge, edge}, {GroupBase, base}, {GroupWash, wash}} {
		shadows := 0
		for i, e := range grp.es {
			e.ID = emitterID(grp.g, i, e.Source)
			if e.CastsShadow {
				shadows++
			}
		}
		r.Emitters = append(r.Emitters, grp.es...)
		logger.Log.Info("Synthesized light rig",
			zap.String("group", grp.g.String()),
			zap.Int("emitters", len(grp.es)),
			zap.Int("shadowCasters", shadows),
			zap.Bool("guided", grp.g == GroupEdge && guided))
	}
	return r
}

// edge places spot lights for the edge-light group, preferring guide curves
// and falling back to sampling the canopy band of the edge meshes. At most
// budget spots are placed.
func (s *synth) edge(c *layers.Classified, budget int) ([]*Emitter, bool) {
	meshes := c.ByRole(layers.RoleEdgeLight)
	places := s.guidePlacements(c.ByRole(layers.RoleGuide))
	guided := len(places) > 0
	if !guided {
		places = s.fallbackPlacements(meshes)
	}
	limit := max(min(s.cfg.MaxEdgeEmitters, budget), 0)
	if len(places) > limit {
		places = places[:limit]
	}

	uv := s.uvSamples(meshes)
	out := make([]*Emitter, 0, len(places))
	var nominees []*Emitter
	for i, p := range places {
		e := s.spot(GroupEdge, p, s.cfg.ThrowPadding, s.cfg.ThrowExtensionScale,
			s.cfg.EdgeTargetLux, s.cfg.EdgeFloor(s.modelSize), s.cfg.EdgeConeAngle, s.cfg.EdgePenumbra)
		e.Phase = s.phase(p.pos, uv, i, len(places))
		out = append(out, e)
		if p.central {
			nominees = append(nominees, e)
		}
	}
	s.markShadows(nominees, s.cfg.MaxEdgeShadowCasters)
	return out, guided
}

// guidePlacements turns each guide curve into a rig along its two most
// distant points. Degenerate guides are skipped.
func (s *synth) guidePlacements(guides []*scene.Mesh) []placement {
	var out []placement
	fractions := s.cfg.GuideRigFractions
	for _, g := range guides {
		a, b, ok := farthestPair(g, s.cfg.GuideSampleLimit)
		if !ok || b.Sub(a).Len() < s.cfg.GuideMinLength {
			logger.Log.Debug("Skipping degenerate guide", zap.String("mesh", g.Name))
			continue
		}
		for i, f := range fractions {
			out = append(out, placement{
				pos:      a.Add(b.Sub(a).Mul(f)),
				source:   g,
				segments: len(fractions),
				central:  i == len(fractions)/2,
				follows:  false,
			})
		}
	}
	return out
}

type candidate struct {
	pos  mgl32.Vec3
	mesh *scene.Mesh
}

// fallbackPlacements samples the edge meshes, keeps candidates within the
// canopy band below the highest one and expands each survivor into a short
// rig along its mesh's horizontal axis.
func (s *synth) fallbackPlacements(meshes []*scene.Mesh) []placement {
	var cands []candidate
	for _, m := range meshes {
		for _, p := range sampler.SampleSurfacePoints(m, s.cfg.FallbackSamplesPerMesh) {
			cands = append(cands, candidate{p, m})
		}
	}
	if len(cands) == 0 {
		return nil
	}

	offsets := s.cfg.LocalRigOffsets
	lo, hi := offsetRange(offsets)
	extents := make(map[*scene.Mesh]rigExtent)
	extentOf := func(m *scene.Mesh) rigExtent {
		e, ok := extents[m]
		if !ok {
			mb := scene.BoxOf(m.Positions)
			e.axis = mb.LongestHorizontalAxis()
			e.min, e.max = mb.Min[e.axis], mb.Max[e.axis]
			e.spacing = (e.max - e.min) * s.cfg.LocalRigSpacingRatio
			extents[m] = e
		}
		return e
	}

	band := canopyBand(cands, s.cfg.CanopyBandRatio*s.bounds.Size().Y())
	// rigs closer than their own length would overlap
	band = mergeWithin(band, func(a, b candidate) float32 {
		return max(extentOf(a.mesh).spacing, extentOf(b.mesh).spacing) * (hi - lo)
	})
	band = evenly(band, s.cfg.FallbackMaxRigs)

	var out []placement
	for _, c := range band {
		ext := extentOf(c.mesh)
		axis := ext.axis
		centre := fitRig(c.pos[axis], lo*ext.spacing, hi*ext.spacing, ext.min, ext.max)
		for i, off := range offsets {
			pos := c.pos
			pos[axis] = centre + off*ext.spacing
			out = append(out, placement{
				pos:      pos,
				source:   c.mesh,
				segments: len(offsets),
				central:  i == len(offsets)/2,
				follows:  true,
			})
		}
	}
	return out
}

// rigExtent is a mesh's longest horizontal axis, its range on that axis and
// the spacing of a local rig laid along it.
type rigExtent struct {
	axis     int
	min, max float32
	spacing  float32
}

func offsetRange(offsets []float32) (lo, hi float32) {
	for i, o := range offsets {
		if i == 0 || o < lo {
			lo = o
		}
		if i == 0 || o > hi {
			hi = o
		}
	}
	return lo, hi
}

// fitRig shifts a rig centre so lights at centre+lo .. centre+hi stay
// inside [min, max]. A rig longer than the range is centred on it.
func fitRig(centre, lo, hi, min, max float32) float32 {
	if hi-lo > max-min {
		return (min+max)/2 - (lo+hi)/2
	}
	if centre+lo < min {
		centre = min - lo
	}
	if centre+hi > max {
		centre = max - hi
	}
	return centre
}

// canopyBand keeps candidates no farther than tolerance below the topmost.
func canopyBand(cands []candidate, tolerance float32) []candidate {
	top := float32(math32.Inf(-1))
	for _, c := range cands {
		top = max(top, c.pos.Y())
	}
	var out []candidate
	for _, c := range cands {
		if top-c.pos.Y() <= tolerance {
			out = append(out, c)
		}
	}
	return out
}

// evenly downsamples to at most n items at evenly spaced ranks.
func evenly[T any](items []T, n int) []T {
	if n <= 0 {
		return nil
	}
	if len(items) <= n {
		return items
	}
	out := make([]T, n)
	for i := range out {
		out[i] = items[(2*i+1)*len(items)/(2*n)]
	}
	return out
}

// base places one ground-aimed spot per base-light mesh at its median
// sample.
func (s *synth) base(meshes []*scene.Mesh) []*Emitter {
	limit := max(min(s.cfg.MaxBaseEmitters, s.cfg.MaxSpotEmitters), 0)
	if len(meshes) > limit {
		meshes = meshes[:limit]
	}
	uv := s.uvSamples(meshes)
	var out []*Emitter
	for _, m := range meshes {
		pts := sampler.SampleSurfacePoints(m, 1)
		if len(pts) == 0 {
			continue
		}
		p := placement{pos: pts[0], source: m, segments: 1, central: true, follows: true}
		e := s.spot(GroupBase, p, s.cfg.BaseThrowPadding, s.cfg.BaseExtensionScale,
			s.cfg.BaseTargetLux, s.cfg.MinBaseIntensity, s.cfg.BaseConeAngle, s.cfg.BasePenumbra)
		out = append(out, e)
	}
	for i, e := range out {
		e.Phase = s.phase(e.Position, uv, i, len(out))
	}
	s.markShadows(out, s.cfg.MaxBaseShadowCasters)
	return out
}

// wash places omnidirectional lights from wash meshes and point-cloud
// annotations on the wash layer. Near-duplicate candidates are merged.
func (s *synth) wash(meshes []*scene.Mesh) []*Emitter {
	var cands []candidate
	for _, m := range meshes {
		if m.Kind == scene.Points {
			for _, p := range m.Positions {
				cands = append(cands, candidate{p, m})
			}
			continue
		}
		for _, p := range sampler.SampleSurfacePoints(m, 1) {
			cands = append(cands, candidate{p, m})
		}
	}
	cands = mergeClose(cands, s.cfg.WashMergeRatio*s.modelSize)
	cands = evenly(cands, s.cfg.MaxWashEmitters)

	uv := s.uvSamples(meshes)
	out := make([]*Emitter, 0, len(cands))
	for i, c := range cands {
		height := max(c.pos.Y()-s.groundY, 0)
		d := height + s.cfg.WashPadding
		out = append(out, &Emitter{
			Kind:                    Point,
			Group:                   GroupWash,
			Position:                c.pos,
			Throw:                   d * s.cfg.WashRangeScale,
			BaseIntensity:           max(s.cfg.MinWashIntensity, s.cfg.WashTargetLux*math32.Pow(d, s.cfg.WashFalloffExponent)),
			Phase:                   s.phase(c.pos, uv, i, len(cands)),
			Source:                  c.mesh,
			FollowsSourceVisibility: true,
		})
	}
	return out
}

// mergeClose drops candidates within dist of an earlier kept one.
func mergeClose(cands []candidate, dist float32) []candidate {
	return mergeWithin(cands, func(candidate, candidate) float32 { return dist })
}

// mergeWithin drops candidates within dist(kept, c) of an earlier kept one.
func mergeWithin(cands []candidate, dist func(kept, c candidate) float32) []candidate {
	var out []candidate
	for _, c := range cands {
		dup := false
		for _, k := range out {
			v := k.pos.Sub(c.pos)
			d := dist(k, c)
			if v.Dot(v) <= d*d {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// spot builds a spot light aimed straight down at the ground plane. Its
// intensity compensates inverse-square falloff over the effective throw and
// is split across the rig's segments, never dropping below floor.
func (s *synth) spot(g Group, p placement, padding, scale, lux, floor, cone, penumbra float32) *Emitter {
	target := mgl32.Vec3{p.pos.X(), s.groundY, p.pos.Z()}
	dist := p.pos.Sub(target).Len()
	throw := (dist + padding) * scale
	segments := float32(max(p.segments, 1))
	return &Emitter{
		Kind:                    Spot,
		Group:                   g,
		Position:                p.pos,
		Target:                  target,
		HasTarget:               true,
		Throw:                   throw,
		ConeAngle:               cone,
		Penumbra:                penumbra,
		BaseIntensity:           max(floor, lux*throw*throw/segments),
		Source:                  p.source,
		FollowsSourceVisibility: p.follows,
	}
}

func (s *synth) uvSamples(meshes []*scene.Mesh) []sampler.UVSample {
	var out []sampler.UVSample
	for _, m := range meshes {
		out = append(out, sampler.SampleUVPhase(m, s.cfg.UVSampleLimit)...)
	}
	return out
}

// phase matches the emissive surface at the nearest UV sample, or spreads
// emitters by index when the group has no UVs.
func (s *synth) phase(pos mgl32.Vec3, uv []sampler.UVSample, index, count int) float32 {
	if u, ok := sampler.NearestPhase(pos, uv); ok {
		return effects.InvertPhase(u)
	}
	if count <= 0 {
		return 0
	}
	return float32(index) / float32(count)
}

// markShadows flags up to limit nominees, most central in XZ first.
func (s *synth) markShadows(nominees []*Emitter, limit int) {
	if limit <= 0 || len(nominees) == 0 {
		return
	}
	c := s.bounds.Center()
	order := make([]int, len(nominees))
	for i := range order {
		order[i] = i
	}
	xz := func(e *Emitter) float32 {
		dx, dz := e.Position.X()-c.X(), e.Position.Z()-c.Z()
		return dx*dx + dz*dz
	}
	sort.SliceStable(order, func(a, b int) bool {
		return xz(nominees[order[a]]) < xz(nominees[order[b]])
	})
	for i := 0; i < limit && i < len(order); i++ {
		nominees[order[i]].CastsShadow = true
	}
}

// farthestPair returns the two most distant points of a guide. Dense guides
// are reduced to evenly ranked samples plus the extremes of every axis.
func farthestPair(m *scene.Mesh, limit int) (mgl32.Vec3, mgl32.Vec3, bool) {
	if m == nil || len(m.Positions) < 2 {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	pts := m.Positions
	if len(pts) > limit {
		pts = append(sampler.SampleSurfacePoints(m, limit), axisExtremes(m.Positions)...)
	}
	var a, b mgl32.Vec3
	best := float32(-1)
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			v := pts[j].Sub(pts[i])
			if d := v.Dot(v); d > best {
				best, a, b = d, pts[i], pts[j]
			}
		}
	}
	return a, b, true
}

func axisExtremes(pts []mgl32.Vec3) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, 0, 6)
	for axis := 0; axis < 3; axis++ {
		lo, hi := pts[0], pts[0]
		for _, p := range pts[1:] {
			if p[axis] < lo[axis] {
				lo = p
			}
			if p[axis] > hi[axis] {
				hi = p
			}
		}
		out = append(out, lo, hi)
	}
	return out
}
