package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Canopy3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMTL = `
newmtl led
Kd 0.9 0.1 0.5
Ke 1 0.2 0.6
Ns 10
newmtl concrete
Kd 0.5 0.5 0.5
d 0.8
`

const testOBJ = `# pavilion
mtllib pavilion.mtl
v 0 5 0
v 10 5 0
v 10 5 1
v 0 5 1
v 0 0 0
v 20 0 0
v 20 0 20
vt 0 0
vt 1 0
vt 1 1
vt 0 1
g Edge LED
o canopy_strip
usemtl led
f 1/1 2/2 3/3 4/4
g Sod
o ground
usemtl concrete
f 5 6 7
g Emitters
o guide
l 1 2
g Wash Lights
p -3 -2 -1
`

func writeModel(t *testing.T, obj, mtl string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pavilion.obj")
	require.NoError(t, os.WriteFile(path, []byte(obj), 0o644))
	if mtl != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pavilion.mtl"), []byte(mtl), 0o644))
	}
	return path
}

func TestLoadGroupsBecomeLayers(t *testing.T) {
	s, err := Load(writeModel(t, testOBJ, testMTL), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Edge LED", "Sod", "Emitters", "Wash Lights"}, s.LayerNames())
	require.Len(t, s.Meshes, 4)

	strip := s.MeshesOnLayer(0)
	require.Len(t, strip, 1)
	m := strip[0]
	assert.Equal(t, scene.Triangles, m.Kind)
	assert.Len(t, m.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, m.Indices)
	require.True(t, m.HasUVs())
	assert.Equal(t, mgl32.Vec2{1, 0}, m.UVs[1])
	assert.Equal(t, float32(1), m.Imported.EmissiveIntensity)
	assert.Equal(t, mgl32.Vec3{0.9, 0.1, 0.5}, s.Layers[0].Color)

	// normals were missing, so they were computed
	for _, n := range m.Normals {
		assert.InDelta(t, 1, n.Len(), 1e-5)
	}
	assert.Equal(t, mgl32.Vec3{10, 5, 1}, m.Bounds.Max)
}

func TestLoadLinesAndPoints(t *testing.T) {
	s, err := Load(writeModel(t, testOBJ, testMTL), nil)
	require.NoError(t, err)

	guide := s.MeshesOnLayer(2)
	require.Len(t, guide, 1)
	assert.Equal(t, scene.Lines, guide[0].Kind)
	assert.Equal(t, []mgl32.Vec3{{0, 5, 0}, {10, 5, 0}}, guide[0].Positions)

	points := s.MeshesOnLayer(3)
	require.Len(t, points, 1)
	assert.Equal(t, scene.Points, points[0].Kind)
	// negative indices are relative to the end of the vertex list
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, points[0].Positions[0])
	assert.Equal(t, mgl32.Vec3{20, 0, 20}, points[0].Positions[2])
}

func TestLoadMaterialsAreClonedPerMesh(t *testing.T) {
	obj := testOBJ + "g Edge LED\no second_strip\nusemtl led\nf 1 2 3\n"
	s, err := Load(writeModel(t, obj, testMTL), nil)
	require.NoError(t, err)
	edge := s.MeshesOnLayer(0)
	require.Len(t, edge, 2)
	assert.NotSame(t, edge[0].Imported, edge[1].Imported)
	assert.Equal(t, edge[0].Imported.Name, edge[1].Imported.Name)
}

func TestLoadWithoutMaterialLibrary(t *testing.T) {
	s, err := Load(writeModel(t, testOBJ, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, scene.VariantDefault, s.Meshes[0].Imported.Variant)
}

func TestLoadDefaultLayer(t *testing.T) {
	s, err := Load(writeModel(t, "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n", ""), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultLayer}, s.LayerNames())
}

func TestLoadReportsProgress(t *testing.T) {
	path := writeModel(t, testOBJ, testMTL)
	info, err := os.Stat(path)
	require.NoError(t, err)

	var last, total int64
	_, err = Load(path, func(loaded, all int64) {
		assert.GreaterOrEqual(t, loaded, last)
		last, total = loaded, all
	})
	require.NoError(t, err)
	assert.Equal(t, info.Size(), total)
	assert.Equal(t, info.Size(), last)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.obj"), nil)
	assert.Error(t, err)

	_, err = Load(writeModel(t, "# nothing\nv 0 0 0\n", ""), nil)
	assert.True(t, errors.Is(err, ErrNoGeometry))

	_, err = Load(writeModel(t, "v 0 0 0\nf 1 2 3\n", ""), nil)
	assert.ErrorContains(t, err, "out of range")

	_, err = Load(writeModel(t, "v 0 zero 0\n", ""), nil)
	assert.ErrorContains(t, err, "pavilion.obj:1")
}

func TestLoadAsync(t *testing.T) {
	ch := LoadAsync(writeModel(t, testOBJ, testMTL), nil)
	select {
	case res := <-ch:
		require.NoError(t, res.Err)
		assert.Len(t, res.Scene.Meshes, 4)
	case <-time.After(5 * time.Second):
		t.Fatal("async load did not complete")
	}

	ch = LoadAsync(filepath.Join(t.TempDir(), "missing.obj"), nil)
	res := <-ch
	assert.Error(t, res.Err)
	assert.Nil(t, res.Scene)
}

func TestParseFace(t *testing.T) {
	face, err := parseFace([]string{"1/1/1", "2/2/1", "3/3/1", "4/4/1", "5/5/1"}, 5, 5, 1)
	require.NoError(t, err)
	assert.Len(t, face, 9)
	assert.Equal(t, int32(0), face[3].VertexIdx)
	assert.Equal(t, int32(0), face[0].NormalIdx)

	_, err = parseFace([]string{"1", "2"}, 3, 0, 0)
	assert.Error(t, err)

	face, err = parseFace([]string{"1//1", "2//1", "3//1"}, 3, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), face[0].TexCoordIdx)
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, parseColor([]string{"0.1", "0.2", "0.3"}))
	assert.Equal(t, [3]float32{0, 0.2, 0}, parseColor([]string{"x", "0.2", "y"}))
}
