package scene

import "github.com/go-gl/mathgl/mgl32"

// MaterialVariant is the closed set of material kinds a mesh can carry.
// Variants are chosen when the scene is classified, never probed later.
type MaterialVariant int

const (
	VariantImported MaterialVariant = iota
	VariantDefault
	VariantEmissiveToggle
	VariantPoweredOff
	VariantSemiGloss
	VariantLowReflectivity
	VariantMatteFigure
	VariantAnimatedShader
)

func (v MaterialVariant) String() string {
	switch v {
	case VariantImported:
		return "imported"
	case VariantDefault:
		return "default"
	case VariantEmissiveToggle:
		return "emissive-toggle"
	case VariantPoweredOff:
		return "powered-off"
	case VariantSemiGloss:
		return "semi-gloss"
	case VariantLowReflectivity:
		return "low-reflectivity"
	case VariantMatteFigure:
		return "matte-figure"
	case VariantAnimatedShader:
		return "animated-shader"
	}
	return "unknown"
}

// DefaultMaterial provides a basic material to fall back on
var DefaultMaterial = Material{
	Name:          "default",
	Variant:       VariantDefault,
	DiffuseColor:  mgl32.Vec3{0.8, 0.8, 0.8},
	SpecularColor: mgl32.Vec3{1.0, 1.0, 1.0},
	Shininess:     32.0,
	Metallic:      0.0,
	Roughness:     0.5,
	Alpha:         1.0,
}

type Material struct {
	// HOT DATA - read by the renderer every draw
	DiffuseColor      mgl32.Vec3
	SpecularColor     mgl32.Vec3
	EmissiveColor     mgl32.Vec3
	EmissiveIntensity float32
	Shininess         float32
	Metallic          float32 // 0.0 = dielectric, 1.0 = metallic
	Roughness         float32 // 0.0 = mirror, 1.0 = completely rough
	Alpha             float32
	TextureID         uint32
	Shader            *EmissiveShader // set only for VariantAnimatedShader

	// COLD DATA
	Variant     MaterialVariant
	Name        string
	TexturePath string
}

// NewDefaultMaterial returns a fresh copy of DefaultMaterial so callers
// never alias the package-level value.
func NewDefaultMaterial() *Material {
	m := DefaultMaterial
	return &m
}

// Clone returns an independent copy. The shader pointer is dropped because
// animated shaders are owned per mesh.
func (m *Material) Clone() *Material {
	if m == nil {
		return NewDefaultMaterial()
	}
	c := *m
	c.Shader = nil
	return &c
}

// Complete fills defaults into materials that arrived with only a name,
// as MTL files frequently do.
func (m *Material) Complete() {
	if m.Alpha == 0 && m.Roughness == 0 && m.Shininess == 0 {
		m.Alpha = 1.0
		m.Roughness = 0.5
		m.Shininess = 32.0
	}
}

func (m *Material) IsEmissive() bool {
	return m.EmissiveIntensity > 0 && m.EmissiveColor != (mgl32.Vec3{})
}

// PoweredDown derives the inert look shown when a lighting group is off.
// The emissive term is zeroed on a clone, the receiver is left untouched.
func (m *Material) PoweredDown() *Material {
	c := m.Clone()
	c.Variant = VariantPoweredOff
	c.Name = m.Name + ".off"
	c.EmissiveColor = mgl32.Vec3{}
	c.EmissiveIntensity = 0
	c.DiffuseColor = c.DiffuseColor.Mul(0.35)
	c.Roughness = 0.6
	return c
}

// Preset materials for the classified roles

func (m *Material) SetPlastic(roughness float32) {
	m.Metallic = 0.0
	m.Roughness = roughness
}

func (m *Material) SetMatte() {
	m.SetPlastic(0.95)
	m.SpecularColor = mgl32.Vec3{0.05, 0.05, 0.05}
	m.Shininess = 4
}

func (m *Material) SetSemiGloss() {
	m.SetPlastic(0.35)
	m.SpecularColor = mgl32.Vec3{0.5, 0.5, 0.5}
	m.Shininess = 48
}
