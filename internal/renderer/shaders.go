package renderer

import (
	"fmt"
	"strings"

	"Canopy3D/internal/effects"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// =============================================================
//
//	Shaders
//
// =============================================================
type Shader struct {
	Name           string
	vertexSource   string
	fragmentSource string
	program        uint32
	uniforms       *UniformCache
}

func NewShader(name, vertexSource, fragmentSource string) *Shader {
	return &Shader{Name: name, vertexSource: vertexSource, fragmentSource: fragmentSource}
}

// Compile builds the program. Compile and link errors are returned with the
// driver log.
func (shader *Shader) Compile() error {
	vs, err := GenShader(shader.vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return fmt.Errorf("%s vertex shader: %w", shader.Name, err)
	}
	fs, err := GenShader(shader.fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return fmt.Errorf("%s fragment shader: %w", shader.Name, err)
	}
	program, err := GenShaderProgram(vs, fs)
	if err != nil {
		return fmt.Errorf("%s program: %w", shader.Name, err)
	}
	shader.program = program
	shader.uniforms = NewUniformCache(program)
	return nil
}

func (shader *Shader) IsValid() bool { return shader != nil && shader.program != 0 }

func (shader *Shader) Use() {
	gl.UseProgram(shader.program)
}

func (shader *Shader) Delete() {
	if shader.program != 0 {
		gl.DeleteProgram(shader.program)
		shader.program = 0
		shader.uniforms.Clear()
	}
}

func (shader *Shader) SetVec3(name string, value mgl32.Vec3) {
	shader.uniforms.SetVec3(name, value.X(), value.Y(), value.Z())
}

func (shader *Shader) SetFloat(name string, value float32) {
	shader.uniforms.SetFloat(name, value)
}

func (shader *Shader) SetInt(name string, value int32) {
	shader.uniforms.SetInt(name, value)
}

func (shader *Shader) SetBool(name string, value bool) {
	v := int32(0)
	if value {
		v = 1
	}
	shader.uniforms.SetInt(name, v)
}

func (shader *Shader) SetMat4(name string, value mgl32.Mat4) {
	shader.uniforms.SetMat4(name, value)
}

var meshVertexShaderSource = `#version 410 core

layout(location = 0) in vec3 inPosition; // world space
layout(location = 1) in vec2 inTexCoord;
layout(location = 2) in vec3 inNormal;

uniform mat4 viewProjection;

out vec2 fragTexCoord;
out vec3 Normal;
out vec3 FragPos;

void main() {
    FragPos = inPosition;
    Normal = inNormal;
    fragTexCoord = inTexCoord;
    gl_Position = viewProjection * vec4(inPosition, 1.0);
}
` + "\x00"

var litFragmentShaderSource = `#version 410 core

#define MAX_SPOTS ` + fmt.Sprint(MaxSpotLights) + `
#define MAX_POINTS ` + fmt.Sprint(MaxPointLights) + `
#define MAX_SHADOWS ` + fmt.Sprint(MaxShadowMaps) + `

in vec2 fragTexCoord;
in vec3 Normal;
in vec3 FragPos;

uniform vec3 viewPos;

uniform vec3 diffuseColor;
uniform vec3 specularColor;
uniform vec3 emissiveColor;
uniform float emissiveIntensity;
uniform float shininess;
uniform float roughness;
uniform float metallic;
uniform float alpha;
uniform bool hasTexture;
uniform sampler2D textureSampler;

uniform float ambientIntensity;
uniform float directionalIntensity;
uniform vec3 sunDirection;

uniform int spotCount;
uniform vec3 spotPosition[MAX_SPOTS];
uniform vec3 spotDirection[MAX_SPOTS];
uniform vec3 spotColor[MAX_SPOTS];
uniform float spotRange[MAX_SPOTS];
uniform float spotCosOuter[MAX_SPOTS];
uniform float spotCosInner[MAX_SPOTS];
uniform int spotShadow[MAX_SPOTS];

uniform int pointCount;
uniform vec3 pointPosition[MAX_POINTS];
uniform vec3 pointColor[MAX_POINTS];
uniform float pointRange[MAX_POINTS];

uniform sampler2D shadowMaps[MAX_SHADOWS];
uniform mat4 shadowMatrices[MAX_SHADOWS];

uniform float fogDensity;
uniform vec3 fogColor;

out vec4 FragColor;

float rangeWindow(float d, float range) {
    float r = clamp(1.0 - pow(d / max(range, 1e-4), 4.0), 0.0, 1.0);
    return r * r;
}

float shadowFactor(int slot, vec3 pos, vec3 n, vec3 l) {
    float lit = 1.0;
    for (int k = 0; k < MAX_SHADOWS; k++) {
        if (k != slot) {
            continue;
        }
        vec4 ls = shadowMatrices[k] * vec4(pos, 1.0);
        vec3 p = ls.xyz / ls.w * 0.5 + 0.5;
        if (p.z > 1.0 || p.x < 0.0 || p.x > 1.0 || p.y < 0.0 || p.y > 1.0) {
            continue;
        }
        float bias = max(0.0025 * (1.0 - dot(n, l)), 0.0005);
        vec2 texel = 1.0 / vec2(textureSize(shadowMaps[k], 0));
        float sum = 0.0;
        for (int x = -1; x <= 1; x++) {
            for (int y = -1; y <= 1; y++) {
                float depth = texture(shadowMaps[k], p.xy + vec2(x, y) * texel).r;
                sum += p.z - bias > depth ? 0.0 : 1.0;
            }
        }
        lit = sum / 9.0;
    }
    return lit;
}

vec3 shade(vec3 n, vec3 v, vec3 l, vec3 radiance, vec3 albedo) {
    float diff = max(dot(n, l), 0.0);
    vec3 h = normalize(l + v);
    float gloss = max(shininess * (1.0 - roughness), 1.0);
    float spec = pow(max(dot(n, h), 0.0), gloss) * (1.0 - roughness);
    vec3 specTint = mix(specularColor, albedo, metallic);
    return (albedo * (1.0 - metallic) * diff + specTint * spec * diff) * radiance;
}

void main() {
    vec3 albedo = diffuseColor;
    if (hasTexture) {
        albedo *= texture(textureSampler, fragTexCoord).rgb;
    }
    vec3 n = normalize(Normal);
    vec3 v = normalize(viewPos - FragPos);
    if (dot(n, v) < 0.0) {
        n = -n;
    }

    vec3 color = albedo * ambientIntensity;
    color += shade(n, v, normalize(-sunDirection), vec3(directionalIntensity), albedo);

    for (int i = 0; i < spotCount; i++) {
        vec3 toLight = spotPosition[i] - FragPos;
        float d = length(toLight);
        vec3 l = toLight / max(d, 1e-4);
        float cosTheta = dot(-l, spotDirection[i]);
        float cone = smoothstep(spotCosOuter[i], spotCosInner[i], cosTheta);
        if (cone <= 0.0) {
            continue;
        }
        float atten = rangeWindow(d, spotRange[i]) / max(d * d, 1e-2);
        float lit = spotShadow[i] >= 0 ? shadowFactor(spotShadow[i], FragPos, n, l) : 1.0;
        color += shade(n, v, l, spotColor[i] * atten * cone * lit, albedo);
    }

    for (int i = 0; i < pointCount; i++) {
        vec3 toLight = pointPosition[i] - FragPos;
        float d = length(toLight);
        vec3 l = toLight / max(d, 1e-4);
        float atten = rangeWindow(d, pointRange[i]) / max(d * d, 1e-2);
        color += shade(n, v, l, pointColor[i] * atten, albedo);
    }

    color += emissiveColor * emissiveIntensity;

    float dist = length(viewPos - FragPos);
    float fog = exp(-pow(fogDensity * dist, 2.0));
    color = mix(fogColor, color, clamp(fog, 0.0, 1.0));
    FragColor = vec4(color, alpha);
}
` + "\x00"

// emissiveFragmentShaderSource evaluates the effect library per fragment
// along the U texture coordinate. It must stay numerically in line with
// effects.Surface; constants are injected from the effects package.
var emissiveFragmentShaderSource = strings.NewReplacer(
	"{{SOLID}}", fmt.Sprint(int32(effects.ShaderSolid)),
	"{{PULSE}}", fmt.Sprint(int32(effects.ShaderPulse)),
	"{{WAVE}}", fmt.Sprint(int32(effects.ShaderWave)),
	"{{RIPPLE}}", fmt.Sprint(int32(effects.ShaderRipple)),
	"{{RAINBOW_WAVE}}", fmt.Sprint(int32(effects.ShaderRainbowWave)),
	"{{RAINBOW_RIPPLE}}", fmt.Sprint(int32(effects.ShaderRainbowRipple)),
	"{{FIRE}}", fmt.Sprint(int32(effects.ShaderFire)),
	"{{OCEAN}}", fmt.Sprint(int32(effects.ShaderOcean)),
	"{{AURORA}}", fmt.Sprint(int32(effects.ShaderAurora)),
	"{{WAVE_K}}", glslFloat(effects.WaveSpatial),
	"{{RIPPLE_K}}", glslFloat(effects.RippleSpatial),
	"{{FIRE_LOW}}", glslVec3(effects.ColorFireOrange),
	"{{FIRE_HIGH}}", glslVec3(effects.ColorFireYellow),
	"{{OCEAN_LOW}}", glslVec3(effects.ColorOceanDeep),
	"{{OCEAN_HIGH}}", glslVec3(effects.ColorOceanCyan),
).Replace(`#version 410 core

#define TAU 6.28318530718
#define PI 3.14159265359

in vec2 fragTexCoord;
in vec3 Normal;
in vec3 FragPos;

uniform float time;  // reduced modulo the effect period
uniform float omega;
uniform float glowIntensity;
uniform int effectType;
uniform vec3 baseColor;

uniform vec3 viewPos;
uniform float fogDensity;
uniform vec3 fogColor;

out vec4 FragColor;

vec3 hsv(float h, float s) {
    vec3 k = clamp(abs(mod(h * 6.0 + vec3(0.0, 4.0, 2.0), 6.0) - 3.0) - 1.0, 0.0, 1.0);
    return mix(vec3(1.0), k, s);
}

float waveTerm(float x)   { return 0.6 + 0.4 * sin(x); }
float rippleTerm(float x) { return 0.55 + 0.45 * sin(x); }

void main() {
    float u = fragTexCoord.x;
    float a = omega * time;
    vec3 color = baseColor;
    float i = 1.0;

    if (effectType == {{PULSE}}) {
        i = 0.65 + 0.35 * sin(a - TAU * u);
    } else if (effectType == {{WAVE}}) {
        i = waveTerm(a - TAU * {{WAVE_K}} * u);
    } else if (effectType == {{RIPPLE}}) {
        i = rippleTerm(-TAU * {{RIPPLE_K}} * u - a);
    } else if (effectType == {{RAINBOW_WAVE}}) {
        color = hsv(fract(1.0 - u + a / TAU), 1.0);
        i = waveTerm(a - TAU * {{WAVE_K}} * u);
    } else if (effectType == {{RAINBOW_RIPPLE}}) {
        color = hsv(fract({{RIPPLE_K}} * (1.0 - u) - a / TAU), 1.0);
        i = rippleTerm(-TAU * {{RIPPLE_K}} * u - a);
    } else if (effectType == {{FIRE}}) {
        float p = 1.0 - u;
        i = 0.65 + 0.15 * sin(a + TAU * p) + 0.1 * sin(2.0 * a + 2.0 * TAU * p + 1.3)
            + 0.1 * sin(3.0 * a + 17.0 * u);
        color = mix({{FIRE_LOW}}, {{FIRE_HIGH}}, clamp((i - 0.3) / 0.7, 0.0, 1.0));
    } else if (effectType == {{OCEAN}}) {
        float p = 1.0 - u;
        i = 0.6 + 0.25 * sin(TAU * p + a) + 0.15 * sin(2.0 * TAU * p - 2.0 * a);
        color = mix({{OCEAN_LOW}}, {{OCEAN_HIGH}}, clamp((i - 0.2) / 0.8, 0.0, 1.0));
    } else if (effectType == {{AURORA}}) {
        i = 0.55 + 0.3 * sin(a - TAU * u) + 0.15 * sin(2.0 * a - 3.0 * TAU * u);
        float h = 120.0 + 160.0 * (0.5 + 0.5 * sin(TAU * (1.0 - u) + a + PI / 2.0));
        color = hsv(h / 360.0, 0.75);
    }

    vec3 emissive = color * i * glowIntensity;
    float dist = length(viewPos - FragPos);
    float fog = exp(-pow(fogDensity * dist, 2.0));
    FragColor = vec4(mix(fogColor, emissive, clamp(fog, 0.0, 1.0)), 1.0);
}
` + "\x00")

var depthVertexShaderSource = `#version 410 core
layout(location = 0) in vec3 inPosition;
uniform mat4 lightSpace;
void main() {
    gl_Position = lightSpace * vec4(inPosition, 1.0);
}
` + "\x00"

var depthFragmentShaderSource = `#version 410 core
void main() {}
` + "\x00"

var quadVertexShaderSource = `#version 410 core
layout(location = 0) in vec2 inPosition;
out vec2 uv;
void main() {
    uv = inPosition * 0.5 + 0.5;
    gl_Position = vec4(inPosition, 0.0, 1.0);
}
` + "\x00"

var brightFragmentShaderSource = `#version 410 core
in vec2 uv;
uniform sampler2D sceneTexture;
uniform float threshold;
out vec4 FragColor;
void main() {
    vec3 c = texture(sceneTexture, uv).rgb;
    float luma = dot(c, vec3(0.2126, 0.7152, 0.0722));
    float knee = max(luma - threshold, 0.0) / max(luma, 1e-4);
    FragColor = vec4(c * knee, 1.0);
}
` + "\x00"

var blurFragmentShaderSource = `#version 410 core
in vec2 uv;
uniform sampler2D source;
uniform vec2 direction;
uniform float radius;
out vec4 FragColor;
const float weights[5] = float[](0.227027, 0.1945946, 0.1216216, 0.054054, 0.016216);
void main() {
    vec2 offset = direction * radius / vec2(textureSize(source, 0));
    vec3 sum = texture(source, uv).rgb * weights[0];
    for (int i = 1; i < 5; i++) {
        sum += texture(source, uv + offset * float(i)).rgb * weights[i];
        sum += texture(source, uv - offset * float(i)).rgb * weights[i];
    }
    FragColor = vec4(sum, 1.0);
}
` + "\x00"

var compositeFragmentShaderSource = `#version 410 core
in vec2 uv;
uniform sampler2D sceneTexture;
uniform sampler2D bloomTexture;
uniform float bloomStrength;
uniform float exposure;
out vec4 FragColor;
vec3 aces(vec3 x) {
    return clamp((x * (2.51 * x + 0.03)) / (x * (2.43 * x + 0.59) + 0.14), 0.0, 1.0);
}
void main() {
    vec3 hdr = texture(sceneTexture, uv).rgb + texture(bloomTexture, uv).rgb * bloomStrength;
    vec3 mapped = aces(hdr * exposure);
    FragColor = vec4(pow(mapped, vec3(1.0 / 2.2)), 1.0);
}
` + "\x00"

var markerVertexShaderSource = `#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inColor;
uniform mat4 viewProjection;
uniform float pointSize;
out vec3 color;
void main() {
    color = inColor;
    gl_PointSize = pointSize;
    gl_Position = viewProjection * vec4(inPosition, 1.0);
}
` + "\x00"

var markerFragmentShaderSource = `#version 410 core
in vec3 color;
out vec4 FragColor;
void main() {
    FragColor = vec4(color, 1.0);
}
` + "\x00"

func glslFloat(v float64) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func glslVec3(v mgl32.Vec3) string {
	return fmt.Sprintf("vec3(%s, %s, %s)", glslFloat(float64(v[0])), glslFloat(float64(v[1])), glslFloat(float64(v[2])))
}
