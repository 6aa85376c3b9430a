package prefabs

import (
	"errors"
	"fmt"

	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs/component"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSettings = errors.New("prefabs: invalid world settings")

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// WorldSettings is world.yaml: simulation constants and runner options.
type WorldSettings struct {
	Gravity  [3]float32 `yaml:"gravity"`
	TimeStep float32    `yaml:"time_step"`
	Steps    int        `yaml:"steps"`
	LogLevel string     `yaml:"log_level"`
	Script   string     `yaml:"script"`
	FeedAddr string     `yaml:"feed_addr"`
	Scene    string     `yaml:"scene"`
}

const WorldSettingsFile = "world.yaml"

func DefaultWorldSettings() WorldSettings {
	g := component.DefaultGravity.Vector
	return WorldSettings{
		Gravity:  [3]float32{g.X(), g.Y(), g.Z()},
		TimeStep: 1.0 / 60.0,
		Steps:    600,
		LogLevel: "info",
	}
}

// GravityValue converts the configured vector.
func (s WorldSettings) GravityValue() component.Gravity {
	return component.Gravity{Vector: vec3(s.Gravity)}
}

func (s WorldSettings) Validate() error {
	if !(s.TimeStep > 0) {
		return fmt.Errorf("%w: time_step %v", ErrInvalidSettings, s.TimeStep)
	}
	if s.Steps < 0 {
		return fmt.Errorf("%w: steps %d", ErrInvalidSettings, s.Steps)
	}
	return nil
}

// ParseWorldSettings decodes data over the defaults, so omitted keys keep
// their default values.
func ParseWorldSettings(data []byte) (WorldSettings, error) {
	s := DefaultWorldSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return WorldSettings{}, fmt.Errorf("prefabs: unmarshal %s: %w", WorldSettingsFile, err)
	}
	if err := s.Validate(); err != nil {
		return WorldSettings{}, err
	}
	return s, nil
}

func LoadWorldSettings() (WorldSettings, error) {
	data, err := Load(WorldSettingsFile)
	if err != nil {
		return WorldSettings{}, fmt.Errorf("prefabs: load %s: %w", WorldSettingsFile, err)
	}
	return ParseWorldSettings(data)
}

// SceneSpec places prefabs in a world.
type SceneSpec struct {
	Name   string          `yaml:"name"`
	Bodies []SceneBodySpec `yaml:"bodies"`
}

type SceneBodySpec struct {
	Prefab   string      `yaml:"prefab"`
	Position *[3]float32 `yaml:"position"`
}

func LoadSceneSpec(filename string) (SceneSpec, error) {
	return LoadSpec[SceneSpec](filename)
}

type ColliderComponentSpec struct {
	Shape       string     `yaml:"shape"`
	Radius      float32    `yaml:"radius"`
	HalfSegment float32    `yaml:"half_segment"`
	HalfExtents [3]float32 `yaml:"half_extents"`
}

type MaterialComponentSpec struct {
	Restitution float32  `yaml:"restitution"`
	Density     *float32 `yaml:"density"`
}

type VelocityComponentSpec struct {
	Linear  [3]float32 `yaml:"linear"`
	Angular [3]float32 `yaml:"angular"`
}

type TransformComponentSpec struct {
	Position [3]float32 `yaml:"position"`
	// Rotation is an axis-angle vector in radians.
	Rotation [3]float32 `yaml:"rotation"`
}

type GravityScaleComponentSpec struct {
	Scale float32 `yaml:"scale"`
}

// CollisionLayerComponentSpec holds category and mask bits. Zero values
// mean category 1 and all categories.
type CollisionLayerComponentSpec struct {
	Category uint32 `yaml:"category"`
	Mask     uint32 `yaml:"mask"`
}

func vec3(v [3]float32) common.Vec3 {
	return common.Vec3{v[0], v[1], v[2]}
}
