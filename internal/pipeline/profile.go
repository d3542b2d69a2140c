package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the optional render profile file. Every field has a working
// default; a missing profile is not an error.
type Profile struct {
	PerFileMax   int `yaml:"per_file_max"`
	HeadGuard    int `yaml:"head_guard"`
	TailGuard    int `yaml:"tail_guard"`
	MinSmallClip int `yaml:"min_small_clip"`
	BigParts     int `yaml:"big_parts"`
	SmallPerBig  int `yaml:"small_per_big"`

	AssumedBitrateBps int64    `yaml:"assumed_bitrate_bps"`
	MaxOutputBytes    int64    `yaml:"max_output_bytes"`
	SnapKeyframes     *bool    `yaml:"snap_keyframes,omitempty"` // nil = true
	TempCandidates    []string `yaml:"temp_candidates"`
}

func DefaultProfile() Profile {
	return Profile{
		PerFileMax:        120,
		HeadGuard:         60,
		TailGuard:         60,
		MinSmallClip:      2,
		BigParts:          4,
		SmallPerBig:       3,
		AssumedBitrateBps: 8_000_000,
		MaxOutputBytes:    16 << 30,
	}
}

func (p Profile) SnapKeyframesValue() bool {
	if p.SnapKeyframes == nil {
		return true
	}
	return *p.SnapKeyframes
}

// LoadProfile reads a yaml profile over the defaults.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse profile: %w", err)
	}
	return p, nil
}
