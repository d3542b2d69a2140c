// Package music prepares music projects for beat-synced compilations:
// it derives intensity segments from a track's energy curve and stores them
// as a project manifest the renderer can cut against.
package music

import (
	"math"

	"github.com/almikh/pmvgen/internal/types"
)

const (
	minSegmentLen   = 0.1 // seconds, hard floor after merging
	uniformFloorLen = 0.5
)

type Segment struct {
	Index     int     `json:"index"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Duration  float64 `json:"duration"`
	Intensity float64 `json:"intensity"`
}

// BuildUniform slices totalDuration into fixed-length segments of full
// intensity.
func BuildUniform(totalDuration, segmentLen float64) []Segment {
	if totalDuration <= 0 {
		return nil
	}
	if segmentLen < uniformFloorLen {
		segmentLen = uniformFloorLen
	}
	var out []Segment
	start := 0.0
	for idx := 0; start < totalDuration; idx++ {
		end := start + segmentLen
		if end > totalDuration {
			end = totalDuration
		}
		out = append(out, Segment{
			Index:     idx,
			Start:     round3(start),
			End:       round3(end),
			Duration:  round3(math.Max(minSegmentLen, end-start)),
			Intensity: 1.0,
		})
		start = end
	}
	return out
}

// BuildFromEnergy turns the energy curve into segments: every sample opens a
// raw segment weighted by its normalized amplitude, and the raw list is then
// merged so loud passages cut faster than quiet ones.
func BuildFromEnergy(samples []types.POISample, baseLen float64) []Segment {
	if len(samples) == 0 {
		return nil
	}
	norm := normalizeAmplitudes(samples)

	raw := make([]Segment, len(samples))
	for i, s := range samples {
		end := s.Timestamp + baseLen
		if i+1 < len(samples) {
			end = samples[i+1].Timestamp
		}
		raw[i] = Segment{
			Index:     i,
			Start:     round3(s.Timestamp),
			End:       round3(end),
			Duration:  round3(math.Max(minSegmentLen, end-s.Timestamp)),
			Intensity: round3(norm[i]),
		}
	}

	mins := DynamicMinDurations(samples, baseLen)
	return MergeByDuration(raw, baseLen, mins)
}

// DynamicMinDurations maps each sample's energy to a minimum segment length:
// high energy shortens segments, low energy stretches them.
func DynamicMinDurations(samples []types.POISample, baseLen float64) []float64 {
	if len(samples) == 0 {
		return nil
	}
	norm := normalizeAmplitudes(samples)
	fastLen := math.Max(0.35, baseLen*0.5)
	slowLen := math.Max(baseLen, baseLen*1.8)

	out := make([]float64, len(samples))
	for i := range samples {
		out[i] = slowLen + (fastLen-slowLen)*norm[i]
	}
	return out
}

// MergeByDuration accumulates consecutive segments until the running length
// reaches the minimum in force, then flushes one merged segment whose
// intensity is the duration-weighted mean of its parts. dynamicMins, when
// given, overrides minDuration per starting segment.
func MergeByDuration(segments []Segment, minDuration float64, dynamicMins []float64) []Segment {
	if len(segments) == 0 {
		return nil
	}

	var merged []Segment
	accStart, accEnd := -1.0, -1.0
	accDuration, accEnergy := 0.0, 0.0
	threshold := math.Max(minSegmentLen, minDuration)

	flush := func() {
		if accStart < 0 || accDuration <= 0 {
			return
		}
		intensity := accEnergy / accDuration
		if intensity < 0 {
			intensity = 0
		}
		if intensity > 1 {
			intensity = 1
		}
		merged = append(merged, Segment{
			Index:     len(merged),
			Start:     round3(accStart),
			End:       round3(accEnd),
			Duration:  round3(accDuration),
			Intensity: round3(intensity),
		})
		accStart, accEnd = -1, -1
		accDuration, accEnergy = 0, 0
	}

	for i, seg := range segments {
		if accStart < 0 {
			accStart = seg.Start
			if i < len(dynamicMins) {
				threshold = math.Max(minSegmentLen, dynamicMins[i])
			} else {
				threshold = math.Max(minSegmentLen, minDuration)
			}
		}
		accEnd = seg.End
		accDuration += seg.Duration
		accEnergy += seg.Intensity * seg.Duration
		if accDuration >= threshold {
			flush()
		}
	}
	flush()

	if len(merged) == 0 {
		return segments
	}
	return merged
}

func normalizeAmplitudes(samples []types.POISample) []float64 {
	maxAmp := 0.0
	for _, s := range samples {
		if s.Amplitude > maxAmp {
			maxAmp = s.Amplitude
		}
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		if maxAmp > 0 {
			out[i] = s.Amplitude / maxAmp
		}
	}
	return out
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
