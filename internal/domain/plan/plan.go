// Package plan turns a source's allocated seconds into concrete clips.
package plan

// Params tunes both planners. Zero values fall back to the defaults the
// compiler has always shipped with.
type Params struct {
	BigParts     int // windows per source
	SmallPerBig  int // max clips per window
	MinSmallClip int // seconds, floor for any clip

	HeadGuard int // seconds excluded at the source head
	TailGuard int // seconds excluded at the source tail

	POIMinPerBucket int     // min points kept per minute of audio
	POIMaxPerBucket int     // max points kept per minute of audio
	POICenterJitter float64 // seconds of uniform jitter around a point
	POIMaxGlobal    int     // global top-N fallback bound
}

func (p Params) withDefaults() Params {
	if p.BigParts <= 0 {
		p.BigParts = 4
	}
	if p.SmallPerBig <= 0 {
		p.SmallPerBig = 3
	}
	if p.MinSmallClip <= 0 {
		p.MinSmallClip = 2
	}
	if p.HeadGuard < 0 {
		p.HeadGuard = 0
	}
	if p.TailGuard < 0 {
		p.TailGuard = 0
	}
	if p.POIMinPerBucket <= 0 {
		p.POIMinPerBucket = 1
	}
	if p.POIMaxPerBucket < p.POIMinPerBucket {
		p.POIMaxPerBucket = p.POIMinPerBucket + 2
	}
	if p.POICenterJitter <= 0 {
		p.POICenterJitter = 2
	}
	if p.POIMaxGlobal <= 0 {
		p.POIMaxGlobal = 20
	}
	return p
}
