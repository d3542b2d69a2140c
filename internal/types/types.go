package types

// SourceMedia is one probed source video. Duration is fixed for the lifetime
// of a render job; the catalog may cache it across jobs but the engine treats
// it as read-only input.
type SourceMedia struct {
	ID       string
	Path     string
	Duration float64 // seconds
	Info     *VideoInfo
}

type VideoInfo struct {
	Codec       string
	Width       int
	Height      int
	FPS         float64
	PixelFormat string
}

// ClipDescriptor is one planned cut: Duration seconds of Source starting at
// Start. Start+Duration may run slightly past the source end after keyframe
// snapping; extraction tolerates that.
type ClipDescriptor struct {
	Source   *SourceMedia
	Start    float64 // seconds
	Duration int     // seconds, >= 1
}

func (c ClipDescriptor) End() float64 { return c.Start + float64(c.Duration) }

// SourceClips is one source's planned clips sorted by start time.
type SourceClips struct {
	Source *SourceMedia
	Clips  []ClipDescriptor
}

// ClipQueue is the per-source planner output in source order. Sequencing
// drains it destructively; callers must not reuse a queue after sequencing.
type ClipQueue []SourceClips

// TotalClips returns the number of clips across all sources.
func (q ClipQueue) TotalClips() int {
	n := 0
	for _, sc := range q {
		n += len(sc.Clips)
	}
	return n
}

// ClipSequence is the final cut order handed to extraction.
type ClipSequence []ClipDescriptor

// Allocation is the seconds budget granted to one source.
type Allocation struct {
	Source  *SourceMedia
	Seconds int
}

type AllocationPlan []Allocation

// GuardWindow bounds clip placement away from a source's head and tail.
// Inactive guards leave the whole duration usable.
type GuardWindow struct {
	Active bool
	Start  int
	End    int
}

// Len returns the usable window length in seconds.
func (g GuardWindow) Len() int { return g.End - g.Start }

// POISample is one audio-energy measurement from the energy probe.
type POISample struct {
	Timestamp float64
	Amplitude float64
}
