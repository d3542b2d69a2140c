package ffmpeg

import "testing"

func TestParseEnergyOutput(t *testing.T) {
	t.Parallel()

	out := `frame:0    pts:0       pts_time:0
lavfi.astats.Overall.RMS_level=-20.000000
frame:1    pts:8000    pts_time:1
lavfi.astats.Overall.RMS_level=-40.000000
frame:2    pts:16000   pts_time:2
lavfi.astats.Overall.RMS_level=-inf
frame:3    pts:24000   pts_time:3
lavfi.astats.Overall.RMS_level=-6.020600
`
	samples := parseEnergyOutput(out)
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3 (the -inf frame is dropped)", len(samples))
	}
	if samples[0].Timestamp != 0 || samples[1].Timestamp != 1 || samples[2].Timestamp != 3 {
		t.Fatalf("timestamps = %v", samples)
	}
	// -20 dB is 0.1 linear, -6.02 dB is ~0.5
	if got := samples[0].Amplitude; got < 0.099 || got > 0.101 {
		t.Fatalf("amplitude for -20dB = %v, want ~0.1", got)
	}
	if got := samples[2].Amplitude; got < 0.49 || got > 0.51 {
		t.Fatalf("amplitude for -6.02dB = %v, want ~0.5", got)
	}
	if samples[1].Amplitude >= samples[0].Amplitude {
		t.Fatal("quieter frame must have lower amplitude")
	}
}

func TestParseEnergyOutput_Garbage(t *testing.T) {
	t.Parallel()

	if got := parseEnergyOutput("not ffmpeg output at all\n"); len(got) != 0 {
		t.Fatalf("garbage input produced samples: %v", got)
	}
	if got := parseEnergyOutput(""); len(got) != 0 {
		t.Fatalf("empty input produced samples: %v", got)
	}
}

func TestParseRate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97},
		{"25", 25},
		{"0/0", 0},
		{"garbage", 0},
	}
	for _, tc := range cases {
		got := parseRate(tc.in)
		if diff := got - tc.want; diff < -0.01 || diff > 0.01 {
			t.Fatalf("parseRate(%q) = %v, want ~%v", tc.in, got, tc.want)
		}
	}
}
