package pitch

import "testing"

func TestSpectralFrameSizeFollowsLength(t *testing.T) {
	tests := []struct {
		maxLen    int
		wantFrame int
	}{
		{10, 64},
		{100, 128},
		{1104, 1024},
		{48000, 1024},
	}
	for _, tt := range tests {
		s := NewSpectral()
		if err := s.Prepare(48000, tt.maxLen); err != nil {
			t.Fatalf("Prepare(%d) error = %v", tt.maxLen, err)
		}
		if got := s.FrameSize(); got != tt.wantFrame {
			t.Fatalf("maxLen %d: FrameSize() = %d, want %d", tt.maxLen, got, tt.wantFrame)
		}
		if got := s.Hop(); got != tt.wantFrame/4 {
			t.Fatalf("maxLen %d: Hop() = %d, want %d", tt.maxLen, got, tt.wantFrame/4)
		}
	}
}

func TestSpectralSetMaxFrameSize(t *testing.T) {
	s := NewSpectral()
	for _, bad := range []int{0, 32, 1000, 32768} {
		if err := s.SetMaxFrameSize(bad); err == nil {
			t.Fatalf("SetMaxFrameSize(%d) expected error", bad)
		}
	}
	if err := s.SetMaxFrameSize(256); err != nil {
		t.Fatalf("SetMaxFrameSize(256) error = %v", err)
	}
	if err := s.Prepare(48000, 4096); err != nil {
		t.Fatal(err)
	}
	if got := s.FrameSize(); got != 256 {
		t.Fatalf("FrameSize() = %d, want 256", got)
	}
}

func TestWrapPhase(t *testing.T) {
	for _, x := range []float64{-10, -3.5, 0, 1, 3.5, 10, 100} {
		got := wrapPhase(x)
		if got < -3.1415926536 || got >= 3.1415926536 {
			t.Fatalf("wrapPhase(%f) = %f out of range", x, got)
		}
	}
}
