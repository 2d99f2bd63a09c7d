package media

import (
	"context"
	"errors"
	"testing"
)

func TestBadgerStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := OpenBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	defer s.Close()

	in := Clip{Samples: []float64{0.5, -0.5, 0.25}, SampleRate: 48000}
	if err := s.Put(ctx, "clips/seg-1", in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	out, err := s.Get(ctx, "clips/seg-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.SampleRate != in.SampleRate {
		t.Errorf("rate = %d, want %d", out.SampleRate, in.SampleRate)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("samples = %d, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Errorf("sample %d = %v, want %v", i, out.Samples[i], in.Samples[i])
		}
	}

	if _, err := s.Get(ctx, "clips/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBadgerStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s, err := OpenBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	defer s.Close()

	if err := s.Put(ctx, "clips/x", Clip{Samples: []float64{1}, SampleRate: 8000}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "clips/x", Clip{Samples: []float64{2, 3}, SampleRate: 16000}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "clips/x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Samples) != 2 || got.SampleRate != 16000 {
		t.Errorf("got %d samples @ %d Hz, want 2 @ 16000", len(got.Samples), got.SampleRate)
	}
}
