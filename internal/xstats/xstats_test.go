package xstats

import "testing"

func TestSummaryCounts(t *testing.T) {
	s := New()
	if s.RunID() == "" {
		t.Fatal("expected a non-empty run ID")
	}
	s.IncSkipped(StageMesh)
	s.IncSkipped(StageMesh)
	s.IncFailed(StageMesh)

	got := s.Summary(StageMesh)
	want := "mesh: 2 skipped, 1 failed"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSetRemaining(t *testing.T) {
	s := New()
	s.SetRemaining(StageTexture, 42) // exercises the gauge without asserting internal prometheus state
}
