package redis

import (
	"testing"
	"time"
)

func TestDedupKey(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC)

	got := dedupKey("locations", "dev-1", ts, "ab12")
	want := "dedup:locations:dev-1:1714557600123:ab12"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if dedupKey("sms", "dev-1", ts, "ab12") == got {
		t.Errorf("expected kind to be part of the key")
	}
	if dedupKey("locations", "dev-1", ts, "cd34") == got {
		t.Errorf("expected payload digest to be part of the key")
	}
}

func TestDecide(t *testing.T) {
	window := time.Minute

	d := decide(3, 5, 40*time.Second, window)
	if !d.Allowed || d.Remaining != 2 || d.RetryAfter != 0 {
		t.Errorf("under limit: unexpected decision %+v", d)
	}

	d = decide(5, 5, 40*time.Second, window)
	if !d.Allowed || d.Remaining != 0 {
		t.Errorf("at limit: unexpected decision %+v", d)
	}

	d = decide(6, 5, 40*time.Second, window)
	if d.Allowed || d.RetryAfter != 40*time.Second || d.Remaining != 0 {
		t.Errorf("over limit: unexpected decision %+v", d)
	}

	d = decide(6, 5, -1, window)
	if d.RetryAfter != window {
		t.Errorf("missing ttl: expected retry after window, got %v", d.RetryAfter)
	}
}
