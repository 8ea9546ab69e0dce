package glitchdb

import "testing"

func TestPlainRoundTrip(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	p, err := GetPartition[string](r, "songs", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	if err := p.Set("k1", "v1"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if got, ok := p.Get("k1"); !ok || got != "v1" {
		t.Errorf("got (%q, %v), want (\"v1\", true)", got, ok)
	}
}

func TestPlainS1Scenario(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetPartition[string](r, "s1", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	_ = p.Set("k1", "v1")
	_ = p.Set("k2", "v2")
	_ = p.Set("k3", "v3")
	if !p.Delete("k3") {
		t.Fatal("expected delete of k3 to report true")
	}

	keys, err := p.Keys()
	if err != nil {
		t.Fatalf("failed to list keys: %v", err)
	}
	wantKeys := map[string]bool{"k1": true, "k2": true}
	if len(keys) != len(wantKeys) {
		t.Fatalf("got keys %v, want %v", keys, wantKeys)
	}
	for _, k := range keys {
		if !wantKeys[k] {
			t.Errorf("unexpected key %q", k)
		}
	}

	if _, ok := p.Get("k3"); ok {
		t.Error("expected k3 to be absent after delete")
	}

	data, err := p.Data()
	if err != nil {
		t.Fatalf("failed to aggregate data: %v", err)
	}
	if len(data) != 2 || data["k1"] != "v1" || data["k2"] != "v2" {
		t.Errorf("got data %+v, want {k1:v1, k2:v2}", data)
	}
}

func TestPlainS2IndexedScenario(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetPartition[map[string]any](r, "s2", []string{"artist"}, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	record := map[string]any{"song": "Gravity", "artist": "John Mayer"}
	if err := p.Set("gravity", record); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	got, ok := p.Get("John Mayer")
	if !ok {
		t.Fatal("expected alt-key lookup to succeed")
	}
	if got["artist"] != "John Mayer" {
		t.Errorf("got %+v, want artist John Mayer", got)
	}

	updated := map[string]any{"song": "Gravity", "artist": "John Mayerz"}
	if err := p.Set("gravity", updated); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	if _, ok := p.Get("John Mayer"); ok {
		t.Error("expected stale alt-key to be absent after reindex")
	}
	got2, ok := p.Get("John Mayerz")
	if !ok {
		t.Fatal("expected new alt-key lookup to succeed")
	}
	if got2["artist"] != "John Mayerz" {
		t.Errorf("got %+v, want artist John Mayerz", got2)
	}
}

func TestPlainLen(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetPartition[string](r, "lentest", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	n, err := p.Len()
	if err != nil {
		t.Fatalf("failed to get length: %v", err)
	}
	if n != 0 {
		t.Errorf("got length %d, want 0 on an empty partition", n)
	}

	_ = p.Set("k1", "v1")
	_ = p.Set("k2", "v2")

	n, err = p.Len()
	if err != nil {
		t.Fatalf("failed to get length: %v", err)
	}
	if n != 2 {
		t.Errorf("got length %d, want 2", n)
	}
}

func TestPlainSetRejectsInvalidKey(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetPartition[string](r, "badkeys", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	cases := []string{"", "../../etc/passwd", "a/b", "a\\b", "__index__"}
	for _, key := range cases {
		err := p.Set(key, "v")
		if err == nil {
			t.Errorf("Set(%q, ...) succeeded, want KindInvalidArgument", key)
			continue
		}
		gerr, ok := err.(*Error)
		if !ok || gerr.Kind() != KindInvalidArgument {
			t.Errorf("Set(%q, ...) got error %v, want KindInvalidArgument", key, err)
		}
	}

	if p.Exists("__index__") {
		t.Error("rejected key must never reach disk")
	}
}

func TestPlainExists(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetPartition[string](r, "exists", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	if p.Exists("missing") {
		t.Error("expected Exists to report false before write")
	}
	_ = p.Set("k", "v")
	if !p.Exists("k") {
		t.Error("expected Exists to report true after write")
	}
}
