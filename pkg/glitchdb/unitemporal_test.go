package glitchdb

import "testing"

func TestVersionedCreatesVersionOne(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetVersionedPartition[string](r, "v1", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	if err := p.Set("k", "hello", nil); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	slot, ok := p.GetVersion("k", nil)
	if !ok {
		t.Fatal("expected a version to exist")
	}
	if slot.Version != 1 {
		t.Errorf("got version %d, want 1", slot.Version)
	}
	if slot.DeletedAt != InfinityTime {
		t.Errorf("got DeletedAt %d, want InfinityTime", slot.DeletedAt)
	}
}

func TestVersionedS3Scenario(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetVersionedPartition[string](r, "s3", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	if err := p.Set("song", "Gravity-v1", nil); err != nil {
		t.Fatalf("failed to set v1: %v", err)
	}
	if err := p.Set("song", "Gravity-v2", nil); err != nil {
		t.Fatalf("failed to set v2: %v", err)
	}
	if err := p.Set("song", "Gravity-v3", nil); err != nil {
		t.Fatalf("failed to set v3: %v", err)
	}

	latest, ok := p.Get("song", nil)
	if !ok || latest != "Gravity-v3" {
		t.Errorf("got (%q, %v), want (\"Gravity-v3\", true)", latest, ok)
	}

	v1 := 1
	first, ok := p.Get("song", &v1)
	if !ok || first != "Gravity-v1" {
		t.Errorf("got (%q, %v), want (\"Gravity-v1\", true)", first, ok)
	}

	all, ok := p.GetAllVersions("song")
	if !ok {
		t.Fatal("expected versions to exist")
	}
	if len(all) != 3 {
		t.Fatalf("got %d versions, want 3", len(all))
	}
	for i, slot := range all {
		wantVersion := i + 1
		if slot.Version != wantVersion {
			t.Errorf("slot %d: got version %d, want %d", i, slot.Version, wantVersion)
		}
		if wantVersion == 3 {
			if slot.DeletedAt != InfinityTime {
				t.Errorf("latest slot should have DeletedAt == InfinityTime, got %d", slot.DeletedAt)
			}
		} else if slot.DeletedAt == InfinityTime {
			t.Errorf("superseded slot %d should have a closed DeletedAt", wantVersion)
		}
	}
}

func TestVersionedMissingVersionIsAbsent(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetVersionedPartition[string](r, "missing", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	_ = p.Set("k", "v1", nil)
	v99 := 99
	if _, ok := p.Get("k", &v99); ok {
		t.Error("expected nonexistent version to be absent")
	}
}

func TestVersionedSetRejectsInvalidKey(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetVersionedPartition[string](r, "badkeys", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	err = p.Set("../escape", "v", nil)
	if err == nil {
		t.Fatal("expected an error for a path-traversing key")
	}
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind() != KindInvalidArgument {
		t.Errorf("got error %v, want KindInvalidArgument", err)
	}
}

// TestVersionedS4DeleteScenario exercises spec.md §8's S4 scenario:
// deleting a versioned key clears every version (getAllVersions and
// get(K, 1) both become absent), and a second delete is a no-op that
// reports false.
func TestVersionedS4DeleteScenario(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetVersionedPartition[string](r, "s4", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	if err := p.Set("song", "Gravity-v1", nil); err != nil {
		t.Fatalf("failed to set v1: %v", err)
	}
	if err := p.Set("song", "Gravity-v2", nil); err != nil {
		t.Fatalf("failed to set v2: %v", err)
	}

	if !p.Delete("song") {
		t.Fatal("expected first delete to report true")
	}

	if _, ok := p.GetAllVersions("song"); ok {
		t.Error("expected getAllVersions to be absent after delete")
	}
	v1 := 1
	if _, ok := p.Get("song", &v1); ok {
		t.Error("expected get(song, 1) to be absent after delete")
	}
	if _, ok := p.Get("song", nil); ok {
		t.Error("expected get(song, latest) to be absent after delete")
	}

	if p.Delete("song") {
		t.Error("expected second delete to be a no-op reporting false")
	}
}

func TestVersionedMetadataPersists(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), 1000)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	p, err := GetVersionedPartition[string](r, "meta", nil, nil)
	if err != nil {
		t.Fatalf("failed to open partition: %v", err)
	}

	meta := map[string]string{"editor": "alice"}
	if err := p.Set("k", "v1", meta); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	slot, ok := p.GetVersion("k", nil)
	if !ok {
		t.Fatal("expected a version to exist")
	}
	if slot.Metadata["editor"] != "alice" {
		t.Errorf("got metadata %+v, want editor=alice", slot.Metadata)
	}
}
