package codec

import "testing"

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	in := payload{Name: "gravity", Age: 7}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var out payload
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestTryUnmarshalSwallowsError(t *testing.T) {
	var out map[string]any
	if TryUnmarshal([]byte("not json"), &out) {
		t.Error("expected TryUnmarshal to report failure on malformed input")
	}
}

func TestTryUnmarshalSucceeds(t *testing.T) {
	var out map[string]any
	if !TryUnmarshal([]byte(`{"a":1}`), &out) {
		t.Fatal("expected TryUnmarshal to succeed on valid input")
	}
	if out["a"].(float64) != 1 {
		t.Errorf("unexpected decoded value: %+v", out)
	}
}
