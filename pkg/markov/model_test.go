package markov

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestModelJSONRoundTrip(t *testing.T) {
	m := buildTestModel(t)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, m); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), `{"bigram":{"^":`) {
		t.Errorf("unexpected encoding prefix: %.40s", buf.String())
	}

	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() failed: %v", err)
	}
	assertSameModel(t, m, got)
}

func TestReadJSONKeepsFileOrder(t *testing.T) {
	data := `{"bigram":{"z":{"b":0.25,"a":0.75},"a":{"$":1}},"starters":{"za":0.5,"az":0.5}}`

	m, err := ReadJSON(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadJSON() failed: %v", err)
	}
	if got := strings.Join(m.From(), ""); got != "za" {
		t.Errorf("from order = %q, want \"za\"", got)
	}
	d, _ := m.Next("z")
	if got := strings.Join(d.Keys(), ""); got != "ba" {
		t.Errorf("next order = %q, want \"ba\"", got)
	}
	if got := strings.Join(m.Starters().Keys(), ","); got != "za,az" {
		t.Errorf("starter order = %q, want \"za,az\"", got)
	}
}

func TestReadJSONCorrupt(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"empty", ``},
		{"truncated", `{"bigram":{"a":{"b":1}},"starters":{"ab":`},
		{"not an object", `[1,2,3]`},
		{"missing starters", `{"bigram":{"a":{"b":1}}}`},
		{"missing bigram", `{"starters":{"ab":1}}`},
		{"negative probability", `{"bigram":{"a":{"b":1.5,"c":-0.5}},"starters":{"ab":1}}`},
		{"does not sum to one", `{"bigram":{"a":{"b":0.4,"c":0.4}},"starters":{"ab":1}}`},
		{"empty from distribution", `{"bigram":{"a":{}},"starters":{"ab":1}}`},
		{"starter too long", `{"bigram":{"a":{"b":1}},"starters":{"abc":1}}`},
		{"multi character symbol", `{"bigram":{"ab":{"c":1}},"starters":{"ab":1}}`},
		{"string probability", `{"bigram":{"a":{"b":"1"}},"starters":{"ab":1}}`},
		{"duplicate key", `{"bigram":{"a":{"b":0.5,"b":0.5}},"starters":{"ab":1}}`},
		{"trailing garbage", `{"bigram":{"a":{"b":1}},"starters":{"ab":1}}}}}garbage`},
		{"second document", `{"bigram":{"a":{"b":1}},"starters":{"ab":1}} {"bigram":{}}`},
		{"null probability", `{"bigram":{"a":{"b":null,"c":1}},"starters":{"ab":1}}`},
		{"null starter probability", `{"bigram":{"a":{"b":1}},"starters":{"ab":null,"ba":1}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tc.data))
			if !errors.Is(err, ErrCorruptModel) {
				t.Errorf("ReadJSON() error = %v, want ErrCorruptModel", err)
			}
		})
	}
}

func TestReadJSONToleratesRounding(t *testing.T) {
	data := `{"bigram":{"a":{"b":0.3333333,"c":0.6666666}},"starters":{"ab":1}}`
	if _, err := ReadJSON(strings.NewReader(data)); err != nil {
		t.Errorf("ReadJSON() error = %v, want nil for a sum within tolerance", err)
	}
}

func TestModelStats(t *testing.T) {
	m := NewModel(
		NewDistribution(Outcome{"ab", 0.5}, Outcome{"ba", 0.5}),
		Transition{From: "^", Next: NewDistribution(Outcome{"a", 0.5}, Outcome{"b", 0.5})},
		Transition{From: "a", Next: NewDistribution(Outcome{"b", 1})},
		Transition{From: "c", Next: NewDistribution()},
	)
	want := ModelStats{FromStates: 2, Transitions: 3, Starters: 2}
	if got := m.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
	if _, ok := m.Next("c"); ok {
		t.Error("an empty transition must be dropped")
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "models")
	store := FileStore{Dir: dir}
	m := buildTestModel(t)

	if err := store.Save(ctx, "eva", m); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "eva.json")); err != nil {
		t.Fatalf("model file not written: %v", err)
	}

	got, err := store.Load(ctx, "eva")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	assertSameModel(t, m, got)

	// Saving again replaces the model.
	small := NewModel(NewDistribution(Outcome{"ab", 1}))
	if err := store.Save(ctx, "eva", small); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}
	got, err = store.Load(ctx, "eva")
	if err != nil {
		t.Fatalf("Load() after replace failed: %v", err)
	}
	assertSameModel(t, small, got)
}

func TestFileStoreErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := FileStore{Dir: dir}

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrModelNotFound", err)
	}

	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := store.Save(ctx, name, buildTestModel(t)); err == nil {
			t.Errorf("Save(%q) succeeded, want invalid name error", name)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"bigram":`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "broken"); !errors.Is(err, ErrCorruptModel) {
		t.Errorf("Load(broken) error = %v, want ErrCorruptModel", err)
	}
}
