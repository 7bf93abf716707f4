package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestReviewModeString(t *testing.T) {
	tests := []struct {
		mode ReviewMode
		want string
	}{
		{ModeCalm, "calm"},
		{ModeInformative, "informative"},
		{ModeHardcore, "hardcore"},
		{ReviewMode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("ReviewMode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestParseReviewMode(t *testing.T) {
	tests := []struct {
		in   string
		want ReviewMode
	}{
		{"calm", ModeCalm},
		{"Informative", ModeInformative},
		{"HARDCORE", ModeHardcore},
		{"hardcore", ModeHardcore},
		{"  calm ", ModeCalm},
	}
	for _, tt := range tests {
		got, err := ParseReviewMode(tt.in)
		if err != nil {
			t.Errorf("ParseReviewMode(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseReviewMode(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseReviewModeRejectsUnknown(t *testing.T) {
	_, err := ParseReviewMode("chill")
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	for _, want := range []string{"chill", "calm", "informative", "hardcore"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestModeDescriptions(t *testing.T) {
	for _, m := range Modes() {
		if m.Description() == "" {
			t.Errorf("mode %s has no description", m)
		}
	}
}

func TestReviewModeJSONRoundTrip(t *testing.T) {
	for _, m := range Modes() {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", m, err)
		}
		if string(data) != `"`+m.String()+`"` {
			t.Errorf("Marshal(%s) = %s", m, data)
		}
		var got ReviewMode
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if got != m {
			t.Errorf("round trip = %s, want %s", got, m)
		}
	}
}

func TestReviewContextJSONRoundTrip(t *testing.T) {
	rc := ReviewContext{
		TotalFiles: 3,
		TotalLines: 120,
		TopFiles:   []FileEntry{{Path: "a.rs", Lines: 80, Language: "rust"}},
		LargeFiles: []FileEntry{},
		Languages:  []LanguageCount{{"rust", 2}, {"python", 1}},
		CircularDeps: [][]string{
			{"a.rs", "b.rs"},
		},
		DependencyEdges: []DependencyEdge{{From: "a.rs", To: "b.rs"}, {From: "b.rs", To: "a.rs"}},
		Mode:            ModeHardcore,
		Model:           "llama3.1",
	}

	data, err := json.Marshal(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"languages":[["rust",2],["python",1]]`) {
		t.Errorf("languages not serialized as pairs: %s", data)
	}

	var got ReviewContext
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rc) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, rc)
	}
}

func TestReviewOutputJSONRoundTrip(t *testing.T) {
	out := ReviewOutput{
		Architecture:           "layers",
		Performance:            "hot loop",
		Security:               "none",
		CodeSmells:             "long funcs",
		StructuralImprovements: "split pkg",
		Raw:                    "## Architecture\nlayers",
	}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	var got ReviewOutput
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got != out {
		t.Errorf("round trip = %+v, want %+v", got, out)
	}
}

func TestReviewOutputHasSections(t *testing.T) {
	if (ReviewOutput{}).HasSections() {
		t.Error("zero output should have no sections")
	}
	if (ReviewOutput{Raw: "text"}).HasSections() {
		t.Error("raw-only output should have no sections")
	}
	if !(ReviewOutput{Security: "x"}).HasSections() {
		t.Error("expected sections")
	}
}

func TestAppStatusString(t *testing.T) {
	tests := []struct {
		status AppStatus
		want   string
	}{
		{AppStatus{Status: StatusIdle}, "Ready"},
		{AppStatus{Status: StatusScanning}, "Scanning repository..."},
		{AppStatus{Status: StatusBuildingGraph}, "Building dependency graph..."},
		{AppStatus{Status: StatusQueryingOllama}, "Querying Ollama..."},
		{AppStatus{Status: StatusDone}, "Review complete"},
		{AppStatus{Status: StatusError, Message: "boom"}, "Error: boom"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.status.Status, got, tt.want)
		}
	}
}

func TestStatusTextRoundTrip(t *testing.T) {
	for st := StatusIdle; st <= StatusError; st++ {
		b, _ := st.MarshalText()
		var got Status
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", b, err)
		}
		if got != st {
			t.Errorf("round trip = %s, want %s", got, st)
		}
	}
}

func TestReviewContextSignalsOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(ReviewContext{Mode: ModeCalm})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"signals"`) {
		t.Errorf("empty signals should be omitted: %s", data)
	}

	rc := ReviewContext{
		Mode:    ModeCalm,
		Signals: []Signal{{Path: "a.py", Line: 3, Kind: SignalSecurity, Category: "hardcoded secret", Text: "x"}},
	}
	data, err = json.Marshal(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"kind":"security"`) {
		t.Errorf("signal kind not serialized: %s", data)
	}
}
