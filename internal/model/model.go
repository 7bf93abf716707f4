// Package model defines the core data types shared across repolens.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReviewMode selects the reviewer persona used to build the prompt.
type ReviewMode int

const (
	ModeCalm ReviewMode = iota
	ModeInformative
	ModeHardcore
)

// Modes lists every review mode in declaration order.
func Modes() []ReviewMode {
	return []ReviewMode{ModeCalm, ModeInformative, ModeHardcore}
}

func (m ReviewMode) String() string {
	switch m {
	case ModeCalm:
		return "calm"
	case ModeInformative:
		return "informative"
	case ModeHardcore:
		return "hardcore"
	default:
		return "unknown"
	}
}

// Description returns the human-readable persona text.
func (m ReviewMode) Description() string {
	switch m {
	case ModeCalm:
		return "Teaching tone, encouraging, suggestive"
	case ModeInformative:
		return "Structured, technical depth, prioritized"
	case ModeHardcore:
		return "Zero tolerance, aggressive critique, flags anti-patterns"
	default:
		return ""
	}
}

// ParseReviewMode parses a mode name case-insensitively.
func ParseReviewMode(s string) (ReviewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "calm":
		return ModeCalm, nil
	case "informative":
		return ModeInformative, nil
	case "hardcore":
		return ModeHardcore, nil
	}
	return 0, fmt.Errorf("unknown review mode %q: choose calm, informative, or hardcore", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m ReviewMode) MarshalText() ([]byte, error) {
	if m < ModeCalm || m > ModeHardcore {
		return nil, fmt.Errorf("invalid review mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ReviewMode) UnmarshalText(b []byte) error {
	parsed, err := ParseReviewMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// FileEntry is a single scanned source file.
type FileEntry struct {
	Path     string `json:"path"`
	Lines    int    `json:"lines"`
	Language string `json:"language"`
}

// DependencyEdge says that From depends on To.
type DependencyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SignalKind groups static signals by the review section they inform.
type SignalKind string

const (
	SignalSecurity SignalKind = "security"
	SignalSmell    SignalKind = "smell"
)

// Signal is a line in a source file that matched a static pattern worth
// pointing the reviewer at.
type Signal struct {
	Path     string     `json:"path"`
	Line     int        `json:"line"`
	Kind     SignalKind `json:"kind"`
	Category string     `json:"category"`
	Text     string     `json:"text"`
}

// LanguageCount is one row of the language histogram.
// It serializes as a two-element array: ["go", 12].
type LanguageCount struct {
	Language string
	Files    int
}

func (lc LanguageCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{lc.Language, lc.Files})
}

func (lc *LanguageCount) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("language count: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("language count: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &lc.Language); err != nil {
		return fmt.Errorf("language count name: %w", err)
	}
	if err := json.Unmarshal(pair[1], &lc.Files); err != nil {
		return fmt.Errorf("language count files: %w", err)
	}
	return nil
}

// ReviewContext is the frozen snapshot of one scan handed to the model query.
// A new scan produces a new ReviewContext; nothing mutates one after it is built.
type ReviewContext struct {
	TotalFiles      int              `json:"total_files"`
	TotalLines      int              `json:"total_lines"`
	TopFiles        []FileEntry      `json:"top_files"`
	LargeFiles      []FileEntry      `json:"large_files"`
	Languages       []LanguageCount  `json:"languages"`
	CircularDeps    [][]string       `json:"circular_deps"`
	DependencyEdges []DependencyEdge `json:"dependency_edges"`
	Signals         []Signal         `json:"signals,omitempty"`
	Mode            ReviewMode       `json:"mode"`
	Model           string           `json:"model"`
}

// ReviewOutput holds the sections of a model review. Raw always carries the
// full unprocessed response, even when the sections could not be parsed.
type ReviewOutput struct {
	Architecture           string `json:"architecture"`
	Performance            string `json:"performance"`
	Security               string `json:"security"`
	CodeSmells             string `json:"code_smells"`
	StructuralImprovements string `json:"structural_improvements"`
	Raw                    string `json:"raw"`
}

// Section is a titled block of review text.
type Section struct {
	Title string
	Body  string
}

// Sections returns the structured sections in display order.
func (o ReviewOutput) Sections() []Section {
	return []Section{
		{"Architecture", o.Architecture},
		{"Performance", o.Performance},
		{"Security", o.Security},
		{"Code Smells", o.CodeSmells},
		{"Structural Improvements", o.StructuralImprovements},
	}
}

// HasSections reports whether any structured section is non-empty.
func (o ReviewOutput) HasSections() bool {
	for _, s := range o.Sections() {
		if strings.TrimSpace(s.Body) != "" {
			return true
		}
	}
	return false
}

// Status is the pipeline stage a session is in.
type Status int

const (
	StatusIdle Status = iota
	StatusScanning
	StatusBuildingGraph
	StatusQueryingOllama
	StatusDone
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusScanning:
		return "scanning"
	case StatusBuildingGraph:
		return "building_graph"
	case StatusQueryingOllama:
		return "querying_ollama"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// InFlight reports whether a run is between Scanning and QueryingOllama.
func (s Status) InFlight() bool {
	return s == StatusScanning || s == StatusBuildingGraph || s == StatusQueryingOllama
}

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// AppStatus is a Status plus the error message carried by StatusError.
type AppStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// String returns the text shown in the status bar.
func (a AppStatus) String() string {
	switch a.Status {
	case StatusIdle:
		return "Ready"
	case StatusScanning:
		return "Scanning repository..."
	case StatusBuildingGraph:
		return "Building dependency graph..."
	case StatusQueryingOllama:
		return "Querying Ollama..."
	case StatusDone:
		return "Review complete"
	case StatusError:
		return "Error: " + a.Message
	default:
		return "Unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for st := StatusIdle; st <= StatusError; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}
