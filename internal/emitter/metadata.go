package emitter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/comalice/scxml-aot/internal/model"
	"github.com/comalice/scxml-aot/internal/scxmlerr"
)

// Metadata is the YAML sidecar written alongside the primary unit: feature
// flags, strategy classifications, the resolved event set, and
// history/parallel maps, for build-system and debugging consumption. Never
// read back by the generator.
//
// The mkdir-then-marshal-then-write persistence shape mirrors a
// MachineSnapshot-style YAML persister; the payload shape here is new.
type Metadata struct {
	Name              string            `yaml:"name"`
	Initial           string            `yaml:"initial"`
	InitialLeaf       string            `yaml:"initialLeaf"`
	NeedsScriptEngine bool              `yaml:"needsScriptEngine"`
	InterpreterFallback bool            `yaml:"interpreterFallback"`
	Events            []string          `yaml:"events"`
	StaticInvokes     []string          `yaml:"staticInvokes"`
	HybridInvokes     []string          `yaml:"hybridInvokes"`
	HistoryDefaults   map[string]string `yaml:"historyDefaults,omitempty"`
	ParallelRegions   map[string][]string `yaml:"parallelRegions,omitempty"`
	Warnings          []string          `yaml:"warnings,omitempty"`
	Stats             struct {
		States      int `yaml:"states"`
		Transitions int `yaml:"transitions"`
		Events      int `yaml:"events"`
	} `yaml:"stats"`
}

// BuildMetadata derives a Metadata payload from a frozen Model.
func BuildMetadata(m *model.Model) *Metadata {
	md := &Metadata{
		Name:                m.Name,
		Initial:             m.Initial,
		InitialLeaf:         m.InitialLeaf,
		NeedsScriptEngine:   m.Flags.NeedsScriptEngine,
		InterpreterFallback: m.MachineNeedsInterpreterFallback,
		HistoryDefaults:     m.HistoryDefaults,
		ParallelRegions:     m.ParallelRegions,
		Warnings:            m.Diagnostics.Warnings,
	}
	for e := range m.Events {
		md.Events = append(md.Events, e)
	}
	sort.Strings(md.Events)
	for _, inv := range m.StaticInvokes {
		md.StaticInvokes = append(md.StaticInvokes, inv.ChildName)
	}
	for _, inv := range m.HybridInvokes {
		md.HybridInvokes = append(md.HybridInvokes, inv.ID)
	}
	md.Stats.States = m.Stats.StateCount
	md.Stats.Transitions = m.Stats.TransitionCount
	md.Stats.Events = m.Stats.EventCount
	return md
}

// WriteMetadata marshals md to YAML and writes it to
// {outputDir}/{name}_meta.yaml, creating outputDir if necessary.
func WriteMetadata(outputDir string, md *Metadata) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", scxmlerr.Wrap(scxmlerr.EmitterFailure, outputDir, "", err)
	}

	data, err := yaml.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("yaml marshal metadata: %w", err)
	}

	path := filepath.Join(outputDir, md.Name+"_meta.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", scxmlerr.Wrap(scxmlerr.EmitterFailure, path, "", err)
	}
	return path, nil
}
