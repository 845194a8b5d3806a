// Package generator wires the seven pipeline stages (Loader, Model Builder,
// Expression Classifier, Normalizer, Strategy Selector, Feature Flagger,
// Emitter Driver, plus the metadata/DOT side-outputs) into the single entry
// point the CLI and tests call.
//
// The functional-options construction and validate-then-run sequencing are
// re-purposed from a concurrent event-loop machine lifecycle into a
// one-shot, single-threaded pipeline: no goroutines, no shared mutable
// state across runs.
package generator

import (
	"strings"

	"go.uber.org/zap"

	"github.com/comalice/scxml-aot/internal/classifier"
	"github.com/comalice/scxml-aot/internal/emitter"
	"github.com/comalice/scxml-aot/internal/flagger"
	"github.com/comalice/scxml-aot/internal/loader"
	"github.com/comalice/scxml-aot/internal/model"
	"github.com/comalice/scxml-aot/internal/normalizer"
	"github.com/comalice/scxml-aot/internal/strategy"
)

// Option configures a Generator at construction time (functional-options
// pattern).
type Option func(*Generator)

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

func WithRenderer(r emitter.Renderer) Option {
	return func(g *Generator) { g.renderer = r }
}

func WithOutputDir(dir string) Option {
	return func(g *Generator) { g.outputDir = dir }
}

func WithTemplateDir(dir string) Option {
	return func(g *Generator) {
		g.templateDir = dir
		if tr, ok := g.renderer.(*emitter.TemplateRenderer); ok {
			tr.TemplateDir = dir
		}
	}
}

func WithAsChild(b bool) Option {
	return func(g *Generator) { g.asChild = b }
}

func WithDOT(b bool) Option {
	return func(g *Generator) { g.dot = b }
}

func WithExt(ext string) Option {
	return func(g *Generator) { g.ext = ext }
}

// Generator is the pipeline orchestrator. A Generator carries no mutable
// state across Run calls; each call builds and freezes its own Model.
type Generator struct {
	logger      *zap.Logger
	renderer    emitter.Renderer
	outputDir   string
	templateDir string
	asChild     bool
	dot         bool
	ext         string
}

// New constructs a Generator with the bundled TemplateRenderer and a
// no-op logger unless overridden by opts.
func New(opts ...Option) *Generator {
	g := &Generator{
		renderer:  &emitter.TemplateRenderer{},
		outputDir: ".",
		logger:    zap.NewNop(),
		ext:       "h",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result is everything Run produced, for CLI reporting and tests.
type Result struct {
	Model        *model.Model
	PrimaryUnit  string
	ChildrenFile string
	MetadataFile string
	DotFile      string
}

// Run executes the full pipeline over one SCXML input and returns the
// artifacts it wrote: validate (load+build+normalize, which can fail fast)
// then a single deterministic pass (classify, flag, emit). No goroutines or
// channels — this generator runs single-threaded start to finish.
func (g *Generator) Run(scxmlFile string) (*Result, error) {
	doc, err := loader.Load(scxmlFile)
	if err != nil {
		g.logger.Error("load failed", zap.String("path", scxmlFile), zap.Error(err))
		return nil, err
	}

	m, err := model.BuildFromDocument(doc)
	if err != nil {
		g.logger.Error("build failed", zap.String("path", scxmlFile), zap.Error(err))
		return nil, err
	}

	if err := normalizer.Normalize(m, doc); err != nil {
		g.logger.Error("normalize failed", zap.String("path", scxmlFile), zap.Error(err))
		return nil, err
	}

	strategy.SelectInvokeStrategies(m)
	strategy.SelectMachineStrategy(m)
	flagger.Flag(m)

	// Prefix-match closure over the final event set for every
	// non-wildcard event descriptor of every transition.
	for _, s := range m.States {
		for _, t := range s.Transitions {
			for _, d := range strings.Fields(t.Event) {
				if !strings.HasSuffix(d, "*") {
					t.PrefixMatches = append(t.PrefixMatches, classifier.PrefixMatches(d, m.Events)...)
				}
			}
		}
	}

	if g.asChild {
		m.Flags.HasParentCommunication = true
	}

	m.Freeze()

	for _, w := range m.Diagnostics.Warnings {
		g.logger.Warn(w, zap.String("path", scxmlFile))
	}

	driver := emitter.NewDriver(g.renderer, g.outputDir, g.ext)
	emitted, err := driver.Emit(m, doc.Path)
	if err != nil {
		g.logger.Error("emit failed", zap.String("path", scxmlFile), zap.Error(err))
		return nil, err
	}

	md := emitter.BuildMetadata(m)
	metaPath, err := emitter.WriteMetadata(g.outputDir, md)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Model:        m,
		PrimaryUnit:  emitted.PrimaryUnit,
		ChildrenFile: emitted.ChildrenFile,
		MetadataFile: metaPath,
	}

	if g.dot {
		dotPath, err := emitter.WriteDOT(g.outputDir, m)
		if err != nil {
			return nil, err
		}
		res.DotFile = dotPath
	}

	g.logger.Info("generated",
		zap.String("name", m.Name),
		zap.Int("states", m.Stats.StateCount),
		zap.Int("events", m.Stats.EventCount),
		zap.Bool("needsScriptEngine", m.Stats.NeedsScriptEngine),
		zap.Bool("interpreterFallback", m.MachineNeedsInterpreterFallback),
	)

	return res, nil
}
