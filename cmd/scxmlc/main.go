// Command scxmlc is the CLI driver for the SCXML static code generator.
// It binds internal/generator's pipeline to the command surface: a
// positional SCXML file, --output-dir, --template-dir, and --as-child.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/comalice/scxml-aot/internal/generator"
)

var (
	outputDir   string
	templateDir string
	asChild     bool
	dot         bool
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "scxmlc <scxmlFile>",
	Short: "Compile a W3C SCXML document into a static state machine unit",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory to write generated artifacts into")
	rootCmd.Flags().StringVarP(&templateDir, "template-dir", "t", "", "directory holding a custom state_machine.tmpl (default: bundled template)")
	rootCmd.Flags().BoolVar(&asChild, "as-child", false, "mark this run as generating an invoked child (forces parent-communication template path)")
	rootCmd.Flags().BoolVar(&dot, "dot", false, "additionally write a Graphviz DOT debug export")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "zap log level: debug, info, warn, error")
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	opts := []generator.Option{
		generator.WithLogger(logger),
		generator.WithOutputDir(outputDir),
		generator.WithAsChild(asChild),
		generator.WithDOT(dot),
	}
	if templateDir != "" {
		opts = append(opts, generator.WithTemplateDir(templateDir))
	}

	g := generator.New(opts...)

	result, err := g.Run(args[0])
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", result.PrimaryUnit)
	fmt.Fprintf(cmd.OutOrStdout(),
		"States: %d  Events: %d  Needs script engine: %t\n",
		result.Model.Stats.StateCount, result.Model.Stats.EventCount, result.Model.Stats.NeedsScriptEngine)
	if result.ChildrenFile != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Children manifest: %s\n", result.ChildrenFile)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Metadata: %s\n", result.MetadataFile)
	if result.DotFile != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "DOT export: %s\n", result.DotFile)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
