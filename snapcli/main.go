// Package snapcli provides the command line tool that creates and verifies
// the snapshots of a model library.
//
// The model library owns a small main package that lists its model types
// in a [Config] and calls [Main].
package snapcli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/goaux/contextvalue"
	"github.com/goaux/iter/bufioscanner"
	"github.com/goaux/stacktrace/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/takumakei/modelsnap-go/execpipe"
	"github.com/takumakei/modelsnap-go/populate"
	"github.com/takumakei/modelsnap-go/schema"
	"github.com/takumakei/modelsnap-go/snapshot"
	"go.uber.org/zap"
)

// Main runs the command and exits with status 1 on error.
func Main(ctx context.Context, config Config) {
	cmd := newCommand(&config)
	ctx = contextvalue.With(ctx, &config)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err.Error())
		os.Exit(1)
	}
}

func newCommand(config *Config) *cobra.Command {
	folder := config.DefaultFolder
	if folder == "" {
		folder = snapshot.DefaultFolder
	}

	cmd := &cobra.Command{
		Use:     config.Use,
		Short:   config.Short,
		Long:    render(config.Long),
		Version: config.Version,

		ValidArgsFunction: validArgs,

		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := cmd.PersistentFlags()
	pf.SortFlags = false
	pf.StringVarP(&flags.Dir, "dir", "d", folder, "Snapshot `folder`")
	pf.StringVarP(&flags.Config, "config", "c", "", "Settings `file.yaml`")
	pf.StringVar(&flags.Only, "only", "", "Limit to the model names listed in `file` (- for stdin)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Log debug messages")

	create := &cobra.Command{
		Use:   "create",
		Short: "Create snapshots of the models",
		Args:  cobra.NoArgs,
		RunE:  runCreate,

		ValidArgsFunction: validArgs,
	}
	fl := create.Flags()
	fl.SortFlags = false
	fl.Int64VarP(&flags.Seed, "seed", "s", config.DefaultSeed, "Random `seed`, 0 picks one")
	fl.BoolVarP(&flags.Format, "format", "F", false, "Pipe the written files through the formatter")
	fl.BoolVar(&flags.Clean, "clean", false, "Clean the snapshot folder first")

	cmd.AddCommand(
		create,
		&cobra.Command{
			Use:   "verify",
			Short: "Verify the snapshots against the models",
			Args:  cobra.NoArgs,
			RunE:  runVerify,

			ValidArgsFunction: validArgs,
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Remove every file of the snapshot folder",
			Args:  cobra.NoArgs,
			RunE:  runClean,

			ValidArgsFunction: validArgs,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the models with their fields and relation names",
			Args:  cobra.NoArgs,
			RunE:  runList,

			ValidArgsFunction: validArgs,
		},
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	cmd.MarkPersistentFlagDirname("dir")
	return cmd
}

func render(usage string) string {
	if isTTY(os.Stdout) {
		r, err := glamour.NewTermRenderer(
			glamour.WithEnvironmentConfig(),
			glamour.WithWordWrap(100),
		)
		if err == nil { // if NO error
			if s, err := r.Render(usage); err == nil { // if NO error
				return s
			}
		}
	}
	return usage
}

func validArgs(_ *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveNoFileComp
}

var flags flagsType

type flagsType struct {
	Dir     string
	Config  string
	Only    string
	Verbose bool

	Seed   int64
	Format bool
	Clean  bool
}

// session is what every subcommand works with once flags, settings and
// model selection are resolved.
type session struct {
	config    *Config
	settings  Settings
	models    []reflect.Type
	log       *zap.Logger
	formatter []string
}

func newSession(cmd *cobra.Command) (*session, error) {
	config, ok := contextvalue.From[*Config](cmd.Context())
	if !ok {
		panic("never")
	}

	s := &session{config: config, formatter: config.Formatter}
	if flags.Config != "" {
		settings, err := readSettings(flags.Config)
		if err != nil {
			return nil, fmt.Errorf("read settings (%s): %w", flags.Config, err)
		}
		s.settings = *settings
	}
	if s.settings.Dir == "" || cmd.Flags().Changed("dir") {
		s.settings.Dir = flags.Dir
	}
	if cmd.Flags().Lookup("seed") != nil && (s.settings.Seed == nil || cmd.Flags().Changed("seed")) {
		s.settings.Seed = &flags.Seed
	}
	if len(s.settings.Formatter) > 0 {
		s.formatter = s.settings.Formatter
	}

	models, err := selectModels(cmd.InOrStdin(), config.Models, flags.Only)
	if err != nil {
		return nil, err
	}
	s.models = models

	log, err := newLogger(flags.Verbose)
	if err != nil {
		return nil, err
	}
	s.log = log
	return s, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func (s *session) populator() *populate.Populator {
	var opts []populate.Option
	if s.settings.Seed != nil && *s.settings.Seed != 0 {
		opts = append(opts, populate.WithSeed(*s.settings.Seed))
	}
	if s.settings.MaxDepth > 0 {
		opts = append(opts, populate.WithMaxDepth(s.settings.MaxDepth))
	}
	if s.settings.MinSize > 0 || s.settings.MaxSize > 0 {
		opts = append(opts, populate.WithSizeRange(
			orDefault(s.settings.MinSize, populate.DefaultMinSize),
			orDefault(s.settings.MaxSize, populate.DefaultMaxSize),
		))
	}
	return populate.New(opts...)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func (s *session) manager(t reflect.Type, opts ...snapshot.Option) *snapshot.Manager {
	opts = append([]snapshot.Option{
		snapshot.WithFolder(s.settings.Dir),
		snapshot.WithLogger(s.log),
	}, opts...)
	return snapshot.New(t, opts...)
}

func selectModels(cin io.Reader, models []reflect.Type, only string) ([]reflect.Type, error) {
	if only == "" {
		return models, nil
	}
	names, err := readNames(cin, only)
	if err != nil {
		return nil, err
	}
	var selected []reflect.Type
	for _, name := range names {
		t, ok := lookupModel(models, name)
		if !ok {
			return nil, fmt.Errorf("unknown model: %s", name)
		}
		selected = append(selected, t)
	}
	return selected, nil
}

func lookupModel(models []reflect.Type, name string) (reflect.Type, bool) {
	for _, t := range models {
		if schema.TypeName(t) == name || schema.Indirect(t).Name() == name {
			return t, true
		}
	}
	return nil, false
}

func readNames(cin io.Reader, path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		if isTTY(cin) {
			return nil, pflag.ErrHelp
		}
		r = cin
	} else {
		f, err := stacktrace.Trace2(os.Open(path))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var names []string
	s := bufioscanner.New(bufio.NewScanner(r))
	for _, line := range s.Text() {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.log.Sync()

	var opts []snapshot.Option
	if flags.Format {
		if len(s.formatter) == 0 {
			return errors.New("no formatter configured, consider using `--format=false`")
		}
		if err := execpipe.CheckPath(s.formatter[0]); err != nil {
			return fmt.Errorf("%s was not found, consider using `--format=false`", s.formatter[0])
		}
		opts = append(opts, snapshot.WithFormatter(s.formatter[0], s.formatter[1:]...))
	}
	opts = append(opts, snapshot.WithPopulator(s.populator()))

	if flags.Clean {
		if err := snapshot.CleanFolder(s.settings.Dir); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, t := range s.models {
		m := s.manager(t, opts...)
		if err := m.Create(); err != nil {
			return err
		}
		s.log.Debug("snapshot created", zap.String("file", m.SnapshotFile()))
		fmt.Fprintf(out, "created %s\n", m.SnapshotFile())
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.log.Sync()

	out := cmd.OutOrStdout()
	failed := 0
	for _, t := range s.models {
		m := s.manager(t)
		ok := true
		for _, r := range []snapshot.Report{m.CheckSnapshot(), m.CheckRelationNames()} {
			if !r.OK() {
				m.LogReport(r)
				fmt.Fprintf(out, "FAIL %s\n", r)
				ok = false
			}
		}
		if ok {
			fmt.Fprintf(out, "ok   %s\n", m.TypeName())
		} else {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots do not match", failed, len(s.models))
	}
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.log.Sync()
	if err := snapshot.CleanFolder(s.settings.Dir); err != nil {
		return err
	}
	s.log.Info("snapshot folder cleaned", zap.String("folder", s.settings.Dir))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.log.Sync()

	out := cmd.OutOrStdout()
	for _, t := range s.models {
		fmt.Fprintln(out, schema.TypeName(t))
		fields, err := schema.Describe(t)
		if err != nil {
			return err
		}
		for _, f := range fields {
			fmt.Fprintf(out, "  %s: %s\n", f.Name, f.Kind)
		}
		if names := schema.RelationNames(t); len(names) > 0 {
			fmt.Fprintf(out, "  relations: %s\n", strings.Join(names, ", "))
		}
	}
	return nil
}

func isTTY(io any) bool {
	if f, ok := io.(*os.File); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}
