package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/ratiostat-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/ratiostat-cli/internal/config"
	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
	"github.com/KaramelBytes/ratiostat-cli/internal/tasks"
)

// Status lines printed when a run ends.
const (
	msgNothingToDo = "Nezpracovávají se žádné úlohy, konec"
	msgAllDone     = "Všechny zadané úlohy byly provedeny, konec"
)

var (
	// Global flags
	settingsPath string
	outputDir    string
	debug        bool

	// Run logger, built in initLogger
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ratiostat",
	Short: "ratiostat: statistical analysis tasks driven by a settings file",
	Long: `ratiostat loads a tabular dataset and runs the analysis tasks listed in a YAML
settings file: graphic analysis, normal distribution parameters, median equality,
regression significance and quantile regression with a golden-ratio intercept test.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTasks,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(initLogger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗ Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "input", cfgpkg.DefaultPath, "settings file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory (overrides output_dir from settings)")
}

func initLogger() {
	logger = newLogger(os.Stderr, debug)
}

// newLogger returns a text logger tagged with a fresh run id.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("run_id", uuid.NewString())
}

func runLogger() *slog.Logger {
	if logger == nil {
		logger = newLogger(os.Stderr, debug)
	}
	return logger
}

func runTasks(cmd *cobra.Command, _ []string) error {
	log := runLogger()
	s, err := cfgpkg.Load(settingsPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output-dir") {
		s.OutputDir = outputDir
	}
	stdout := cmd.OutOrStdout()

	fmt.Fprintf(stdout, "Načítají se data ze souboru: %s ve formátu: %s\n", s.InputFile, s.InputFormat)
	ds, err := dataset.Load(s.InputFile, s.InputFormat, s.LoadOptions())
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}
	log.Debug("dataset loaded", "file", s.InputFile, "rows", humanize.Comma(int64(ds.Rows())), "columns", len(ds.Columns))
	for _, w := range ds.Warnings {
		log.Warn(w, "file", s.InputFile)
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("⚠ Warning:"), w)
	}

	env := &tasks.Env{
		Settings: s,
		Data:     ds,
		Out:      analysis.Output{Dir: s.OutputDir, Stdout: stdout, Logger: log},
		Logger:   log,
	}
	done, err := tasks.Dispatch(cmd.Context(), s.Tasks, tasks.DefaultRegistry(), env)
	if errors.Is(err, tasks.ErrNothingToDo) {
		fmt.Fprintln(stdout, msgNothingToDo)
		return nil
	}
	if err != nil {
		return err
	}
	log.Debug("tasks finished", "count", len(done))
	fmt.Fprintln(stdout, color.GreenString(msgAllDone))
	return nil
}
