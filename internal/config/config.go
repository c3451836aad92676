package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
)

// DefaultPath is the settings file read when --input is not given.
const DefaultPath = "settings.yaml"

// NoneTask is the task identifier that disables all processing.
const NoneTask = "none"

// Settings is the model configuration read from the settings file.
type Settings struct {
	InputFormat  string   `mapstructure:"input_format" yaml:"input_format"`
	InputFile    string   `mapstructure:"input_file" yaml:"input_file"`
	Tasks        []string `mapstructure:"tasks" yaml:"tasks"`
	OutputDir    string   `mapstructure:"output_dir" yaml:"output_dir"`
	SheetName    string   `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex   int      `mapstructure:"sheet_index" yaml:"sheet_index"`
	CSVDelimiter string   `mapstructure:"csv_delimiter" yaml:"csv_delimiter"`
	Alpha        float64  `mapstructure:"alpha" yaml:"alpha"`

	QuantileRegression     QuantileRegression     `mapstructure:"quantile_regression" yaml:"quantile_regression"`
	GraphicAnalysis        ColumnSelection        `mapstructure:"graphic_analysis" yaml:"graphic_analysis"`
	NormalDistribution     ColumnSelection        `mapstructure:"normal_distribution" yaml:"normal_distribution"`
	MedianEquality         MedianEquality         `mapstructure:"median_equality" yaml:"median_equality"`
	RegressionSignificance RegressionSignificance `mapstructure:"regression_significance" yaml:"regression_significance"`
}

// QuantileRegression configures the quantile-regression task.
type QuantileRegression struct {
	Dependent  string    `mapstructure:"dependent" yaml:"dependent"`
	Covariates []string  `mapstructure:"covariates" yaml:"covariates"`
	Quantiles  []float64 `mapstructure:"quantiles" yaml:"quantiles"`
	Bootstrap  int       `mapstructure:"bootstrap" yaml:"bootstrap"`
	// Seed 0 draws a fresh seed per run.
	Seed       uint64 `mapstructure:"seed" yaml:"seed"`
	HTMLCharts bool   `mapstructure:"html_charts" yaml:"html_charts"`
}

// ColumnSelection lists columns for a task; empty means every numeric column.
type ColumnSelection struct {
	Columns []string `mapstructure:"columns" yaml:"columns"`
}

// MedianEquality configures the median-equality test.
type MedianEquality struct {
	Value string `mapstructure:"value" yaml:"value"`
	Group string `mapstructure:"group" yaml:"group"`
}

// RegressionSignificance configures the OLS significance test.
type RegressionSignificance struct {
	Dependent  string   `mapstructure:"dependent" yaml:"dependent"`
	Regressors []string `mapstructure:"regressors" yaml:"regressors"`
}

// DefaultQuantiles are the levels fitted when none are configured.
var DefaultQuantiles = []float64{0.1, 0.25, 0.5, 0.75, 0.9}

// Default returns the settings used for every key the file leaves out.
func Default() *Settings {
	return &Settings{
		InputFormat: dataset.FormatStructuredCSV,
		InputFile:   "vstupni_data.csv",
		Tasks:       []string{NoneTask},
		OutputDir:   "vystupy",
		SheetIndex:  1,
		Alpha:       0.05,
		QuantileRegression: QuantileRegression{
			Dependent:  "poměr",
			Covariates: []string{"věk", "pohlaví"},
			Quantiles:  append([]float64(nil), DefaultQuantiles...),
			Bootstrap:  1000,
		},
		GraphicAnalysis:        ColumnSelection{Columns: []string{}},
		NormalDistribution:     ColumnSelection{Columns: []string{}},
		RegressionSignificance: RegressionSignificance{Regressors: []string{}},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("input_format", d.InputFormat)
	v.SetDefault("input_file", d.InputFile)
	v.SetDefault("tasks", d.Tasks)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", d.SheetIndex)
	v.SetDefault("csv_delimiter", "")
	v.SetDefault("alpha", d.Alpha)
	v.SetDefault("quantile_regression.dependent", d.QuantileRegression.Dependent)
	v.SetDefault("quantile_regression.covariates", d.QuantileRegression.Covariates)
	v.SetDefault("quantile_regression.quantiles", d.QuantileRegression.Quantiles)
	v.SetDefault("quantile_regression.bootstrap", d.QuantileRegression.Bootstrap)
	v.SetDefault("quantile_regression.seed", 0)
	v.SetDefault("quantile_regression.html_charts", false)
	v.SetDefault("graphic_analysis.columns", []string{})
	v.SetDefault("normal_distribution.columns", []string{})
	v.SetDefault("median_equality.value", "")
	v.SetDefault("median_equality.group", "")
	v.SetDefault("regression_significance.dependent", "")
	v.SetDefault("regression_significance.regressors", []string{})
}

// Load reads the settings file at path, applying env overrides (prefix
// RATIOSTAT_, nested keys joined by '_') and defaults.
// Precedence: env > settings file > defaults. A missing file is an error.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("settings file: %w", err)
	}
	v := viper.New()
	v.SetEnvPrefix("RATIOSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" || ext == "yml" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks values that have no sensible fallback.
func (s *Settings) Validate() error {
	var errs []error
	if s.Alpha <= 0 || s.Alpha >= 1 {
		errs = append(errs, fmt.Errorf("alpha %g outside (0,1)", s.Alpha))
	}
	for _, q := range s.QuantileRegression.Quantiles {
		if q <= 0 || q >= 1 {
			errs = append(errs, fmt.Errorf("quantile %g outside (0,1)", q))
		}
	}
	if s.QuantileRegression.Bootstrap < 2 {
		errs = append(errs, fmt.Errorf("bootstrap needs at least 2 resamples, got %d", s.QuantileRegression.Bootstrap))
	}
	if len([]rune(s.CSVDelimiter)) > 1 {
		errs = append(errs, fmt.Errorf("csv_delimiter must be a single character, got %q", s.CSVDelimiter))
	}
	return errors.Join(errs...)
}

// LoadOptions maps the reader settings onto dataset options.
func (s *Settings) LoadOptions() dataset.LoadOptions {
	opt := dataset.LoadOptions{SheetName: s.SheetName, SheetIndex: s.SheetIndex}
	if r := []rune(s.CSVDelimiter); len(r) == 1 {
		opt.Delimiter = r[0]
	}
	return opt
}

// Save writes the settings as YAML to path, creating parent directories.
func Save(s *Settings, path string) error {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir settings dir: %w", err)
		}
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// YAML renders the settings the way Save writes them.
func (s *Settings) YAML() (string, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal yaml: %w", err)
	}
	return string(b), nil
}
