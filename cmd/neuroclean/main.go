// neuroclean cleans EEG recordings: bandpass and notch filtering,
// bad-channel repair, decomposition-based artifact rejection, and an
// HTML report of every decision made along the way.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/neuroanalyst/neuroclean/artifact"
	"github.com/neuroanalyst/neuroclean/edfio"
	"github.com/neuroanalyst/neuroclean/pipeline"
	"github.com/neuroanalyst/neuroclean/report"
)

const version = "0.1.0"

var (
	cfgFile string
	verbose bool

	// clean flags
	outputPath    string
	reportPath    string
	noReport      bool
	lowFreq       float64
	highFreq      float64
	notchFreqs    []float64
	icaComponents int
	randomSeed    int64
	eogThreshold  string
	emgThreshold  string
)

var rootCmd = &cobra.Command{
	Use:           "neuroclean",
	Short:         "Opinionated EEG cleaning",
	Long:          "neuroclean removes powerline noise, broken channels and ocular/muscular artifacts from EEG recordings, and documents every decision it makes.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var cleanCmd = &cobra.Command{
	Use:   "clean <input.edf>",
	Short: "Clean an EDF recording",
	Args:  cobra.ExactArgs(1),
	RunE:  runClean,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE:  runConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("neuroclean v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline stages")

	f := cleanCmd.Flags()
	f.StringVarP(&outputPath, "output", "o", "cleaned.edf", "output file for the cleaned recording")
	f.StringVar(&reportPath, "report-path", "report.html", "output file for the HTML report")
	f.BoolVar(&noReport, "no-report", false, "disable HTML report generation")
	f.Float64Var(&lowFreq, "l-freq", 0, "high-pass cutoff in Hz")
	f.Float64Var(&highFreq, "h-freq", 0, "low-pass cutoff in Hz")
	f.Float64SliceVar(&notchFreqs, "notch", nil, "notch frequencies in Hz")
	f.IntVar(&icaComponents, "ica-components", 0, "number of decomposition components")
	f.Int64Var(&randomSeed, "seed", 0, "decomposition random seed")
	f.StringVar(&eogThreshold, "eog-threshold", "", `eye-artifact threshold ("auto" or a number)`)
	f.StringVar(&emgThreshold, "emg-threshold", "", `muscle-artifact threshold ("auto" or a number)`)

	rootCmd.AddCommand(cleanCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig builds the run configuration: file over defaults, flags
// over file. Only flags the user actually set override the file.
func loadConfig(cmd *cobra.Command) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if cfgFile != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(cfgFile); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("l-freq") {
		cfg.LowFreq = lowFreq
	}
	if flags.Changed("h-freq") {
		cfg.HighFreq = highFreq
	}
	if flags.Changed("notch") {
		cfg.NotchFreqs = notchFreqs
	}
	if flags.Changed("ica-components") {
		cfg.NumComponents = icaComponents
	}
	if flags.Changed("seed") {
		cfg.RandomSeed = randomSeed
	}
	if flags.Changed("eog-threshold") {
		th, err := parseThreshold(eogThreshold)
		if err != nil {
			return cfg, err
		}
		cfg.EOGThreshold = th
	}
	if flags.Changed("emg-threshold") {
		th, err := parseThreshold(emgThreshold)
		if err != nil {
			return cfg, err
		}
		cfg.EMGThreshold = th
	}
	cfg.Verbose = cfg.Verbose || verbose
	return cfg, nil
}

func parseThreshold(s string) (artifact.Threshold, error) {
	if strings.EqualFold(strings.TrimSpace(s), "auto") {
		return artifact.AutoThreshold(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return artifact.Threshold{}, fmt.Errorf("threshold must be \"auto\" or a number: %q", s)
	}
	return artifact.FixedThreshold(v), nil
}

func newLogger(cfg pipeline.Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Verbose {
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	input := args[0]
	log.Infof("loading %s", input)
	rec, err := edfio.Load(input)
	if err != nil {
		return err
	}
	log.Infof("%d channels, %d samples at %.1f Hz", rec.NumChannels(), rec.NumSamples(), rec.SampleRate)

	cleaner := pipeline.New(cfg, pipeline.WithLogger(log))
	cleaned, record, err := cleaner.Clean(rec)
	if err != nil {
		return err
	}
	for _, skip := range record.Skips {
		log.Warnf("stage %s skipped: %s", skip.Stage, skip.Reason)
	}

	log.Infof("saving cleaned recording to %s", outputPath)
	if err := edfio.Save(outputPath, cleaned); err != nil {
		return err
	}

	if !noReport {
		f, err := os.Create(reportPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := report.Generate(f, report.Data{
			SourceFile: input,
			Record:     record,
			Original:   rec,
			Cleaned:    cleaned,
		}); err != nil {
			return err
		}
		log.Infof("report written to %s", reportPath)
	}

	fmt.Printf("cleaned %s -> %s (final stage: %s, %d bad channels, %d sources excluded)\n",
		input, outputPath, record.FinalStage, len(record.BadChannels), len(record.ExcludedSources))
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := pipeline.DefaultConfig()
	if cfgFile != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(cfgFile); err != nil {
			return err
		}
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
