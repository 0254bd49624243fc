package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/config"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/engine"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/feedback"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/replay"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// #region flags

var (
	flagConfig string
	flagDB     string
)

// #endregion flags

// #region commands

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Adaptive ensemble scoring and continuous learning engine",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Interactive feedback loop",
	RunE:  runLoop,
}

var predictCmd = &cobra.Command{
	Use:   "predict <category> <text>",
	Short: "Score a suggestion with the multi-model combiner",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPredict,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the per-category engine report",
	RunE:  runReport,
}

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Run a continuous-learning sweep over all categories",
	RunE:  runLearn,
}

var replayCmd = &cobra.Command{
	Use:   "replay <fixture.json>",
	Short: "Replay a recorded feedback fixture through the engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

var (
	flagSignals  []string
	flagSchedule string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to the SQLite feedback store (empty = in-memory only)")
	predictCmd.Flags().StringArrayVar(&flagSignals, "signal", nil, "validator signal as name=score[:confidence], repeatable")
	learnCmd.Flags().StringVar(&flagSchedule, "schedule", "", "cron spec for periodic sweeps (empty = run once)")
	rootCmd.AddCommand(runCmd, predictCmd, reportCmd, learnCmd, replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion commands

// #region setup

// buildEngine resolves config, opens the optional feedback store, and
// wires the engine.
func buildEngine() (*engine.Engine, *feedback.Store, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}

	var store *feedback.Store
	dbPath := flagDB
	if dbPath == "" {
		dbPath = os.Getenv("ENSEMBLE_DB")
	}
	if dbPath != "" {
		store, err = feedback.NewStore(dbPath)
		if err != nil {
			return nil, nil, err
		}
	}

	return engine.New(cfg, nil, store), store, nil
}

// #endregion setup

// #region run-loop

// runLoop reads feedback lines from stdin and drives ProcessFeedback.
// Line format:
//
//	<category> <actual> <predicted> <name=score,...> <suggestion text>
//
// plus the commands "report" and "quit".
func runLoop(cmd *cobra.Command, args []string) error {
	eng, store, err := buildEngine()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	fmt.Println("Adaptive Ensemble Engine ready.")
	fmt.Println("Feedback: <category> <actual> <predicted> <name=score,...> <text>")
	fmt.Println("Commands: report | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if line == "report" {
			printReport(eng)
			continue
		}

		fields := strings.SplitN(line, " ", 5)
		if len(fields) < 5 {
			fmt.Println("need: <category> <actual> <predicted> <name=score,...> <text>")
			continue
		}
		actual, err1 := strconv.ParseFloat(fields[1], 64)
		predicted, err2 := strconv.ParseFloat(fields[2], 64)
		scores, err3 := parseScores(fields[3])
		if err1 != nil || err2 != nil || err3 != nil {
			fmt.Println("malformed feedback line")
			continue
		}

		res, err := eng.ProcessFeedback(ensemble.Category(fields[0]), fields[4], "", actual, predicted, scores)
		if err != nil {
			fmt.Printf("rejected: %v\n", err)
			continue
		}
		if res.ErrorMessage != "" {
			fmt.Printf("failed: %s\n", res.ErrorMessage)
			continue
		}
		fmt.Printf("[%s] error=%.4f accuracy=%.4f adjustments=%d (%dms)\n",
			res.CycleID[:8], res.PredictionError, res.Accuracy, len(res.Adjustments), res.DurationMs)
		for _, ins := range res.Insights {
			fmt.Printf("  - %s\n", ins)
		}
		for _, w := range res.Warnings {
			fmt.Printf("  ! %s\n", w)
		}
	}
	return nil
}

// #endregion run-loop

// #region predict-cmd

func runPredict(cmd *cobra.Command, args []string) error {
	eng, store, err := buildEngine()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	signals, err := parseSignals(flagSignals)
	if err != nil {
		return err
	}

	text := strings.Join(args[1:], " ")
	pred, err := eng.Predict(ensemble.Category(args[0]), text, "", signals...)
	if err != nil {
		return err
	}

	fmt.Printf("score=%.4f confidence=%.4f\n", pred.Score, pred.Confidence)
	for kind, sub := range pred.Breakdown {
		fmt.Printf("  %s: score=%.4f confidence=%.4f\n", kind, sub.Score, sub.Confidence)
	}
	return nil
}

// #endregion predict-cmd

// #region report-cmd

func runReport(cmd *cobra.Command, args []string) error {
	eng, store, err := buildEngine()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	printReport(eng)
	return nil
}

func printReport(eng *engine.Engine) {
	report := eng.GenerateReport()
	fmt.Printf("report generated %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	for _, c := range report.Categories {
		fmt.Printf("%-26s cycles=%-5d buffer=%-5d accuracy=%.4f avg_error=%.4f adaptations=%d phase=%s\n",
			c.Category, c.CycleCount, c.BufferSize, c.CurrentAccuracy, c.AverageError, c.AdaptationCount, c.SchedulerPhase)
		for name, w := range c.CurrentWeights {
			fmt.Printf("    weight %-12s %.4f\n", name, w)
		}
		if c.ModelVersion != "" {
			fmt.Printf("    model %s (samples=%d)\n", c.ModelVersion[:8], c.ModelSamples)
		}
	}
}

// #endregion report-cmd

// #region learn-cmd

func runLearn(cmd *cobra.Command, args []string) error {
	eng, store, err := buildEngine()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	sweep := func() {
		for _, cat := range ensemble.AllCategories() {
			res, err := eng.RunContinuousLearning(cat)
			if err != nil {
				log.Printf("[LEARN] category=%s error: %v", cat, err)
				continue
			}
			log.Printf("[LEARN] category=%s avg_error=%.4f slope=%.4f drift=%v online=%q",
				cat, res.Trends.AverageError, res.Trends.ErrorTrend, res.Drift.DriftDetected, res.Online.Reason)
		}
	}

	if flagSchedule == "" {
		sweep()
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(flagSchedule, sweep); err != nil {
		return fmt.Errorf("bad schedule %q: %w", flagSchedule, err)
	}
	c.Start()
	defer c.Stop()

	log.Printf("[LEARN] scheduled sweeps with %q, ctrl-c to stop", flagSchedule)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

// #endregion learn-cmd

// #region replay-cmd

func runReplay(cmd *cobra.Command, args []string) error {
	eng, store, err := buildEngine()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	fx, err := replay.LoadFixture(args[0])
	if err != nil {
		return err
	}

	summary, _ := replay.Run(eng, fx)
	fmt.Println(replay.Describe(summary))
	return nil
}

// #endregion replay-cmd

// #region parsing

// parseScores parses "name=score,name=score".
func parseScores(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed score %q", part)
		}
		v, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed score %q: %w", part, err)
		}
		out[kv[0]] = v
	}
	return out, nil
}

// parseSignals parses repeated "name=score[:confidence]" flags.
func parseSignals(raw []string) ([]ensemble.ValidatorSignal, error) {
	var out []ensemble.ValidatorSignal
	for _, s := range raw {
		kv := strings.SplitN(s, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed signal %q", s)
		}
		scoreConf := strings.SplitN(kv[1], ":", 2)
		score, err := strconv.ParseFloat(scoreConf[0], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed signal %q: %w", s, err)
		}
		conf := 0.5
		if len(scoreConf) == 2 {
			conf, err = strconv.ParseFloat(scoreConf[1], 64)
			if err != nil {
				return nil, fmt.Errorf("malformed signal %q: %w", s, err)
			}
		}
		out = append(out, ensemble.ValidatorSignal{Name: kv[0], Score: score, Confidence: conf})
	}
	return out, nil
}

// #endregion parsing
