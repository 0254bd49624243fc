package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/ensemble"
	"github.com/danielpatrickdp/adaptive-ensemble/go-engine/internal/feedback"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the feedback store database")
	category := flag.String("category", "", "filter to one category")
	last := flag.Int("last", 20, "show N most recent cycles per category")
	retrains := flag.Bool("retrains", false, "show retraining log instead of cycles")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/feedback.db [--category name] [--last N] [--retrains] [--json]")
		os.Exit(2)
	}

	store, err := feedback.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	categories := categoryFilter(*category)
	for _, cat := range categories {
		if *retrains {
			err = showRetrains(store, cat, *last, *jsonOut)
		} else {
			err = showCycles(store, cat, *last, *jsonOut)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region filters

func categoryFilter(category string) []string {
	if category != "" {
		return []string{category}
	}
	var out []string
	for _, cat := range ensemble.AllCategories() {
		out = append(out, string(cat))
	}
	return out
}

// #endregion filters

// #region cycles

func showCycles(store *feedback.Store, category string, last int, jsonOut bool) error {
	recs, err := store.RecentCycles(category, last)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	if jsonOut {
		data, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%s (%d cycles)\n", category, len(recs))
	for _, r := range recs {
		fmt.Printf("  %s  actual=%.3f predicted=%.3f error=%.3f  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.ActualScore, r.PredictedScore, r.PredictionError,
			truncate(r.SuggestionText, 48))
	}
	return nil
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// #endregion cycles

// #region retrains

func showRetrains(store *feedback.Store, category string, last int, jsonOut bool) error {
	recs, err := store.RecentRetrains(category, last)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	if jsonOut {
		data, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%s (%d retrains)\n", category, len(recs))
	for _, r := range recs {
		fmt.Printf("  %s  success=%v replaced=%v accuracy %.4f → %.4f samples=%d  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.Success, r.Replaced, r.OldAccuracy, r.NewAccuracy, r.SampleCount, r.Reason)
	}
	return nil
}

// #endregion retrains
