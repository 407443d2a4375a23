package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/searchforge/rank_fusion/fuse"
	"github.com/searchforge/rank_fusion/obs"
	"github.com/searchforge/rank_fusion/sources"
)

type fuseFlags struct {
	format        string
	normalization string
	conflation    string
	weights       map[string]string
	weightList    []float64
	degenerate    string
	tieBreak      string
	duplicates    string
	skipEmpty     bool
	limit         int
	workers       int
	canonical     bool
	output        string
}

func fuseCmd() *cobra.Command {
	var f fuseFlags
	cmd := &cobra.Command{
		Use:   "fuse [flags] FILE...",
		Short: "Fuse ranked lists read from files",
		Long: `Read one ranked list per file, fuse them and print the ranking.

Each file holds {"source": "...", "items": [{"key": "...", "weight": 1.0}]}
or, with --format qdrant, a Qdrant search response. A list without a source
is named after its file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			logger, err := obs.NewLogger(level, "console")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runFuse(cmd, args, f, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "list", "input format (list, qdrant)")
	flags.StringVar(&f.normalization, "normalization", string(fuse.NormalizeMinMax), "per-list normalization (min-max, none, z-score)")
	flags.StringVar(&f.conflation, "conflation", string(fuse.ConflateMax), "conflation (max, sum, mean, weighted-sum)")
	flags.StringToStringVar(&f.weights, "weights", nil, "per-source multipliers for weighted-sum, e.g. lexical=0.3,vector=0.7")
	flags.Float64SliceVar(&f.weightList, "weight-list", nil, "weighted-sum multipliers by file position, e.g. 0.3,0.7")
	flags.StringVar(&f.degenerate, "degenerate", string(fuse.DegenerateConstantOne), "policy for lists whose weights are all equal (error, constant-one, constant-zero)")
	flags.StringVar(&f.tieBreak, "tie-break", string(fuse.TieBreakInputOrder), "tie-break for equal weights (stable-input-order, lexical-key)")
	flags.StringVar(&f.duplicates, "duplicates", string(fuse.DuplicateError), "policy for keys repeated within a list (error, keep-first, keep-max)")
	flags.BoolVar(&f.skipEmpty, "skip-empty", false, "drop empty lists instead of failing")
	flags.IntVar(&f.limit, "limit", 0, "maximum number of items to print (0 prints all)")
	flags.IntVarP(&f.workers, "workers", "w", 1, "goroutines used for normalization and grouping")
	flags.BoolVar(&f.canonical, "canonical", true, "NFKC-normalize keys before fusing")
	flags.StringVarP(&f.output, "output", "o", "text", "output format (text, json)")

	return cmd
}

func runFuse(cmd *cobra.Command, files []string, f fuseFlags, logger *zap.Logger) error {
	format, err := sources.ParseFormat(f.format)
	if err != nil {
		return err
	}
	if f.output != "text" && f.output != "json" {
		return fmt.Errorf("unknown output format %q", f.output)
	}
	weights, err := parseWeights(f.weights)
	if err != nil {
		return err
	}

	lists := make([]fuse.RankedList, 0, len(files))
	for _, path := range files {
		list, err := sources.LoadFile(path, format)
		if err != nil {
			return err
		}
		logger.Debug("loaded list", zap.String("path", path), zap.String("source", list.Source), zap.Int("items", list.Len()))
		lists = append(lists, list)
	}
	if f.canonical {
		lists = sources.CanonicalizeKeys(lists)
	}

	pipeline, err := fuse.New(fuse.Options{
		Normalization:    fuse.NormalizationKind(f.normalization),
		Conflation:       fuse.ConflationKind(f.conflation),
		SourceWeights:    weights,
		SourceWeightList: f.weightList,
		Degenerate:       fuse.DegeneratePolicy(f.degenerate),
		TieBreak:         fuse.TieBreak(f.tieBreak),
		Duplicates:       fuse.DuplicatePolicy(f.duplicates),
		SkipEmpty:        f.skipEmpty,
		Limit:            f.limit,
		Workers:          f.workers,
	})
	if err != nil {
		return err
	}

	result, err := pipeline.Run(cmd.Context(), lists)
	if err != nil {
		return err
	}
	for _, st := range result.Lists {
		if st.Degenerate {
			logger.Warn("degenerate list", zap.String("source", st.Source), zap.Float64("weight", st.Min), zap.Int("count", st.Count))
		}
	}

	if f.output == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return writeText(cmd.OutOrStdout(), result.Items)
}

func parseWeights(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(raw))
	for src, v := range raw {
		w, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("weight for %q: %w", src, err)
		}
		out[src] = w
	}
	return out, nil
}

type jsonItem struct {
	Key           string              `json:"key"`
	Weight        float64             `json:"weight"`
	Sources       []string            `json:"sources"`
	Contributions []fuse.Contribution `json:"contributions"`
}

func writeJSON(w io.Writer, result fuse.Result) error {
	items := make([]jsonItem, len(result.Items))
	for i, it := range result.Items {
		items[i] = jsonItem{Key: it.Key, Weight: it.Weight, Sources: it.Sources, Contributions: it.Contributions}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Items []jsonItem       `json:"items"`
		Lists []fuse.ListStats `json:"lists"`
	}{items, result.Lists})
}

func writeText(w io.Writer, items []fuse.FusedItem) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tKEY\tWEIGHT\tSOURCES")
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%s\n", i+1, it.Key, it.Weight, strings.Join(it.Sources, ","))
	}
	return tw.Flush()
}
