package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/config"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/extract"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/huridocs"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/orchestration"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/pipeline"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/report"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/textutil"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

// loadConfig loads the persisted configuration honoring the --config
// flag.
func loadConfig(cmd *cobra.Command) (*config.Manager, error) {
	path, _ := cmd.Flags().GetString("config")
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	return mgr, nil
}

// layoutFlags are the engine tuning flags shared by analyze and
// translate. Flag values override the config file only when set.
type layoutFlags struct {
	pages            string
	spreadExceptions string
	noSpread         bool
	forceHalf        bool
	deglueMinGap     float64
	concurrency      int
	manageDocker     bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pages, "pages", "", "1-based page set to process, e.g. 1,3-5 (default: all)")
	cmd.Flags().StringVar(&f.spreadExceptions, "spread-exceptions", "", "1-based pages never treated as spreads, e.g. 1,2")
	cmd.Flags().BoolVar(&f.noSpread, "no-spread", false, "disable two-page spread detection")
	cmd.Flags().BoolVar(&f.forceHalf, "force-half", false, "split spreads at the exact midpoint instead of searching for the gutter")
	cmd.Flags().Float64Var(&f.deglueMinGap, "deglue-min-gap", 0, "minimum whitespace band (page units) for splitting over-merged segments")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "pages processed in parallel (default: from config)")
	cmd.Flags().BoolVar(&f.manageDocker, "manage-docker", false, "start the layout analysis container when the service is unreachable")
}

// buildOptions merges config file values and flags into pipeline
// options.
func buildOptions(cfg *types.Config, flags layoutFlags) (pipeline.Options, error) {
	opts := pipeline.Options{
		Refine: layout.RefineConfig{
			MergeOverlapThreshold: cfg.MergeOverlapThreshold,
			LineGapFactor:         cfg.LineGapFactor,
		},
		Deglue: layout.DeglueConfig{MinGap: cfg.DeglueMinGap},
		Spread: layout.SpreadConfig{
			Enabled:   cfg.SpreadEnabled,
			ForceHalf: cfg.SpreadForceHalf,
		},
		Concurrency: cfg.Concurrency,
	}

	if flags.deglueMinGap > 0 {
		opts.Deglue.MinGap = flags.deglueMinGap
	}
	if flags.noSpread {
		opts.Spread.Enabled = false
	}
	if flags.forceHalf {
		opts.Spread.ForceHalf = true
	}
	if flags.concurrency > 0 {
		opts.Concurrency = flags.concurrency
	}

	pageSpec := flags.pages
	if pageSpec == "" {
		pageSpec = cfg.Pages
	}
	if pageSpec != "" {
		pages, err := textutil.ParsePageSet(pageSpec)
		if err != nil {
			return opts, types.NewAppError(types.ErrInvalidInput, "invalid --pages value", err)
		}
		opts.Pages = pages
	}

	exceptionSpec := flags.spreadExceptions
	if exceptionSpec == "" {
		exceptionSpec = cfg.SpreadExceptions
	}
	if exceptionSpec != "" {
		exceptions, err := textutil.ParsePageSet(exceptionSpec)
		if err != nil {
			return opts, types.NewAppError(types.ErrInvalidInput, "invalid --spread-exceptions value", err)
		}
		opts.Spread.Exceptions = exceptions
	}
	return opts, nil
}

// analyzeDocument runs layout analysis plus the page engines and
// returns the processed document. Phase transitions go to status.
func analyzeDocument(ctx context.Context, mgr *config.Manager, pdfPath string, flags layoutFlags, status *statusReporter) (*pipeline.Result, error) {
	cfg := mgr.GetConfig()

	status.Report(types.Status{
		Phase:   types.PhaseDetecting,
		Message: filepath.Base(pdfPath),
	})

	if flags.manageDocker {
		dockerMgr := orchestration.NewManager(cfg.HuridocsImage, mgr.GetHuridocsURL())
		if err := dockerMgr.EnsureRunning(ctx); err != nil {
			return nil, err
		}
	}

	client := huridocs.NewClient(mgr.GetHuridocsURL())
	analysis, err := client.Analyze(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	geoms, err := extract.PageGeometries(pdfPath)
	if err != nil {
		return nil, err
	}

	// Glyph runs are optional; a scanned PDF without a text layer still
	// processes fine.
	hints, err := extract.ExtractRuns(pdfPath)
	if err != nil {
		logger.Warn("failed to extract glyph runs", logger.Err(err))
		hints = nil
	}

	inputs := make([]pipeline.PageInput, len(geoms))
	for i, g := range geoms {
		inputs[i] = pipeline.PageInput{
			Geometry: g,
			Elements: analysis.ElementsByPage[i],
			Hints:    hints[i],
		}
	}

	opts, err := buildOptions(cfg, flags)
	if err != nil {
		return nil, err
	}
	status.Report(types.Status{Phase: types.PhaseRefining, Progress: 20})
	result, err := pipeline.Process(ctx, inputs, opts)
	if err != nil {
		return nil, err
	}

	if len(result.Warnings) > 0 {
		if reporter, repErr := report.NewReporter(""); repErr == nil {
			if repErr := reporter.AddWarnings(filepath.Base(pdfPath), result.Warnings); repErr != nil {
				logger.Warn("failed to persist warnings", logger.Err(repErr))
			}
		}
	}

	mgr.SetLastInput(pdfPath)
	return result, nil
}

// outputBase derives the default output path prefix next to the input.
func outputBase(pdfPath, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	if outDir == "" {
		outDir = filepath.Dir(pdfPath)
	}
	return filepath.Join(outDir, base)
}

// allSegments flattens the result in logical page order.
func allSegments(result *pipeline.Result) []layout.Segment {
	var segs []layout.Segment
	for _, p := range result.Pages {
		segs = append(segs, p.Segments...)
	}
	return segs
}

func printWarnings(cmd *cobra.Command, result *pipeline.Result) {
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: page %d stage %s: %s\n",
			w.PageIndex+1, w.Stage, w.Message)
	}
}
