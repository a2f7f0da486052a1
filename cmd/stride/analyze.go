package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/banshee-data/stride.report/internal/api"
	"github.com/banshee-data/stride.report/internal/db"
	"github.com/banshee-data/stride.report/internal/gait"
	"github.com/banshee-data/stride.report/internal/gait/interpret"
	"github.com/banshee-data/stride.report/internal/posetrack"
	"github.com/banshee-data/stride.report/internal/report"
	"github.com/banshee-data/stride.report/internal/security"
	"github.com/banshee-data/stride.report/internal/timeutil"
)

func runAnalyze(ctx context.Context, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	trackPath := fs.String("track", "", "Pose track to analyse (.json, required)")
	configPath := fs.String("config", "", "Tuning config (.json); defaults when empty")
	dbPath := fs.String("db", "", "Save the run to this database")
	outDir := fs.String("out", "", "Write result.json, heel.png and chart.html here")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *trackPath == "" {
		fs.Usage()
		return errors.New("-track is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	track, err := posetrack.Load(*trackPath)
	if err != nil {
		return err
	}

	replay := posetrack.NewReplay(track, timeutil.RealClock{})
	a := gait.NewAnalyzer(cfg, replay.Estimator(), api.ReplayModel)
	lastStep := -1
	a.Progress = func(pct float64) {
		if step := int(pct) / 25; step != lastStep {
			lastStep = step
			fmt.Fprintf(out, "progress %3.0f%%\n", pct)
		}
	}

	outcome, err := a.Analyze(ctx, replay)
	if err != nil {
		return err
	}
	printOutcome(out, outcome)

	if *outDir != "" {
		if err := writeArtifacts(*outDir, track.Name, outcome); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote artifacts to %s\n", *outDir)
	}

	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.SaveOutcome(ctx, outcome, track.Name, time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved run %s to %s\n", outcome.RunID, *dbPath)
	}
	return nil
}

func printOutcome(out io.Writer, o *gait.Outcome) {
	if o.Issue != nil {
		fmt.Fprintf(out, "run %s stopped: %s\n", o.RunID, o.Issue)
		return
	}

	r := o.Result
	fmt.Fprintf(out, "run %s: %s, %.2fs (real %.2fs), %.1f fps, slow-mo x%g, direction %+d\n",
		r.Meta.RunID, r.Meta.Source, r.Meta.DurationSec, r.Meta.RealDurationSec,
		float64(r.Meta.InputFPSEstimate), r.Meta.SlowMoFactor, r.Meta.Direction)
	fmt.Fprintf(out, "contacts: %d (L=%d R=%d)\n", r.Summary.ContactCount, len(r.Contacts.Left), len(r.Contacts.Right))
	fmt.Fprintf(out, "  overstride ratio  %s\n", formatValue(float64(r.Summary.OverstrideRatioMedian), "%.3f"))
	fmt.Fprintf(out, "  knee angle        %s\n", formatValue(float64(r.Summary.KneeAngleMedian), "%.1f deg"))
	fmt.Fprintf(out, "  trunk lean        %s\n", formatValue(float64(r.Summary.TrunkLeanMedian), "%.1f deg"))
	fmt.Fprintf(out, "  heel strike rate  %s\n", formatValue(float64(r.Summary.HeelStrikeRate), "%.2f"))
	fmt.Fprintf(out, "  retraction speed  %s\n", formatValue(float64(r.Summary.RetractSpeedMedian), "%.3f"))

	fmt.Fprintln(out, "flags:")
	for _, f := range interpret.Flags(r.Summary) {
		fmt.Fprintf(out, "  [%s] %s\n", f.Level, f.Key)
	}
	fmt.Fprintln(out, "advice:")
	for _, key := range interpret.Advice(r.Summary) {
		fmt.Fprintf(out, "  %s\n", key)
	}
}

func formatValue(v float64, format string) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

// writeArtifacts stores the outcome JSON and, when frames were sampled, the
// heel plot and chart page.
func writeArtifacts(dir, source string, o *gait.Outcome) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var doc interface{} = o.Result
	if o.Result == nil {
		doc = o.Issue
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}
	resultPath, err := security.ArtifactPath(dir, "result.json")
	if err != nil {
		return err
	}
	if err := os.WriteFile(resultPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if len(o.Frames) == 0 {
		return nil
	}
	series := report.NewSeries(o.RunID, source, o.Frames, o.LeftPeaks, o.RightPeaks, nil)
	if o.Result != nil {
		series.Contacts = o.Result.Contacts.All
	}
	plotPath, err := security.ArtifactPath(dir, "heel.png")
	if err != nil {
		return err
	}
	if err := report.SavePNG(plotPath, series); err != nil {
		return err
	}

	chartPath, err := security.ArtifactPath(dir, "chart.html")
	if err != nil {
		return err
	}
	f, err := os.Create(chartPath)
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	if err := report.RenderHTML(f, series); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
