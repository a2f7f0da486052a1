package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/stride.report/internal/posetrack"
)

func runSynth(out io.Writer, args []string) error {
	p := posetrack.DefaultSynthParams()

	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	path := fs.String("out", "synthetic.json", "Track file to write (.json)")
	fs.IntVar(&p.Width, "width", p.Width, "Frame width in pixels")
	fs.IntVar(&p.Height, "height", p.Height, "Frame height in pixels")
	fs.Float64Var(&p.FPS, "fps", p.FPS, "Recorded frame rate")
	fs.Float64Var(&p.SlowMoFactor, "slowmo", p.SlowMoFactor, "Playback slow-down factor")
	fs.Float64Var(&p.Duration, "duration", p.Duration, "Clip length in seconds")
	fs.IntVar(&p.Direction, "direction", p.Direction, "Running direction, 1 (right) or -1 (left)")
	fs.Float64Var(&p.StrideHz, "stride-hz", p.StrideHz, "Contacts per second per leg")
	fs.Float64Var(&p.LowConfidenceRatio, "low-confidence", p.LowConfidenceRatio, "Share of frames with low keypoint scores")
	fs.BoolVar(&p.FlipEveryFrame, "flip", p.FlipEveryFrame, "Mirror the runner on every other frame")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if p.Direction != 1 && p.Direction != -1 {
		return fmt.Errorf("direction must be 1 or -1, got %d", p.Direction)
	}

	track := posetrack.Synthesize(p)
	if err := track.Validate(); err != nil {
		return err
	}
	if err := track.Save(*path); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d frames (%dx%d, %.0f fps, %.1fs) to %s\n",
		len(track.Frames), track.Width, track.Height, track.FPS, track.Duration, *path)
	return nil
}
