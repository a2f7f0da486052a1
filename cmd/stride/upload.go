package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/stride.report/internal/api"
	"github.com/banshee-data/stride.report/internal/httputil"
	"github.com/banshee-data/stride.report/internal/posetrack"
)

// uploadClient is replaced in tests.
var uploadClient httputil.HTTPClient

func runUpload(ctx context.Context, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	server := fs.String("server", "http://localhost:8080", "Base URL of a stride server")
	trackPath := fs.String("track", "", "Pose track to upload (.json, required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *trackPath == "" {
		fs.Usage()
		return errors.New("-track is required")
	}

	track, err := posetrack.Load(*trackPath)
	if err != nil {
		return err
	}
	run, err := api.NewClient(*server, uploadClient).UploadTrack(ctx, track)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s: %s\n", run.ID, run.Status)
	if run.Issue != nil {
		fmt.Fprintf(out, "stopped: %s\n", run.Issue)
		return nil
	}
	fmt.Fprintf(out, "contacts: %d\n", run.Summary.ContactCount)
	for _, f := range run.Flags {
		fmt.Fprintf(out, "  [%s] %s\n", f.Level, f.Key)
	}
	fmt.Fprintf(out, "chart: %s/api/runs/%s/chart\n", *server, run.ID)
	return nil
}
