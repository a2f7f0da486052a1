package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/stride.report/internal/config"
	"github.com/banshee-data/stride.report/internal/db"
	"github.com/banshee-data/stride.report/internal/version"
)

func main() {
	flag.Usage = func() { printUsage(os.Stdout) }
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "stride %s: %v\n", flag.Arg(0), err)
		stop()
		os.Exit(1)
	}
}

// run dispatches one subcommand. Output goes to out.
func run(ctx context.Context, out io.Writer, command string, args []string) error {
	switch command {
	case "analyze":
		return runAnalyze(ctx, out, args)
	case "serve":
		return runServe(ctx, args)
	case "synth":
		return runSynth(out, args)
	case "upload":
		return runUpload(ctx, out, args)
	case "migrate":
		fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
		dbPath := fs.String("db", "stride.db", "Path to the runs database")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return db.RunMigrateCommand(out, fs.Args(), *dbPath)
	case "version":
		fmt.Fprintln(out, version.String())
		return nil
	case "help":
		printUsage(out)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `stride - running gait analysis from recorded pose tracks

Usage: stride <command> [options]

Commands:
  analyze    Analyse a pose track and report contacts and metrics
  serve      Serve stored runs over HTTP with debug routes
  synth      Write a synthetic pose track
  upload     Send a pose track to a running server for analysis
  migrate    Manage the runs database schema
  version    Show stride version
  help       Show this help message

Examples:
  stride synth -out clip.json
  stride analyze -track clip.json -db stride.db -out report/
  stride serve -listen :8080 -db stride.db
  stride upload -server http://localhost:8080 -track clip.json
  stride migrate -db stride.db version`)
}
