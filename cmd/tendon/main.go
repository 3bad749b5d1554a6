// Command tendon loads a rig description, evaluates its constraints for a
// number of frames and prints the resulting joint poses as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/tendon/internal/logger"
	"github.com/chazu/tendon/pkg/kernel/sdfx"
	"github.com/samber/lo"
)

// options holds the command line arguments.
type options struct {
	inputPath string
	frames    int
	gizmos    bool
	cells     int
	controls  []string
	logConfig logger.Config
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the whole CLI flow.
func run(args []string, out io.Writer, errOut io.Writer) error {
	opts, err := parseOptions(args, errOut)
	if err != nil {
		return err
	}
	logger.Init(opts.logConfig)

	source, err := os.ReadFile(opts.inputPath)
	if err != nil {
		return fmt.Errorf("read rig: %w", err)
	}

	app := NewApp(opts.cells)
	report, err := app.Run(string(source), RunOptions{
		Frames:   opts.frames,
		Gizmos:   opts.gizmos,
		Controls: opts.controls,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if n := len(report.Errors); n > 0 {
		return fmt.Errorf("%s: %d error(s) in rig source", opts.inputPath, n)
	}
	return nil
}

// parseOptions parses the command line arguments.
func parseOptions(args []string, errOut io.Writer) (options, error) {
	fs := flag.NewFlagSet("tendon", flag.ContinueOnError)
	fs.SetOutput(errOut)

	in := fs.String("in", "", "rig description file")
	frames := fs.Int("frames", 1, "number of frames to evaluate")
	gizmos := fs.Bool("gizmos", false, "tessellate bone gizmos for the final pose")
	cells := fs.Int("cells", sdfx.DefaultMeshCells, "marching cubes resolution for gizmos")
	controls := fs.String("controls", "", "comma separated joints drawn as control cages")
	level := fs.String("log-level", "info", "log level: debug, info, warn, error")
	format := fs.String("log-format", "text", "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if *in == "" && fs.NArg() > 0 {
		*in = fs.Arg(0)
	}
	if *in == "" {
		return options{}, fmt.Errorf("a rig file is required (-in)")
	}
	if *frames < 0 {
		return options{}, fmt.Errorf("frames must not be negative: %d", *frames)
	}
	if *cells <= 0 {
		return options{}, fmt.Errorf("cells must be positive: %d", *cells)
	}
	if *format != "text" && *format != "json" {
		return options{}, fmt.Errorf("unknown log format %q", *format)
	}
	lvl, err := logger.ParseLevel(*level)
	if err != nil {
		return options{}, err
	}

	cfg := logger.DefaultConfig()
	cfg.Level = lvl
	cfg.Format = *format
	cfg.Output = errOut

	return options{
		inputPath: *in,
		frames:    *frames,
		gizmos:    *gizmos,
		cells:     *cells,
		controls:  splitList(*controls),
		logConfig: cfg,
	}, nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
	return lo.Filter(parts, func(p string, _ int) bool { return p != "" })
}
