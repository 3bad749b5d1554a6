package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/tendon/pkg/kernel/sdfx"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, o options)
	}{
		{
			name: "defaults",
			args: []string{"-in", "arm.rig"},
			check: func(t *testing.T, o options) {
				if o.inputPath != "arm.rig" || o.frames != 1 || o.gizmos || o.cells != sdfx.DefaultMeshCells {
					t.Errorf("unexpected defaults: %+v", o)
				}
				if o.logConfig.Level != slog.LevelInfo || o.logConfig.Format != "text" {
					t.Errorf("unexpected log config: %+v", o.logConfig)
				}
				if len(o.controls) != 0 {
					t.Errorf("controls = %v, want none", o.controls)
				}
			},
		},
		{
			name: "positional input",
			args: []string{"-frames", "4", "rigs/arm.rig"},
			check: func(t *testing.T, o options) {
				if o.inputPath != "rigs/arm.rig" || o.frames != 4 {
					t.Errorf("got %+v", o)
				}
			},
		},
		{
			name: "gizmo flags",
			args: []string{"-gizmos", "-cells", "32", "-controls", " a, b ,,c", "x.rig"},
			check: func(t *testing.T, o options) {
				if !o.gizmos || o.cells != 32 {
					t.Errorf("got %+v", o)
				}
				if strings.Join(o.controls, "|") != "a|b|c" {
					t.Errorf("controls = %q", o.controls)
				}
			},
		},
		{
			name: "log flags",
			args: []string{"-log-level", "DEBUG", "-log-format", "json", "x.rig"},
			check: func(t *testing.T, o options) {
				if o.logConfig.Level != slog.LevelDebug || o.logConfig.Format != "json" {
					t.Errorf("got %+v", o.logConfig)
				}
			},
		},
		{name: "missing input", args: nil, wantErr: "rig file is required"},
		{name: "negative frames", args: []string{"-frames", "-1", "x.rig"}, wantErr: "frames"},
		{name: "zero cells", args: []string{"-cells", "0", "x.rig"}, wantErr: "cells"},
		{name: "bad level", args: []string{"-log-level", "loud", "x.rig"}, wantErr: "log level"},
		{name: "bad format", args: []string{"-log-format", "xml", "x.rig"}, wantErr: "log format"},
		{name: "unknown flag", args: []string{"-bogus", "x.rig"}, wantErr: "bogus"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o, err := parseOptions(tc.args, io.Discard)
			if tc.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tc.wantErr)
				}
				if !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error %q does not contain %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOptions: %v", err)
			}
			tc.check(t, o)
		})
	}
}

func writeRig(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rig")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write rig: %v", err)
	}
	return path
}

func TestRunPrintsReport(t *testing.T) {
	path := writeRig(t, `
(joint "src" :at (vec3 1 2 3))
(joint "dst")
(negate-location "hello" :constrained "dst" :source "src")
`)
	var out, errOut bytes.Buffer
	if err := run([]string{"-frames", "2", "-log-level", "error", path}, &out, &errOut); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, errOut.String())
	}

	var report Report
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out.String())
	}
	if report.Frames != 2 {
		t.Errorf("frames = %d, want 2", report.Frames)
	}
	if got := jointByName(t, report, "dst").Position; !nearVec(got, [3]float64{-1, -2, -3}, 0) {
		t.Errorf("dst position = %v, want (-1, -2, -3)", got)
	}
}

func TestRunReportsSourceErrors(t *testing.T) {
	path := writeRig(t, "(joint \"a\" :parent \"missing\")")
	var out bytes.Buffer
	err := run([]string{"-log-level", "error", path}, &out, io.Discard)
	if err == nil {
		t.Fatal("expected error for a broken rig")
	}
	if !strings.Contains(err.Error(), "error(s) in rig source") {
		t.Errorf("unexpected error: %v", err)
	}

	var report Report
	if jerr := json.Unmarshal(out.Bytes(), &report); jerr != nil {
		t.Fatalf("the report is still printed: %v", jerr)
	}
	if len(report.Errors) == 0 {
		t.Error("report should carry the eval errors")
	}
}

func TestRunMissingFile(t *testing.T) {
	err := run([]string{filepath.Join(t.TempDir(), "nope.rig")}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "read rig") {
		t.Fatalf("err = %v, want a read error", err)
	}
}

func TestRunLogsToErrOut(t *testing.T) {
	path := writeRig(t, `(joint "a")`)
	var errOut bytes.Buffer
	if err := run([]string{"-log-format", "json", path}, io.Discard, &errOut); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(errOut.String(), `"msg":"rig evaluated"`) {
		t.Errorf("expected a JSON progress record, got %q", errOut.String())
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
