// Package engine provides the Lisp evaluation engine for rig descriptions.
// It wraps zygomys in a sandboxed environment and produces a rig.Desc
// from user source code.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/tendon/internal/logger"
	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/chazu/tendon/pkg/rig"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or an invalid
// hierarchy.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	NodeID  hierarchy.NodeID
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Desc     *rig.Desc
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter for rig evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	// Timeout bounds a single evaluation. Zero means EvalTimeout.
	Timeout time.Duration

	log *slog.Logger
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{log: logger.ForComponent("engine")}
}

// Evaluate takes Lisp source code and produces a new rig description.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns desc + nil errors + nil error
//   - On parse/eval/hierarchy failure: returns nil desc + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*rig.Desc, []EvalError, error) {
	res, err := e.EvaluateResult(source)
	if err != nil {
		return nil, nil, err
	}
	return res.Desc, res.Errors, nil
}

// EvaluateResult is Evaluate with warnings included.
func (e *Engine) EvaluateResult(source string) (*EvalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		res, err := e.evaluate(source)
		ch <- evalResult{result: res, err: err}
	}()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	res, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, timeout)
	if err != nil {
		e.logger().Error("evaluation failed", "generation", gen, "error", err)
		return nil, err
	}
	return res, nil
}

func (e *Engine) logger() *slog.Logger {
	if e.log == nil {
		return logger.ForComponent("engine")
	}
	return e.log
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*EvalResult, error) {
	desc := rig.NewDesc(hierarchy.New())

	// Empty source is a valid program that produces an empty rig.
	if strings.TrimSpace(source) == "" {
		return &EvalResult{Desc: desc}, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, desc)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return &EvalResult{Errors: parseZygomysError(err)}, nil
	}

	_, err = env.Run()
	if err != nil {
		return &EvalResult{Errors: parseZygomysError(err)}, nil
	}

	res := &EvalResult{Desc: desc}
	for _, ve := range hierarchy.Validate(desc.Hierarchy) {
		if ve.Severity == hierarchy.SeverityError {
			res.Errors = append(res.Errors, EvalError{Message: ve.Error()})
			continue
		}
		res.Warnings = append(res.Warnings, EvalWarning{Message: ve.Message, NodeID: ve.NodeID})
	}
	if len(res.Errors) > 0 {
		res.Desc = nil
		return res, nil
	}

	e.logger().Debug("rig evaluated",
		"joints", desc.Hierarchy.NodeCount(),
		"constraints", len(desc.Constraints),
		"warnings", len(res.Warnings))
	return res, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// No line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
