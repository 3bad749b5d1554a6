// Package curve provides shaping curves that map a normalized position
// t in [0, 1] to a blend weight. Curves are not required to be monotonic or
// bounded; consumers clamp the result with Clamp01.
package curve

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/interp"
)

// Curve is a scalar function of a normalized parameter.
type Curve interface {
	Evaluate(t float64) float64
}

// Func adapts an ordinary function to the Curve interface.
type Func func(t float64) float64

// Evaluate calls f(t).
func (f Func) Evaluate(t float64) float64 {
	return f(t)
}

// Constant returns a curve with the same value everywhere.
func Constant(v float64) Curve {
	return Func(func(float64) float64 { return v })
}

// Clamp01 clamps v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}

// Key is a single keyframe of a Keyframed curve.
type Key struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Interpolation selects how a Keyframed curve fills in between keys.
type Interpolation int

const (
	Linear   Interpolation = iota // piecewise linear
	Akima                         // Akima cubic spline, may overshoot
	Monotone                      // Fritsch-Butland monotone cubic
	Step                          // piecewise constant
)

func (m Interpolation) String() string {
	switch m {
	case Linear:
		return "linear"
	case Akima:
		return "akima"
	case Monotone:
		return "monotone"
	case Step:
		return "step"
	default:
		return fmt.Sprintf("Interpolation(%d)", int(m))
	}
}

// ParseInterpolation maps a mode name to an Interpolation.
func ParseInterpolation(name string) (Interpolation, error) {
	switch name {
	case "linear", "":
		return Linear, nil
	case "akima":
		return Akima, nil
	case "monotone":
		return Monotone, nil
	case "step":
		return Step, nil
	}
	return Linear, fmt.Errorf("unknown interpolation %q, expected linear, akima, monotone or step", name)
}

// Keyframed is a curve defined by keys. Outside the key range it holds the
// first or last value. Keys may be replaced at any time with SetKeys; the
// curve is then re-fitted.
type Keyframed struct {
	mu   sync.RWMutex
	mode Interpolation
	keys []Key
	pred interp.Predictor
}

// NewKeyframed fits a curve through keys. At least one key is required and
// key times must be distinct.
func NewKeyframed(mode Interpolation, keys ...Key) (*Keyframed, error) {
	k := &Keyframed{mode: mode}
	if err := k.SetKeys(keys...); err != nil {
		return nil, err
	}
	return k, nil
}

// NewLinear returns the default shaping curve, a straight line from (0, 0)
// to (1, 1).
func NewLinear() *Keyframed {
	k, err := NewKeyframed(Linear, Key{0, 0}, Key{1, 1})
	if err != nil {
		panic(fmt.Sprintf("curve: default linear curve: %v", err))
	}
	return k
}

// SetKeys replaces the keys and re-fits the curve.
func (k *Keyframed) SetKeys(keys ...Key) error {
	if len(keys) == 0 {
		return fmt.Errorf("curve requires at least one key")
	}
	sorted := make([]Key, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, key := range sorted {
		if math.IsNaN(key.Time) || math.IsNaN(key.Value) || math.IsInf(key.Time, 0) || math.IsInf(key.Value, 0) {
			return fmt.Errorf("key %d is not finite: (%v, %v)", i, key.Time, key.Value)
		}
		if i > 0 && key.Time == sorted[i-1].Time {
			return fmt.Errorf("duplicate key time %v", key.Time)
		}
		xs[i] = key.Time
		ys[i] = key.Value
	}

	pred, err := fit(k.mode, xs, ys)
	if err != nil {
		return fmt.Errorf("fitting %s curve: %w", k.mode, err)
	}

	k.mu.Lock()
	k.keys = sorted
	k.pred = pred
	k.mu.Unlock()
	return nil
}

// fit builds the gonum predictor for mode. A single key yields a constant;
// the cubic modes fall back to linear below three keys.
func fit(mode Interpolation, xs, ys []float64) (interp.Predictor, error) {
	if len(xs) == 1 {
		return constantPredictor(ys[0]), nil
	}
	var p interp.FittablePredictor
	switch mode {
	case Akima:
		if len(xs) >= 3 {
			p = &interp.AkimaSpline{}
		}
	case Monotone:
		if len(xs) >= 3 {
			p = &interp.FritschButland{}
		}
	case Step:
		return newHoldPredictor(xs, ys), nil
	}
	if p == nil {
		p = &interp.PiecewiseLinear{}
	}
	if err := p.Fit(xs, ys); err != nil {
		return nil, err
	}
	return p, nil
}

type constantPredictor float64

func (c constantPredictor) Predict(float64) float64 { return float64(c) }

// holdPredictor holds each key's value until the next key time. gonum's
// PiecewiseConstant is left-continuous and takes the next key's value.
type holdPredictor struct {
	xs, ys []float64
}

func newHoldPredictor(xs, ys []float64) holdPredictor {
	return holdPredictor{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
	}
}

func (p holdPredictor) Predict(x float64) float64 {
	i := sort.SearchFloat64s(p.xs, x)
	if i < len(p.xs) && p.xs[i] == x {
		return p.ys[i]
	}
	if i == 0 {
		return p.ys[0]
	}
	return p.ys[i-1]
}

// Evaluate returns the curve value at t, holding the end values outside the
// key range. A Keyframed without keys evaluates to 0.
func (k *Keyframed) Evaluate(t float64) float64 {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if len(k.keys) == 0 || k.pred == nil {
		return 0
	}
	first, last := k.keys[0], k.keys[len(k.keys)-1]
	if math.IsNaN(t) || t <= first.Time {
		return first.Value
	}
	if t >= last.Time {
		return last.Value
	}
	return k.pred.Predict(t)
}

// Keys returns a copy of the curve's keys in time order.
func (k *Keyframed) Keys() []Key {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]Key, len(k.keys))
	copy(out, k.keys)
	return out
}

// Mode returns the interpolation mode.
func (k *Keyframed) Mode() Interpolation {
	return k.mode
}
