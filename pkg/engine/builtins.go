package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/tendon/pkg/constraint"
	"github.com/chazu/tendon/pkg/curve"
	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/chazu/tendon/pkg/rig"
	"github.com/go-gl/mathgl/mgl64"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpJointRef is returned by `joint` and accepted wherever a joint name is.
type sexpJointRef struct {
	id   hierarchy.NodeID
	name string
}

func (j *sexpJointRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(joint %q)", j.name)
}
func (j *sexpJointRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a vector.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpQuat wraps a rotation built by `euler` or `axis-angle`.
type sexpQuat struct {
	q mgl64.Quat
}

func (q *sexpQuat) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(quat %g %g %g %g)", q.q.W, q.q.V[0], q.q.V[1], q.q.V[2])
}
func (q *sexpQuat) Type() *zygo.RegisteredType { return nil }

// sexpKey wraps a curve key.
type sexpKey struct {
	key curve.Key
}

func (k *sexpKey) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(key %g %g)", k.key.Time, k.key.Value)
}
func (k *sexpKey) Type() *zygo.RegisteredType { return nil }

// sexpCurve wraps a shaping curve.
type sexpCurve struct {
	c *curve.Keyframed
}

func (c *sexpCurve) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(curve :mode :%s ...%d keys)", c.c.Mode(), len(c.c.Keys()))
}
func (c *sexpCurve) Type() *zygo.RegisteredType { return nil }

// sexpConstraintRef is returned by the constraint builtins.
type sexpConstraintRef struct {
	name string
	kind string
}

func (c *sexpConstraintRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", c.kind, c.name)
}
func (c *sexpConstraintRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. Keywords
// outside allowed are rejected, as are repeated keywords and a trailing
// keyword with no value, so a misspelt option fails loudly instead of
// silently taking its default.
func parseArgs(fn string, args []zygo.Sexp, allowed ...string) (kwArgs, error) {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if !lo.Contains(allowed, name) {
			return kwArgs{}, fmt.Errorf("%s: unknown keyword %s (accepts %s)",
				fn, kwLabel(name), strings.Join(lo.Map(allowed, func(a string, _ int) string { return kwLabel(a) }), " "))
		}
		if _, dup := result.kw[name]; dup {
			return kwArgs{}, fmt.Errorf("%s: keyword %s given twice", fn, kwLabel(name))
		}
		if i+1 == len(args) {
			return kwArgs{}, fmt.Errorf("%s: keyword %s has no value", fn, kwLabel(name))
		}
		i++
		result.kw[name] = args[i]
	}
	return result, nil
}

// kwLabel spells a canonical keyword the way rig files usually write it.
func kwLabel(name string) string {
	return ":" + strings.ReplaceAll(name, "_", "-")
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a finite float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	var f float64
	switch v := s.(type) {
	case *zygo.SexpInt:
		f = float64(v.Val)
	case *zygo.SexpFloat:
		f = v.Val
	default:
		return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected finite number, got %v", f)
	}
	return f, nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toJointName accepts a joint reference or a plain joint name.
func toJointName(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *sexpJointRef:
		return v.name, nil
	case *zygo.SexpStr:
		if strings.HasPrefix(v.S, kwPrefix) {
			return "", fmt.Errorf("expected joint name, got keyword :%s", v.S[len(kwPrefix):])
		}
		return v.S, nil
	}
	return "", fmt.Errorf("expected joint or joint name, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toQuat extracts a rotation from a sexpQuat.
func toQuat(s zygo.Sexp) (mgl64.Quat, error) {
	if q, ok := s.(*sexpQuat); ok {
		return q.q, nil
	}
	return mgl64.Quat{}, fmt.Errorf("expected rotation (euler or axis-angle), got %T (%s)", s, s.SexpString(nil))
}

// toAxes converts a list of axis keywords (:x :y :z) to flags.
func toAxes(s zygo.Sexp) (x, y, z bool, err error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		// A single keyword is accepted too.
		items = []zygo.Sexp{s}
	}
	for _, item := range items {
		name, err := toKeywordString(item)
		if err != nil {
			return false, false, false, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
		}
		switch name {
		case "x":
			x = true
		case "y":
			y = true
		case "z":
			z = true
		default:
			return false, false, false, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
		}
	}
	return x, y, z, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// weightArg reads the optional :weight keyword, defaulting to 1.
func weightArg(pa kwArgs, fn string) (float64, error) {
	v, ok := pa.kw["weight"]
	if !ok {
		return 1, nil
	}
	w, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: weight: %w", fn, err)
	}
	if w < 0 || w > 1 {
		return 0, fmt.Errorf("%s: weight %g outside [0, 1]", fn, w)
	}
	return w, nil
}

// jointArgs reads the named joint keywords into dst, in order.
func jointArgs(pa kwArgs, fn string, names []string, dst []*string) error {
	for i, kw := range names {
		v, ok := pa.kw[kw]
		if !ok {
			continue
		}
		name, err := toJointName(v)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", fn, kwLabel(kw), err)
		}
		*dst[i] = name
	}
	return nil
}

// constraintName reads the leading name of a constraint form and rejects
// duplicates.
func constraintName(d *rig.Desc, pa kwArgs, fn string) (string, error) {
	if len(pa.positional) < 1 {
		return "", fmt.Errorf("%s requires a name argument", fn)
	}
	name, err := toString(pa.positional[0])
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", fn, err)
	}
	if name == "" {
		return "", fmt.Errorf("%s: name must not be empty", fn)
	}
	if lo.ContainsBy(d.Constraints, func(c rig.ConstraintDesc) bool { return c.Name == name }) {
		return "", fmt.Errorf("%s: duplicate constraint name %q", fn, name)
	}
	return name, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the rig DSL builtins into a zygomys environment.
// The builtins populate d (and its hierarchy) during evaluation.
//
// Source code must go through preprocessSource first: builtins are registered
// under underscore names and look keywords up by their canonical names.
func registerBuiltins(env *zygo.Zlisp, d *rig.Desc) {
	h := d.Hierarchy

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (euler 0 90 0) ; degrees, applied X then Y then Z
	// -----------------------------------------------------------------------
	env.AddFunction("euler", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("euler requires exactly 3 angles, got %d", len(args))
		}
		var deg [3]float64
		for i := range deg {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("euler: angle %d: %w", i, err)
			}
			deg[i] = f
		}
		return &sexpQuat{q: eulerQuat(deg[0], deg[1], deg[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (axis-angle (vec3 0 1 0) 45) ; degrees
	// -----------------------------------------------------------------------
	env.AddFunction("axis_angle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("axis-angle requires an axis and an angle")
		}
		axis, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("axis-angle: axis: %w", err)
		}
		if axis.Len() == 0 {
			return zygo.SexpNull, fmt.Errorf("axis-angle: axis must not be zero")
		}
		deg, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("axis-angle: angle: %w", err)
		}
		return &sexpQuat{q: mgl64.QuatRotate(mgl64.DegToRad(deg), axis.Normalize())}, nil
	})

	// -----------------------------------------------------------------------
	// (joint "fore" :parent "upper" :at (vec3 0 1 0) :rotation (euler 0 0 10)
	//        :scale (vec3 1 1 1))
	// -----------------------------------------------------------------------
	env.AddFunction("joint", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("joint", args, "parent", "at", "rotation", "scale")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("joint requires a name argument")
		}
		jointName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("joint: name: %w", err)
		}

		parent := hierarchy.ZeroID
		if v, ok := pa.kw["parent"]; ok {
			pname, err := toJointName(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("joint: parent: %w", err)
			}
			id, ok := h.Resolve(pname)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("joint: parent: no joint named %q (declare parents first)", pname)
			}
			parent = id
		}

		local := hierarchy.Identity()
		if v, ok := pa.kw["at"]; ok {
			if local.Position, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("joint: at: %w", err)
			}
		}
		if v, ok := pa.kw["rotation"]; ok {
			if local.Rotation, err = toQuat(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("joint: rotation: %w", err)
			}
		}
		if v, ok := pa.kw["scale"]; ok {
			if local.Scale, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("joint: scale: %w", err)
			}
		}

		id, err := h.AddJoint(jointName, parent, local)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("joint: %w", err)
		}
		return &sexpJointRef{id: id, name: jointName}, nil
	})

	// -----------------------------------------------------------------------
	// (key 0.5 1)
	// -----------------------------------------------------------------------
	env.AddFunction("key", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("key requires a time and a value, got %d arguments", len(args))
		}
		t, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("key: time: %w", err)
		}
		v, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("key: value: %w", err)
		}
		return &sexpKey{key: curve.Key{Time: t, Value: v}}, nil
	})

	// -----------------------------------------------------------------------
	// (curve :mode :akima (key 0 0) (key 0.5 0.8) (key 1 1))
	// -----------------------------------------------------------------------
	env.AddFunction("curve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, err := parseArgs("curve", args, "mode")
		if err != nil {
			return zygo.SexpNull, err
		}
		mode := curve.Linear
		if v, ok := pa.kw["mode"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("curve: mode: %w", err)
			}
			if mode, err = curve.ParseInterpolation(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("curve: %w", err)
			}
		}
		if len(pa.positional) == 0 {
			c, _ := curve.NewKeyframed(mode, curve.Key{Time: 0, Value: 0}, curve.Key{Time: 1, Value: 1})
			return &sexpCurve{c: c}, nil
		}
		keys := make([]curve.Key, 0, len(pa.positional))
		for i, arg := range pa.positional {
			k, ok := arg.(*sexpKey)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("curve: argument %d: expected key, got %T (%s)", i, arg, arg.SexpString(nil))
			}
			keys = append(keys, k.key)
		}
		c, err := curve.NewKeyframed(mode, keys...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("curve: %w", err)
		}
		return &sexpCurve{c: c}, nil
	})

	// -----------------------------------------------------------------------
	// (twist-chain "forearm-twist" :root "fore" :tip "hand"
	//              :root-target "fore-ctl" :tip-target "hand-ctl"
	//              :curve (curve ...) :weight 1 :shaping true :track-targets true)
	// -----------------------------------------------------------------------
	env.AddFunction("twist_chain", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const fn = "twist-chain"
		pa, err := parseArgs(fn, args, "root", "tip", "root_target", "tip_target",
			"curve", "shaping", "track_targets", "weight")
		if err != nil {
			return zygo.SexpNull, err
		}
		cname, err := constraintName(d, pa, fn)
		if err != nil {
			return zygo.SexpNull, err
		}

		data := constraint.NewTwistChainData("", "", "", "")
		err = jointArgs(pa, fn,
			[]string{"root", "tip", "root_target", "tip_target"},
			[]*string{&data.Root, &data.Tip, &data.RootTarget, &data.TipTarget})
		if err != nil {
			return zygo.SexpNull, err
		}

		if v, ok := pa.kw["curve"]; ok {
			c, ok := v.(*sexpCurve)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: curve: expected curve, got %T (%s)", fn, v, v.SexpString(nil))
			}
			data.Curve = c.c
		}
		// Each option turns off its feature when false.
		for kw, feature := range map[string]constraint.Features{
			"shaping":       constraint.FeatureNoCurveShaping,
			"track_targets": constraint.FeatureNoTrackTargets,
		} {
			v, ok := pa.kw[kw]
			if !ok {
				continue
			}
			on, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %s: %w", fn, kwLabel(kw), err)
			}
			if on {
				data.Features &^= feature
			} else {
				data.Features |= feature
			}
		}

		w, err := weightArg(pa, fn)
		if err != nil {
			return zygo.SexpNull, err
		}
		d.Add(cname, w, data)
		return &sexpConstraintRef{name: cname, kind: constraint.KindTwistChain}, nil
	})

	// -----------------------------------------------------------------------
	// (copy-location "mirror" :constrained "l-hand" :source "r-hand"
	//                :invert (list :x) :weight 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("copy_location", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const fn = "copy-location"
		pa, err := parseArgs(fn, args, "constrained", "source", "invert", "weight")
		if err != nil {
			return zygo.SexpNull, err
		}
		cname, err := constraintName(d, pa, fn)
		if err != nil {
			return zygo.SexpNull, err
		}

		var data constraint.CopyLocationData
		err = jointArgs(pa, fn,
			[]string{"constrained", "source"},
			[]*string{&data.Constrained, &data.Source})
		if err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["invert"]; ok {
			if data.InvertX, data.InvertY, data.InvertZ, err = toAxes(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: invert: %w", fn, err)
			}
		}

		w, err := weightArg(pa, fn)
		if err != nil {
			return zygo.SexpNull, err
		}
		d.Add(cname, w, data)
		return &sexpConstraintRef{name: cname, kind: constraint.KindCopyLocation}, nil
	})

	// -----------------------------------------------------------------------
	// (negate-location "hello" :constrained "a" :source "b")
	// -----------------------------------------------------------------------
	env.AddFunction("negate_location", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const fn = "negate-location"
		pa, err := parseArgs(fn, args, "constrained", "source", "weight")
		if err != nil {
			return zygo.SexpNull, err
		}
		cname, err := constraintName(d, pa, fn)
		if err != nil {
			return zygo.SexpNull, err
		}

		data := constraint.NegateLocation("", "")
		err = jointArgs(pa, fn,
			[]string{"constrained", "source"},
			[]*string{&data.Constrained, &data.Source})
		if err != nil {
			return zygo.SexpNull, err
		}

		w, err := weightArg(pa, fn)
		if err != nil {
			return zygo.SexpNull, err
		}
		d.Add(cname, w, data)
		return &sexpConstraintRef{name: cname, kind: constraint.KindCopyLocation}, nil
	})

	// -----------------------------------------------------------------------
	// (rig-weight 0.75)
	// -----------------------------------------------------------------------
	env.AddFunction("rig_weight", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("rig-weight requires exactly 1 argument, got %d", len(args))
		}
		w, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rig-weight: %w", err)
		}
		if w < 0 || w > 1 {
			return zygo.SexpNull, fmt.Errorf("rig-weight: %g outside [0, 1]", w)
		}
		d.Weight = w
		return &zygo.SexpFloat{Val: w}, nil
	})
}

// eulerQuat builds a rotation from XYZ angles in degrees, applied X first.
func eulerQuat(x, y, z float64) mgl64.Quat {
	qx := mgl64.QuatRotate(mgl64.DegToRad(x), mgl64.Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(mgl64.DegToRad(y), mgl64.Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(mgl64.DegToRad(z), mgl64.Vec3{0, 0, 1})
	return qz.Mul(qy).Mul(qx).Normalize()
}
