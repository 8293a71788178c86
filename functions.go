package seqtable

import (
	"fmt"
	"math"
	"strings"
)

// Domain functions consumed by the host query engine as scalar functions.
// All of them are pure; wrong-typed or wrong-arity calls through the registry
// are planning-time configuration errors, never silent false.

// phredOffset is the ASCII offset of Phred+33 quality encoding.
const phredOffset = 33

// maxPhred is the largest score representable in Phred+33 printable ASCII.
const maxPhred = 93

// QualityScoresToList decodes a Phred+33 quality string into numeric scores:
// '!' is 0, '#' is 2, 'I' is 40. Out-of-range code points are a runtime
// error.
func QualityScoresToList(s string) ([]int64, error) {
	out := make([]int64, len(s))
	for i := 0; i < len(s); i++ {
		v := int64(s[i]) - phredOffset
		if v < 0 || v > maxPhred {
			return nil, fmt.Errorf("quality character %q at %d outside Phred+33 range", s[i], i)
		}
		out[i] = v
	}
	return out, nil
}

// QualityScoresToString encodes numeric Phred scores back to the +33 ASCII
// form. Round-trips exactly for values in [0, 93].
func QualityScoresToString(scores []int64) (string, error) {
	var sb strings.Builder
	sb.Grow(len(scores))
	for i, v := range scores {
		if v < 0 || v > maxPhred {
			return "", fmt.Errorf("quality score %d at %d outside [0, %d]", v, i, maxPhred)
		}
		sb.WriteByte(byte(v + phredOffset))
	}
	return sb.String(), nil
}

// ContainsPeak reports whether any m/z value lies within tolerance
// (inclusive) of target.
func ContainsPeak(mz []float64, target, tolerance float64) bool {
	for _, v := range mz {
		if math.Abs(v-target) <= tolerance {
			return true
		}
	}
	return false
}

// BinVectors partitions [0, maxMZ] into binCount equal-width bins and sums
// the intensities whose m/z falls in each bin, using tolerance to decide
// boundary membership. Empty bins are zero.
func BinVectors(mz, intensity []float64, maxMZ float64, binCount int, tolerance float64) ([]float64, error) {
	if binCount <= 0 {
		return nil, newConfigError("bin_vectors", "bin count must be positive", nil)
	}
	if len(mz) != len(intensity) {
		return nil, newConfigError("bin_vectors", "mz and intensity lengths differ", nil)
	}
	out := make([]float64, binCount)
	// Tolerance widens the binned range on both sides, so boundary peaks
	// within tolerance of [0, maxMZ] still land in an edge bin.
	width := (maxMZ + 2*tolerance) / float64(binCount)
	for i, v := range mz {
		if v < -tolerance || v > maxMZ+2*tolerance {
			continue
		}
		bin := int((v - tolerance) / width)
		if bin < 0 {
			bin = 0
		}
		if bin >= binCount {
			bin = binCount - 1
		}
		out[bin] += intensity[i]
	}
	return out, nil
}

// RegionMatch reports whether (chrom, position) falls inside the region
// string "chrom:start-end". Malformed region strings are configuration
// errors.
func RegionMatch(chrom string, position int64, region string) (bool, error) {
	r, err := ParseRegion(region)
	if err != nil {
		return false, err
	}
	return r.Overlaps(chrom, position-1, position), nil
}

// IntervalMatch reports whether position falls inside the 1-based inclusive
// interval string "start-end".
func IntervalMatch(position int64, interval string) (bool, error) {
	start, end, err := parseInterval(interval)
	if err != nil {
		return false, newConfigError(interval, "malformed interval", err)
	}
	p := position - 1
	return p >= start && p < end, nil
}

// ChromMatch reports whether chrom equals the reference named by the region
// string.
func ChromMatch(chrom, region string) (bool, error) {
	r, err := ParseRegion(region)
	if err != nil {
		return false, err
	}
	return chrom == r.Chrom, nil
}

// ScalarFunc describes one engine-provided scalar function for host-engine
// registration. Call validates nothing beyond what the registry already
// checked.
type ScalarFunc struct {
	Name  string
	Arity int
	Call  func(args ...any) (any, error)
}

// Functions returns the scalar functions this engine contributes to the host
// query engine.
func Functions() []ScalarFunc {
	return []ScalarFunc{
		{Name: "quality_scores_to_list", Arity: 1, Call: func(args ...any) (any, error) {
			s, err := stringArg(args[0], "quality_scores_to_list")
			if err != nil {
				return nil, err
			}
			return QualityScoresToList(s)
		}},
		{Name: "quality_scores_to_string", Arity: 1, Call: func(args ...any) (any, error) {
			scores, err := intListArg(args[0], "quality_scores_to_string")
			if err != nil {
				return nil, err
			}
			return QualityScoresToString(scores)
		}},
		{Name: "contains_peak", Arity: 3, Call: func(args ...any) (any, error) {
			mz, err := floatListArg(args[0], "contains_peak")
			if err != nil {
				return nil, err
			}
			target, err := floatArg(args[1], "contains_peak")
			if err != nil {
				return nil, err
			}
			tolerance, err := floatArg(args[2], "contains_peak")
			if err != nil {
				return nil, err
			}
			return ContainsPeak(mz, target, tolerance), nil
		}},
		{Name: "bin_vectors", Arity: 5, Call: func(args ...any) (any, error) {
			mz, err := floatListArg(args[0], "bin_vectors")
			if err != nil {
				return nil, err
			}
			intensity, err := floatListArg(args[1], "bin_vectors")
			if err != nil {
				return nil, err
			}
			maxMZ, err := floatArg(args[2], "bin_vectors")
			if err != nil {
				return nil, err
			}
			binCount, err := intArg(args[3], "bin_vectors")
			if err != nil {
				return nil, err
			}
			tolerance, err := floatArg(args[4], "bin_vectors")
			if err != nil {
				return nil, err
			}
			return BinVectors(mz, intensity, maxMZ, int(binCount), tolerance)
		}},
		{Name: "region_match", Arity: 3, Call: func(args ...any) (any, error) {
			chrom, err := stringArg(args[0], "region_match")
			if err != nil {
				return nil, err
			}
			pos, err := intArg(args[1], "region_match")
			if err != nil {
				return nil, err
			}
			region, err := stringArg(args[2], "region_match")
			if err != nil {
				return nil, err
			}
			return RegionMatch(chrom, pos, region)
		}},
		{Name: "interval_match", Arity: 2, Call: func(args ...any) (any, error) {
			pos, err := intArg(args[0], "interval_match")
			if err != nil {
				return nil, err
			}
			interval, err := stringArg(args[1], "interval_match")
			if err != nil {
				return nil, err
			}
			return IntervalMatch(pos, interval)
		}},
		{Name: "chrom_match", Arity: 2, Call: func(args ...any) (any, error) {
			chrom, err := stringArg(args[0], "chrom_match")
			if err != nil {
				return nil, err
			}
			region, err := stringArg(args[1], "chrom_match")
			if err != nil {
				return nil, err
			}
			return ChromMatch(chrom, region)
		}},
	}
}

// CallFunction invokes a registered scalar function by name with arity
// checking. Unknown names and wrong arity are planning-time errors.
func CallFunction(name string, args ...any) (any, error) {
	for _, fn := range Functions() {
		if fn.Name != name {
			continue
		}
		if len(args) != fn.Arity {
			return nil, newConfigError(name,
				fmt.Sprintf("expects %d arguments, got %d", fn.Arity, len(args)), nil)
		}
		return fn.Call(args...)
	}
	return nil, newConfigError(name, "unknown function", nil)
}

func stringArg(v any, fn string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", newConfigError(fn, fmt.Sprintf("expected string argument, got %T", v), nil)
	}
	return s, nil
}

func intArg(v any, fn string) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	}
	return 0, newConfigError(fn, fmt.Sprintf("expected integer argument, got %T", v), nil)
}

func floatArg(v any, fn string) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, newConfigError(fn, fmt.Sprintf("expected numeric argument, got %T", v), nil)
}

func intListArg(v any, fn string) ([]int64, error) {
	l, ok := v.([]int64)
	if !ok {
		return nil, newConfigError(fn, fmt.Sprintf("expected list<int> argument, got %T", v), nil)
	}
	return l, nil
}

func floatListArg(v any, fn string) ([]float64, error) {
	l, ok := v.([]float64)
	if !ok {
		return nil, newConfigError(fn, fmt.Sprintf("expected list<float> argument, got %T", v), nil)
	}
	return l, nil
}
