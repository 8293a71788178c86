package seqtable

import (
	"strconv"
	"strings"
)

// Region is a genomic region predicate: a reference name plus a half-open
// coordinate interval [Start, End). Coordinates are 0-based internally;
// ParseRegion accepts the conventional 1-based inclusive "chrom:start-end"
// form and converts.
type Region struct {
	Chrom string
	Start int64
	End   int64
}

const maxRegionEnd = int64(1) << 62

// ParseRegion parses "chrom", "chrom:start-end", "chrom:start" or the bare
// "start-end" interval forms. Malformed strings are configuration errors,
// never a panic.
func ParseRegion(s string) (Region, error) {
	if s == "" {
		return Region{}, newConfigError(s, "empty region string", ErrInvalidRegion)
	}
	chrom := s
	interval := ""
	if i := strings.LastIndex(s, ":"); i >= 0 {
		chrom, interval = s[:i], s[i+1:]
	}
	if chrom == "" {
		return Region{}, newConfigError(s, "missing reference name", ErrInvalidRegion)
	}
	if interval == "" {
		// Whole reference.
		return Region{Chrom: chrom, Start: 0, End: maxRegionEnd}, nil
	}
	start, end, err := parseInterval(interval)
	if err != nil {
		return Region{}, newConfigError(s, "malformed interval", err)
	}
	return Region{Chrom: chrom, Start: start, End: end}, nil
}

// parseInterval parses a 1-based inclusive "start-end" or single "pos" into a
// half-open 0-based interval.
func parseInterval(s string) (start, end int64, err error) {
	lo := s
	hi := ""
	if i := strings.Index(s, "-"); i >= 0 {
		lo, hi = s[:i], s[i+1:]
	}
	first, err := strconv.ParseInt(strings.ReplaceAll(lo, ",", ""), 10, 64)
	if err != nil || first < 1 {
		return 0, 0, ErrInvalidRegion
	}
	if hi == "" {
		return first - 1, first, nil
	}
	last, err := strconv.ParseInt(strings.ReplaceAll(hi, ",", ""), 10, 64)
	if err != nil || last < 1 {
		return 0, 0, ErrInvalidRegion
	}
	if last < first {
		return 0, 0, ErrInvalidRegion
	}
	return first - 1, last, nil
}

// Overlaps reports whether the half-open interval [start, end) on chrom
// overlaps the region. Zero-length intervals match nothing.
func (r Region) Overlaps(chrom string, start, end int64) bool {
	return chrom == r.Chrom && start < end && start < r.End && end > r.Start
}

// wholeChrom reports whether the region covers an entire reference.
func (r Region) wholeChrom() bool {
	return r.Start == 0 && r.End == maxRegionEnd
}

func (r Region) String() string {
	if r.wholeChrom() {
		return r.Chrom
	}
	return r.Chrom + ":" + strconv.FormatInt(r.Start+1, 10) + "-" + strconv.FormatInt(r.End, 10)
}
