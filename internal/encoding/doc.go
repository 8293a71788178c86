// Package encoding provides the little-endian binary primitives used by the
// seqtable index artifact codec.
package encoding
