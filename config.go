package seqtable

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds engine-wide settings. The zero value is usable; constructors
// apply defaults for unset fields.
type Config struct {
	// Scan holds scan execution settings.
	Scan ScanConfig `yaml:"scan"`

	// Storage holds object-store settings.
	Storage StorageConfig `yaml:"storage"`

	// Catalog is the path of the SQLite table catalog. Empty disables the
	// persistent catalog.
	Catalog string `yaml:"catalog"`
}

// ScanConfig groups scan execution settings.
type ScanConfig struct {
	// BatchSize is the row-count ceiling per emitted batch. Default: 8192.
	BatchSize int `yaml:"batch_size"`

	// Parallelism bounds the number of in-flight file pipelines. Default: 4.
	Parallelism int `yaml:"parallelism"`
}

// StorageConfig groups object-store settings.
type StorageConfig struct {
	// S3 configures the S3 backend used for s3:// locations.
	S3 S3BackendConfig `yaml:"s3"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Scan: ScanConfig{
			BatchSize:   defaultBatchSize,
			Parallelism: defaultParallelism,
		},
	}
}

// LoadConfig reads a YAML configuration file and fills unset fields with
// defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Scan.BatchSize <= 0 {
		c.Scan.BatchSize = defaultBatchSize
	}
	if c.Scan.Parallelism <= 0 {
		c.Scan.Parallelism = defaultParallelism
	}
}

const (
	defaultBatchSize   = 8192
	defaultParallelism = 4
)

// ScanOptions are per-session decoder settings. Schema computation is a pure
// function of (format, options): the same file may be projected under either
// shape depending on these flags.
type ScanOptions struct {
	// ParseSAMTags expands SAM/BAM auxiliary tags into a typed map column
	// instead of an opaque tab-delimited string.
	ParseSAMTags bool `yaml:"parse_sam_tags"`

	// ParseVCFInfo expands the VCF INFO column into a map keyed by the
	// header-declared INFO field names.
	ParseVCFInfo bool `yaml:"parse_vcf_info"`

	// ParseVCFFormat expands the VCF FORMAT/genotype column into a map keyed
	// by the header-declared FORMAT field names.
	ParseVCFFormat bool `yaml:"parse_vcf_format"`

	// BatchSize overrides ScanConfig.BatchSize when positive.
	BatchSize int `yaml:"batch_size"`

	// Parallelism overrides ScanConfig.Parallelism when positive.
	Parallelism int `yaml:"parallelism"`

	// Projection is set by the scan executor so decoders can skip
	// materializing unrequested columns (tag-map parsing in particular).
	// Empty means all columns are needed.
	Projection []string
}

// needs reports whether the named column must be materialized under the
// current projection.
func (o ScanOptions) needs(column string) bool {
	if len(o.Projection) == 0 {
		return true
	}
	for _, name := range o.Projection {
		if name == column {
			return true
		}
	}
	return false
}

func (o ScanOptions) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return defaultBatchSize
}

func (o ScanOptions) parallelism() int {
	if o.Parallelism > 0 {
		return o.Parallelism
	}
	return defaultParallelism
}
