package analyzer

import "fmt"

// ClusterEngine names a clustering implementation.
type ClusterEngine string

const (
	// EngineLloyd is the seeded, reproducible k-means.
	EngineLloyd ClusterEngine = "lloyd"
	// EngineMuesli delegates to github.com/muesli/kmeans.
	EngineMuesli ClusterEngine = "muesli"
)

// ParseClusterEngine validates an engine name.
func ParseClusterEngine(name string) (ClusterEngine, error) {
	switch ClusterEngine(name) {
	case EngineLloyd, EngineMuesli:
		return ClusterEngine(name), nil
	case "":
		return EngineLloyd, nil
	default:
		return "", fmt.Errorf("unsupported cluster engine: %q", name)
	}
}

// AnalysisOptions configures one analysis pass
type AnalysisOptions struct {
	// Pipeline parameters
	ClusterCount     int
	DownscaleFactor  int
	NeutralThreshold int

	// Presentation
	MinPercentage         float64
	IncludeProcessedImage bool
}

// DefaultOptions returns the fixed pipeline parameters and a 1% presentation cut-off
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		ClusterCount:          ClusterCount,
		DownscaleFactor:       DownscaleFactor,
		NeutralThreshold:      NeutralThreshold,
		MinPercentage:         DefaultMinPercentage,
		IncludeProcessedImage: false,
	}
}

// WithMinPercentage sets the presentation cut-off
func (opts AnalysisOptions) WithMinPercentage(minPercentage float64) AnalysisOptions {
	opts.MinPercentage = minPercentage
	return opts
}

// WithProcessedImage asks for the downscaled image in the result
func (opts AnalysisOptions) WithProcessedImage(include bool) AnalysisOptions {
	opts.IncludeProcessedImage = include
	return opts
}

// Validate rejects options the pipeline cannot run with
func (opts AnalysisOptions) Validate() error {
	if opts.ClusterCount <= 0 {
		return fmt.Errorf("cluster count must be > 0 (got %d)", opts.ClusterCount)
	}
	if opts.DownscaleFactor <= 0 {
		return fmt.Errorf("downscale factor must be > 0 (got %d)", opts.DownscaleFactor)
	}
	if opts.NeutralThreshold < 0 {
		return fmt.Errorf("neutral threshold must be >= 0 (got %d)", opts.NeutralThreshold)
	}
	if opts.MinPercentage < 0 || opts.MinPercentage > 100 {
		return fmt.Errorf("min percentage must be within [0, 100] (got %g)", opts.MinPercentage)
	}
	return nil
}

// Fingerprint identifies the options that influence the coverage table.
func (opts AnalysisOptions) Fingerprint() string {
	return fmt.Sprintf("k%d-f%d-t%d", opts.ClusterCount, opts.DownscaleFactor, opts.NeutralThreshold)
}
