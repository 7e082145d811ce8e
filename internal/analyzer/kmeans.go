package analyzer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Defaults for the seeded k-means engine.
const (
	DefaultSeed          uint64  = 0
	DefaultNumInit               = 10
	DefaultMaxIterations         = 300
	DefaultTolerance     float64 = 1e-4
)

type point [3]float64

// LloydClusterer is a seeded k-means (Lloyd's algorithm, k-means++ seeding).
// The same seed and input always produce the same clusters.
type LloydClusterer struct {
	Seed          uint64
	NumInit       int
	MaxIterations int
	// Tolerance is relative to the mean per-channel variance of the input.
	Tolerance float64
}

// NewLloydClusterer returns the engine with the default parameters.
func NewLloydClusterer() *LloydClusterer {
	return &LloydClusterer{
		Seed:          DefaultSeed,
		NumInit:       DefaultNumInit,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

func (l *LloydClusterer) Name() string { return string(EngineLloyd) }

func (l *LloydClusterer) Deterministic() bool { return true }

// Cluster runs NumInit independent initializations and keeps the one with
// the lowest inertia. Earlier runs win ties.
func (l *LloydClusterer) Cluster(ctx context.Context, pixels []PixelColor, k int) ([]ColorCluster, error) {
	if k <= 0 {
		return nil, fmt.Errorf("cluster count must be > 0 (got %d)", k)
	}
	if len(pixels) < k {
		return nil, &InsufficientSamplesError{Samples: len(pixels), Clusters: k}
	}

	points := make([]point, len(pixels))
	for i, p := range pixels {
		points[i] = point{float64(p.R), float64(p.G), float64(p.B)}
	}
	tol := scaledTolerance(points, l.Tolerance)
	rng := rand.New(rand.NewPCG(l.Seed, l.Seed))

	var best *kmeansRun
	for i := 0; i < max(1, l.NumInit); i++ {
		run, err := l.run(ctx, points, k, tol, rng)
		if err != nil {
			return nil, err
		}
		if best == nil || run.inertia < best.inertia {
			best = run
		}
	}
	return best.colorClusters(), nil
}

type kmeansRun struct {
	centers []point
	counts  []int
	inertia float64
}

func (l *LloydClusterer) run(ctx context.Context, points []point, k int, tol float64, rng *rand.Rand) (*kmeansRun, error) {
	centers := seedCenters(points, k, rng)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < max(1, l.MaxIterations); iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed := assignLabels(points, centers, labels)
		shift := recenter(points, centers, labels)
		if !changed || shift <= tol {
			break
		}
	}

	// Final E-step so counts always describe the returned centers.
	assignLabels(points, centers, labels)
	run := &kmeansRun{centers: centers, counts: make([]int, k)}
	for i, p := range points {
		run.counts[labels[i]]++
		run.inertia += sqDist(p, centers[labels[i]])
	}
	return run, nil
}

func (r *kmeansRun) colorClusters() []ColorCluster {
	out := make([]ColorCluster, len(r.centers))
	for i, c := range r.centers {
		out[i] = ColorCluster{
			Color: PixelColor{R: truncChannel(c[0]), G: truncChannel(c[1]), B: truncChannel(c[2])},
			Count: r.counts[i],
		}
	}
	return out
}

// seedCenters is greedy k-means++: each step samples 2+ln(k) candidates
// proportionally to their squared distance and keeps the best one.
func seedCenters(points []point, k int, rng *rand.Rand) []point {
	n := len(points)
	centers := make([]point, 0, k)
	centers = append(centers, points[rng.IntN(n)])

	closest := make([]float64, n)
	for i, p := range points {
		closest[i] = sqDist(p, centers[0])
	}

	trials := 2 + int(math.Log(float64(k)))
	cumulative := make([]float64, n)
	candidate := make([]float64, n)
	bestDist := make([]float64, n)

	for len(centers) < k {
		var potential float64
		for i, d := range closest {
			potential += d
			cumulative[i] = potential
		}

		bestIdx, bestPotential := 0, math.Inf(1)
		for t := 0; t < trials; t++ {
			idx := sort.SearchFloat64s(cumulative, rng.Float64()*potential)
			if idx >= n {
				idx = n - 1
			}
			var candidatePotential float64
			for i, p := range points {
				d := math.Min(closest[i], sqDist(p, points[idx]))
				candidate[i] = d
				candidatePotential += d
			}
			if candidatePotential < bestPotential {
				bestIdx, bestPotential = idx, candidatePotential
				copy(bestDist, candidate)
			}
		}
		centers = append(centers, points[bestIdx])
		copy(closest, bestDist)
	}
	return centers
}

// assignLabels moves every point to its nearest center, first minimum wins.
func assignLabels(points, centers []point, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for j, c := range centers {
			if d := sqDist(p, c); d < bestDist {
				best, bestDist = j, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// recenter moves each center to the mean of its members and returns the
// total squared shift. Centers without members stay where they are.
func recenter(points, centers []point, labels []int) float64 {
	sums := make([]point, len(centers))
	counts := make([]int, len(centers))
	for i, p := range points {
		l := labels[i]
		sums[l][0] += p[0]
		sums[l][1] += p[1]
		sums[l][2] += p[2]
		counts[l]++
	}
	var shift float64
	for j := range centers {
		if counts[j] == 0 {
			continue
		}
		n := float64(counts[j])
		next := point{sums[j][0] / n, sums[j][1] / n, sums[j][2] / n}
		shift += sqDist(centers[j], next)
		centers[j] = next
	}
	return shift
}

func scaledTolerance(points []point, tol float64) float64 {
	if tol <= 0 || len(points) == 0 {
		return 0
	}
	channel := make([]float64, len(points))
	var mean float64
	for ch := 0; ch < 3; ch++ {
		for i, p := range points {
			channel[i] = p[ch]
		}
		mean += stat.PopVariance(channel, nil)
	}
	return mean / 3 * tol
}

func sqDist(a, b point) float64 {
	dr, dg, db := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dr*dr + dg*dg + db*db
}

func truncChannel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
