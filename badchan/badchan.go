// Package badchan flags malfunctioning sensors with a local outlier
// factor over pairwise channel similarity, and rebuilds flagged
// channels from the remaining good ones so later decomposition never
// sees a broken sensor.
package badchan

import (
	"fmt"
	"math"
	"sort"
)

const (
	defaultNeighbors = 5
	defaultThreshold = 1.5

	// reachability floor: identical channels have zero distance and
	// would otherwise produce an infinite local density.
	minReachability = 1e-12
)

// Config holds detection parameters.
type Config struct {
	// Neighbors is the LOF neighborhood size. It is clamped to the
	// channel population; defaults to 5.
	Neighbors int

	// Threshold is the LOF score above which a channel is flagged.
	// Defaults to 1.5.
	Threshold float64
}

func (c Config) withDefaults() Config {
	if c.Neighbors <= 0 {
		c.Neighbors = defaultNeighbors
	}
	if c.Threshold <= 0 {
		c.Threshold = defaultThreshold
	}
	return c
}

// Detect computes a local outlier factor for every channel over the
// correlation distance 1 - |r| and returns the indices whose score
// exceeds the threshold, along with all per-channel scores. A healthy
// montage is a valid outcome: the index slice is empty, never an error.
func Detect(data [][]float64, cfg Config) ([]int, []float64, error) {
	cfg = cfg.withDefaults()

	n := len(data)
	if n < 3 {
		return nil, nil, fmt.Errorf("badchan: need at least 3 channels, got %d", n)
	}

	// Clamp the neighborhood below the population size: with k = n-1
	// every channel would be in every neighborhood and an outlier can
	// no longer have a sparser neighborhood than its peers.
	k := cfg.Neighbors
	if k > n-2 {
		k = n - 2
	}

	dist := distanceMatrix(data)

	// k-nearest neighbors and k-distance per channel.
	neighbors := make([][]int, n)
	kdist := make([]float64, n)
	for i := 0; i < n; i++ {
		order := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				order = append(order, j)
			}
		}
		sort.Slice(order, func(a, b int) bool { return dist[i][order[a]] < dist[i][order[b]] })
		neighbors[i] = order[:k]
		kdist[i] = dist[i][order[k-1]]
	}

	// Local reachability density.
	lrd := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for _, j := range neighbors[i] {
			sum += math.Max(kdist[j], dist[i][j])
		}
		if sum < minReachability {
			sum = minReachability
		}
		lrd[i] = float64(k) / sum
	}

	// LOF: mean neighbor density over own density.
	scores := make([]float64, n)
	var flagged []int
	for i := 0; i < n; i++ {
		var sum float64
		for _, j := range neighbors[i] {
			sum += lrd[j]
		}
		scores[i] = sum / (float64(k) * lrd[i])
		if scores[i] > cfg.Threshold {
			flagged = append(flagged, i)
		}
	}

	return flagged, scores, nil
}

// Interpolate replaces each bad channel, in-place, with the mean of
// the good channels at every sample. Bad indices outside the channel
// range are ignored; if no good channel remains the data is left
// untouched.
func Interpolate(data [][]float64, bad []int) {
	if len(data) == 0 || len(bad) == 0 {
		return
	}

	isBad := make(map[int]bool, len(bad))
	for _, i := range bad {
		if i >= 0 && i < len(data) {
			isBad[i] = true
		}
	}
	good := 0
	for i := range data {
		if !isBad[i] {
			good++
		}
	}
	if good == 0 || len(isBad) == 0 {
		return
	}

	n := len(data[0])
	meanAt := make([]float64, n)
	for i, ch := range data {
		if isBad[i] {
			continue
		}
		for t, v := range ch {
			meanAt[t] += v
		}
	}
	for t := range meanAt {
		meanAt[t] /= float64(good)
	}

	for i := range data {
		if isBad[i] {
			copy(data[i], meanAt)
		}
	}
}

// distanceMatrix returns the symmetric correlation distance 1 - |r|
// between every channel pair. Uncorrelated or flat channels sit at
// distance 1.
func distanceMatrix(data [][]float64) [][]float64 {
	n := len(data)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - math.Abs(pearson(data[i], data[j]))
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}

	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	ma /= float64(n)
	mb /= float64(n)

	var num, va, vb float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		num += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return num / math.Sqrt(va*vb)
}
