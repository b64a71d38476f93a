// Package ica separates a multichannel recording into statistically
// independent sources (FastICA) and reconstructs channels with chosen
// sources removed. Fitting is deterministic for a given input and
// seed, which makes cleaning runs reproducible.
package ica

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ErrDecomposition reports that the decomposition could not be fitted:
// more components than channels, too few samples, or degenerate
// (rank-deficient) data.
var ErrDecomposition = errors.New("ica: decomposition failed")

const (
	defaultMaxIterations = 200
	defaultTolerance     = 1e-4

	// eigenvalues below maxEig*rankTolerance are treated as rank loss.
	rankTolerance = 1e-10
)

// Config holds fitting parameters.
type Config struct {
	// NumComponents is the number of sources to extract. Must be
	// between 1 and the channel count.
	NumComponents int

	// Seed fixes the random initialization of the unmixing matrix.
	Seed int64

	// MaxIterations caps the FastICA fixed-point iteration. Slow
	// convergence is not an error; the best estimate so far is kept.
	MaxIterations int

	// Tolerance is the convergence criterion on the unmixing update.
	Tolerance float64
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = defaultTolerance
	}
	return c
}

// Decomposition is a fitted ICA model together with the data it was
// fitted on. Sources and mixing coefficients are fixed at fit time.
type Decomposition struct {
	data    [][]float64 // channels x samples, as given
	mean    []float64   // per-channel mean
	mixing  [][]float64 // channels x components
	sources [][]float64 // components x samples
}

// Fit centers and whitens the data (PCA), then runs symmetric FastICA
// with a tanh contrast function. data is channel-major and is not
// modified; the decomposition keeps its own copy.
func Fit(data [][]float64, cfg Config) (*Decomposition, error) {
	cfg = cfg.withDefaults()

	c := len(data)
	if c == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrDecomposition)
	}
	n := len(data[0])
	for i, ch := range data {
		if len(ch) != n {
			return nil, fmt.Errorf("%w: channel %d has %d samples, expected %d", ErrDecomposition, i, len(ch), n)
		}
	}

	k := cfg.NumComponents
	if k <= 0 || k > c {
		return nil, fmt.Errorf("%w: %d components requested for %d channels", ErrDecomposition, k, c)
	}
	if n < k {
		return nil, fmt.Errorf("%w: %d samples for %d components", ErrDecomposition, n, k)
	}

	// Center.
	kept := make([][]float64, c)
	mean := make([]float64, c)
	centered := make([][]float64, c)
	for i, ch := range data {
		kept[i] = append([]float64(nil), ch...)

		var m float64
		for _, v := range ch {
			m += v
		}
		m /= float64(n)
		mean[i] = m

		row := make([]float64, n)
		for j, v := range ch {
			row[j] = v - m
		}
		centered[i] = row
	}

	// Whiten via the eigen decomposition of the channel covariance.
	cov := covariance(centered)
	eigVals, eigVecs := jacobiEigen(cov)

	order := make([]int, c)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return eigVals[order[a]] > eigVals[order[b]] })

	maxEig := eigVals[order[0]]
	if maxEig <= 0 {
		return nil, fmt.Errorf("%w: data has no variance", ErrDecomposition)
	}
	for _, idx := range order[:k] {
		if eigVals[idx] <= maxEig*rankTolerance {
			return nil, fmt.Errorf("%w: covariance is rank deficient for %d components", ErrDecomposition, k)
		}
	}

	// whitening[j][ch] = eigVecs[ch][order[j]] / sqrt(eigval)
	whitening := make([][]float64, k)
	dewhiten := make([][]float64, c) // channels x components, eigvec * sqrt(eigval)
	for ch := range dewhiten {
		dewhiten[ch] = make([]float64, k)
	}
	for j := 0; j < k; j++ {
		idx := order[j]
		scale := math.Sqrt(eigVals[idx])
		row := make([]float64, c)
		for ch := 0; ch < c; ch++ {
			row[ch] = eigVecs[ch][idx] / scale
			dewhiten[ch][j] = eigVecs[ch][idx] * scale
		}
		whitening[j] = row
	}

	z := matMul(whitening, centered) // k x n

	w, err := fastICA(z, cfg)
	if err != nil {
		return nil, err
	}

	sources := matMul(w, z) // k x n

	// mixing = dewhiten * w^T: channels x components.
	mixing := make([][]float64, c)
	for ch := 0; ch < c; ch++ {
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			var sum float64
			for l := 0; l < k; l++ {
				sum += dewhiten[ch][l] * w[j][l]
			}
			row[j] = sum
		}
		mixing[ch] = row
	}

	return &Decomposition{
		data:    kept,
		mean:    mean,
		mixing:  mixing,
		sources: sources,
	}, nil
}

// NumSources returns the number of extracted sources.
func (d *Decomposition) NumSources() int { return len(d.sources) }

// NumChannels returns the channel count of the fitted data.
func (d *Decomposition) NumChannels() int { return len(d.data) }

// Sources returns a copy of the source waveforms, source-major.
func (d *Decomposition) Sources() [][]float64 {
	out := make([][]float64, len(d.sources))
	for i, s := range d.sources {
		out[i] = append([]float64(nil), s...)
	}
	return out
}

// Reconstruct returns the fitted channels with the excluded sources'
// contributions subtracted. With an empty exclusion set the original
// data is returned unchanged; the channel count and order are always
// preserved. Unknown indices are ignored.
func (d *Decomposition) Reconstruct(exclude []int) [][]float64 {
	out := make([][]float64, len(d.data))
	for ch, row := range d.data {
		out[ch] = append([]float64(nil), row...)
	}

	seen := make(map[int]bool, len(exclude))
	for _, j := range exclude {
		if j < 0 || j >= len(d.sources) || seen[j] {
			continue
		}
		seen[j] = true
		src := d.sources[j]
		for ch := range out {
			gain := d.mixing[ch][j]
			if gain == 0 {
				continue
			}
			buf := out[ch]
			for i, v := range src {
				buf[i] -= gain * v
			}
		}
	}
	return out
}

// fastICA runs the symmetric fixed-point iteration on whitened data z
// (components x samples) and returns the orthonormal unmixing matrix.
func fastICA(z [][]float64, cfg Config) ([][]float64, error) {
	k := len(z)
	n := len(z[0])
	rng := rand.New(rand.NewSource(cfg.Seed))

	w := make([][]float64, k)
	for i := range w {
		row := make([]float64, k)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		w[i] = row
	}
	w, err := symDecorrelate(w)
	if err != nil {
		return nil, err
	}

	g := make([]float64, n)
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		next := make([][]float64, k)
		for i := 0; i < k; i++ {
			// u = w_i . z, g = tanh(u), gd = mean(1 - tanh^2(u))
			var gd float64
			for t := 0; t < n; t++ {
				var u float64
				for j := 0; j < k; j++ {
					u += w[i][j] * z[j][t]
				}
				th := math.Tanh(u)
				g[t] = th
				gd += 1 - th*th
			}
			gd /= float64(n)

			row := make([]float64, k)
			for j := 0; j < k; j++ {
				var dot float64
				zj := z[j]
				for t := 0; t < n; t++ {
					dot += g[t] * zj[t]
				}
				row[j] = dot/float64(n) - gd*w[i][j]
			}
			next[i] = row
		}

		next, err = symDecorrelate(next)
		if err != nil {
			return nil, err
		}

		// Convergence: every updated row stays aligned with its
		// previous direction (up to sign).
		maxDev := 0.0
		for i := 0; i < k; i++ {
			var dot float64
			for j := 0; j < k; j++ {
				dot += next[i][j] * w[i][j]
			}
			dev := math.Abs(math.Abs(dot) - 1)
			if dev > maxDev {
				maxDev = dev
			}
		}
		w = next
		if maxDev < cfg.Tolerance {
			break
		}
	}
	return w, nil
}

// symDecorrelate orthonormalizes w via w <- (w w^T)^(-1/2) w.
func symDecorrelate(w [][]float64) ([][]float64, error) {
	k := len(w)
	wwt := make([][]float64, k)
	for i := range wwt {
		row := make([]float64, k)
		for j := range row {
			var sum float64
			for l := 0; l < k; l++ {
				sum += w[i][l] * w[j][l]
			}
			row[j] = sum
		}
		wwt[i] = row
	}

	vals, vecs := jacobiEigen(wwt)
	for _, v := range vals {
		if v <= 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: unmixing matrix became singular", ErrDecomposition)
		}
	}

	// inv sqrt: E diag(1/sqrt(vals)) E^T
	invSqrt := make([][]float64, k)
	for i := range invSqrt {
		row := make([]float64, k)
		for j := range row {
			var sum float64
			for l := 0; l < k; l++ {
				sum += vecs[i][l] / math.Sqrt(vals[l]) * vecs[j][l]
			}
			row[j] = sum
		}
		invSqrt[i] = row
	}

	return matMul(invSqrt, w), nil
}

// covariance returns X X^T / (n-1) for centered channel-major data.
func covariance(x [][]float64) [][]float64 {
	c := len(x)
	n := len(x[0])
	denom := float64(n - 1)
	if n < 2 {
		denom = 1
	}

	cov := make([][]float64, c)
	for i := range cov {
		row := make([]float64, c)
		for j := 0; j <= i; j++ {
			var sum float64
			xi, xj := x[i], x[j]
			for t := 0; t < n; t++ {
				sum += xi[t] * xj[t]
			}
			row[j] = sum / denom
		}
		cov[i] = row
	}
	// mirror upper triangle
	for i := 0; i < c; i++ {
		for j := i + 1; j < c; j++ {
			cov[i][j] = cov[j][i]
		}
	}
	return cov
}

// matMul returns a*b for row-major matrices (len(a) x len(b[0])).
func matMul(a, b [][]float64) [][]float64 {
	rows := len(a)
	inner := len(b)
	cols := len(b[0])

	out := make([][]float64, rows)
	for i := range out {
		row := make([]float64, cols)
		for l := 0; l < inner; l++ {
			f := a[i][l]
			if f == 0 {
				continue
			}
			bl := b[l]
			for j := 0; j < cols; j++ {
				row[j] += f * bl[j]
			}
		}
		out[i] = row
	}
	return out
}

// jacobiEigen computes eigenvalues and eigenvectors of a symmetric
// matrix with the cyclic Jacobi rotation method. Returns eigenvalues
// and the eigenvector matrix with vectors in columns: vecs[row][col].
func jacobiEigen(m [][]float64) ([]float64, [][]float64) {
	n := len(m)
	a := make([][]float64, n)
	for i := range a {
		a[i] = append([]float64(nil), m[i]...)
	}
	v := identity(n)

	const maxSweeps = 100
	for sweep := 0; sweep < maxSweeps; sweep++ {
		off := 0.0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				off += a[i][j] * a[i][j]
			}
		}
		if off < 1e-22 {
			break
		}

		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if a[p][q] == 0 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				cs := 1 / math.Sqrt(t*t+1)
				sn := t * cs

				for i := 0; i < n; i++ {
					aip := a[i][p]
					aiq := a[i][q]
					a[i][p] = cs*aip - sn*aiq
					a[i][q] = sn*aip + cs*aiq
				}
				for i := 0; i < n; i++ {
					api := a[p][i]
					aqi := a[q][i]
					a[p][i] = cs*api - sn*aqi
					a[q][i] = sn*api + cs*aqi
				}
				for i := 0; i < n; i++ {
					vip := v[i][p]
					viq := v[i][q]
					v[i][p] = cs*vip - sn*viq
					v[i][q] = sn*vip + cs*viq
				}
			}
		}
	}

	vals := make([]float64, n)
	for i := range vals {
		vals[i] = a[i][i]
	}
	return vals, v
}

func identity(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, n)
		row[i] = 1
		out[i] = row
	}
	return out
}
