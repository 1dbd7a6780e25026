package severity

import (
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

const (
	inputDim  = 9
	hidden1   = 16
	hidden2   = 8
	samples   = 500
	epochs    = 20
	learnRate = 0.01
)

var trainedTypes = []models.HazardType{
	models.HazardTypeEarthquake,
	models.HazardTypeFlood,
	models.HazardTypeStorm,
}

type layer struct {
	w [][]float64 // [out][in]
	b []float64
}

func newLayer(rng *rand.Rand, in, out int) layer {
	// He initialisation for ReLU layers.
	scale := math.Sqrt(2 / float64(in))
	l := layer{w: make([][]float64, out), b: make([]float64, out)}
	for i := range l.w {
		l.w[i] = make([]float64, in)
		for j := range l.w[i] {
			l.w[i][j] = rng.NormFloat64() * scale
		}
	}
	return l
}

func (l layer) forward(x []float64, relu bool) []float64 {
	out := make([]float64, len(l.w))
	for i, row := range l.w {
		sum := l.b[i]
		for j, w := range row {
			sum += w * x[j]
		}
		if relu && sum < 0 {
			sum = 0
		}
		out[i] = sum
	}
	return out
}

// Network is a small feed-forward regressor (16 and 8 unit ReLU layers,
// linear output) trained on samples labelled by the closed-form score.
// Score returns ErrModelNotInitialized until Train has completed.
type Network struct {
	rng     *rand.Rand
	l1      layer
	l2      layer
	out     layer
	trained atomic.Bool
}

func NewNetwork(seed int64) *Network {
	rng := rand.New(rand.NewSource(seed))
	return &Network{
		rng: rng,
		l1:  newLayer(rng, inputDim, hidden1),
		l2:  newLayer(rng, hidden1, hidden2),
		out: newLayer(rng, hidden2, 1),
	}
}

// encode builds the network input: scaled distance, a one-hot of the three
// trained hazard types, one magnitude slot per type, elevation and hour.
func encode(f Features) []float64 {
	x := make([]float64, inputDim)
	x[0] = f.DistanceKm / 20000
	switch f.Type {
	case models.HazardTypeEarthquake:
		x[1] = 1
		x[4] = f.MagnitudeLike / 8
	case models.HazardTypeFlood:
		x[2] = 1
		x[5] = f.MagnitudeLike / 5
	case models.HazardTypeStorm:
		x[3] = 1
		x[6] = f.MagnitudeLike / 50
	}
	x[7] = f.ElevationM / 3000
	x[8] = float64(f.HourOfDay) / 23
	return x
}

func (n *Network) synthetic() Features {
	t := trainedTypes[n.rng.Intn(len(trainedTypes))]
	f := Features{
		DistanceKm: n.rng.Float64() * 20000,
		Type:       t,
		ElevationM: n.rng.Float64() * 3000,
		HourOfDay:  n.rng.Intn(24),
	}
	f.MagnitudeLike = n.rng.Float64() * maxScale(t)
	return f
}

// Train fits the network with per-sample SGD on mean squared error. It must
// be called once, before the scorer is shared.
func (n *Network) Train() {
	xs := make([][]float64, samples)
	ys := make([]float64, samples)
	for i := range xs {
		f := n.synthetic()
		xs[i] = encode(f)
		ys[i] = raw(f)
	}

	order := make([]int, samples)
	for i := range order {
		order[i] = i
	}
	for e := 0; e < epochs; e++ {
		n.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			n.step(xs[i], ys[i])
		}
	}
	n.trained.Store(true)
}

func (n *Network) step(x []float64, y float64) {
	h1 := n.l1.forward(x, true)
	h2 := n.l2.forward(h1, true)
	pred := n.out.forward(h2, false)[0]

	// d(MSE)/d(pred)
	dOut := 2 * (pred - y)

	dH2 := make([]float64, hidden2)
	for j := range h2 {
		dH2[j] = dOut * n.out.w[0][j]
		n.out.w[0][j] -= learnRate * dOut * h2[j]
		if h2[j] <= 0 {
			dH2[j] = 0
		}
	}
	n.out.b[0] -= learnRate * dOut

	dH1 := make([]float64, hidden1)
	for i := range n.l2.w {
		for j := range n.l2.w[i] {
			dH1[j] += dH2[i] * n.l2.w[i][j]
			n.l2.w[i][j] -= learnRate * dH2[i] * h1[j]
		}
		n.l2.b[i] -= learnRate * dH2[i]
	}
	for j := range dH1 {
		if h1[j] <= 0 {
			dH1[j] = 0
		}
	}

	for i := range n.l1.w {
		for j := range n.l1.w[i] {
			n.l1.w[i][j] -= learnRate * dH1[i] * x[j]
		}
		n.l1.b[i] -= learnRate * dH1[i]
	}
}

func (n *Network) Score(f Features) (int, error) {
	if !n.trained.Load() {
		return 0, ErrModelNotInitialized
	}
	h1 := n.l1.forward(encode(f), true)
	h2 := n.l2.forward(h1, true)
	return toScore(n.out.forward(h2, false)[0]), nil
}
