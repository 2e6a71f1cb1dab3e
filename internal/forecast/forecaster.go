// Package forecast predicts next-week blood demand per group from a
// seasonal daily-demand series using least-squares regression.
package forecast

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"bloodlink/pkg/domain"
)

// trainingSeed fixes the synthetic series so forecasts are reproducible
// across restarts.
const trainingSeed = 42

// trainingDays is one year of daily observations per blood group.
const trainingDays = 365

// Observation is one day of demand for one blood group.
type Observation struct {
	Date   time.Time
	Group  domain.BloodGroup
	Demand float64
}

// Forecaster fits one linear model over calendar features and blood group
// indicators. Training is lazy and happens once.
type Forecaster struct {
	mu      sync.Mutex
	trained bool
	weights []float64
	logger  *slog.Logger

	// observations overrides the synthetic series when set (tests).
	observations []Observation
}

type Option func(*Forecaster)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Forecaster) { f.logger = logger }
}

// WithObservations trains on a supplied series instead of the synthetic one.
func WithObservations(obs []Observation) Option {
	return func(f *Forecaster) { f.observations = obs }
}

func New(opts ...Option) *Forecaster {
	f := &Forecaster{logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PredictNextWeekDemand sums the predicted daily demand over the seven days
// following now, per blood group. Predictions never go negative.
func (f *Forecaster) PredictNextWeekDemand(now time.Time) (map[domain.BloodGroup]int, error) {
	if err := f.ensureTrained(now); err != nil {
		return nil, err
	}

	out := make(map[domain.BloodGroup]int, 8)
	for _, group := range domain.AllBloodGroups() {
		var total float64
		for d := 1; d <= 7; d++ {
			day := now.AddDate(0, 0, d)
			total += f.predict(featuresFor(day, group))
		}
		if total < 0 {
			total = 0
		}
		out[group] = int(total)
	}
	return out, nil
}

func (f *Forecaster) ensureTrained(now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trained {
		return nil
	}

	obs := f.observations
	if obs == nil {
		obs = syntheticSeries(now)
	}
	weights, err := fit(obs)
	if err != nil {
		return fmt.Errorf("fit demand model: %w", err)
	}
	f.weights = weights
	f.trained = true
	f.logger.Info("demand model trained", "observations", len(obs))
	return nil
}

func (f *Forecaster) predict(features []float64) float64 {
	y := f.weights[0]
	for i, x := range features {
		y += f.weights[i+1] * x
	}
	return y
}

// featuresFor encodes a date and group: day of year, month, weekday, and a
// one-hot blood group indicator.
func featuresFor(date time.Time, group domain.BloodGroup) []float64 {
	features := make([]float64, 3+len(domain.AllBloodGroups()))
	features[0] = float64(date.YearDay())
	features[1] = float64(date.Month())
	features[2] = float64(date.Weekday())
	for i, g := range domain.AllBloodGroups() {
		if g == group {
			features[3+i] = 1
		}
	}
	return features
}

// syntheticSeries generates a year of daily demand ending at now. Demand
// rises in the festival and accident-prone months (June through November),
// and the high-prevalence groups O+ and B+ run hotter than the rest.
func syntheticSeries(now time.Time) []Observation {
	rng := rand.New(rand.NewSource(trainingSeed))
	start := now.AddDate(0, 0, -trainingDays)

	var obs []Observation
	for d := 0; d < trainingDays; d++ {
		date := start.AddDate(0, 0, d)
		base := 5 + rng.Float64()*10
		if m := date.Month(); m >= time.June && m <= time.November {
			base += 5 + rng.Float64()*5
		}
		for _, group := range domain.AllBloodGroups() {
			modifier := 1.0
			if group == domain.OPos || group == domain.BPos {
				modifier = 1.5
			}
			demand := base*modifier + rng.NormFloat64()*2
			if demand < 0 {
				demand = 0
			}
			obs = append(obs, Observation{Date: date, Group: group, Demand: demand})
		}
	}
	return obs
}

// fit solves the least-squares normal equations for the feature encoding
// plus an intercept.
func fit(obs []Observation) ([]float64, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations")
	}

	n := len(featuresFor(obs[0].Date, obs[0].Group)) + 1
	xtx := make([][]float64, n)
	for i := range xtx {
		xtx[i] = make([]float64, n)
	}
	xty := make([]float64, n)

	row := make([]float64, n)
	for _, o := range obs {
		row[0] = 1
		copy(row[1:], featuresFor(o.Date, o.Group))
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * o.Demand
		}
	}

	// Ridge damping keeps the system solvable when indicator columns are
	// collinear with the intercept.
	for i := 0; i < n; i++ {
		xtx[i][i] += 1e-6
	}
	weights, err := solve(xtx, xty)
	if err != nil {
		return nil, err
	}
	return weights, nil
}

// solve performs Gaussian elimination with partial pivoting.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(a[r][col]) > abs(a[pivot][col]) {
				pivot = r
			}
		}
		if abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
