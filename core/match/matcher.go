package match

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/resqlink/resqlink/core/geo"
	"github.com/resqlink/resqlink/core/helperstatus"
	"github.com/resqlink/resqlink/core/logger"
	"github.com/resqlink/resqlink/core/model"
)

// Candidate is a helper ranked against one alert location.
type Candidate struct {
	Helper     model.HelperProfile
	DistanceKm float64
	BearingDeg float64
	EtaMinutes int
	Score      float64
}

// Matcher finds and ranks helpers near an alert. The lookup is a two-phase
// filter: a cheap bounding-box test against the fleet store, then an exact
// haversine distance check.
type Matcher struct {
	fleet          helperstatus.Store
	logger         logger.Logger
	DistanceWeight float64
	RatingWeight   float64
	SuccessWeight  float64
	SpeedKmh       float64
}

// NewMatcher returns a matcher with default weights.
func NewMatcher(fleet helperstatus.Store, log logger.Logger) *Matcher {
	return &Matcher{
		fleet:          fleet,
		logger:         log,
		DistanceWeight: 0.6,
		RatingWeight:   0.25,
		SuccessWeight:  0.15,
		SpeedKmh:       geo.DefaultSpeedKmh,
	}
}

// Fleet returns the helper store the matcher ranks against.
func (m *Matcher) Fleet() helperstatus.Store {
	return m.fleet
}

// FindNearby returns the helpers within radiusKm of center, best first.
// A helper is excluded when it is unreachable or when the alert lies outside
// the helper's own response radius. This lookup is best-effort display data:
// actual helper acceptance arrives through the status stream, never from here.
func (m *Matcher) FindNearby(ctx context.Context, center model.Location, radiusKm float64) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	avail := model.HelperAvailable
	helpers := m.fleet.List(helperstatus.Filter{Status: &avail})

	box := geo.BoxAround(center, radiusKm)
	var cands []Candidate
	for _, h := range helpers {
		if !h.Reachable() || !box.Contains(*h.Location) {
			continue
		}
		dist := geo.DistanceKm(center, *h.Location)
		if dist > radiusKm {
			continue
		}
		if h.RadiusKm > 0 && dist > h.RadiusKm {
			continue
		}
		cands = append(cands, Candidate{
			Helper:     h,
			DistanceKm: dist,
			BearingDeg: geo.BearingDegrees(center, *h.Location),
			EtaMinutes: geo.EstimateETAMinutes(dist*1000, m.SpeedKmh),
		})
	}
	m.score(cands)
	sort.Slice(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	if m.logger != nil {
		m.logger.Infof("matched %d of %d available helpers within %.1f km", len(cands), len(helpers), radiusKm)
	}
	return cands, nil
}

// score assigns a weighted composite of standardised distance, rating and
// historical success rate. Nearer is better, so the distance term is negated.
func (m *Matcher) score(cands []Candidate) {
	if len(cands) == 0 {
		return
	}
	dists := make([]float64, len(cands))
	ratings := make([]float64, len(cands))
	for i, c := range cands {
		dists[i] = c.DistanceKm
		ratings[i] = c.Helper.Rating
	}
	dMean, dStd := stat.MeanStdDev(dists, nil)
	rMean, rStd := stat.MeanStdDev(ratings, nil)
	for i := range cands {
		cands[i].Score = -m.DistanceWeight*standardize(dists[i], dMean, dStd) +
			m.RatingWeight*standardize(ratings[i], rMean, rStd) +
			m.SuccessWeight*cands[i].Helper.SuccessRate()
	}
}

// standardize returns the z-score, or zero when the sample has no spread.
func standardize(v, mean, std float64) float64 {
	if std == 0 || std != std {
		return 0
	}
	return (v - mean) / std
}
