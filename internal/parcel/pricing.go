package parcel

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"parcel-relay-go/internal/models"

	"github.com/shopspring/decimal"
)

// RandomSource is the subset of *rand.Rand the simulation draws from.
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

// NewRandomSource returns a PCG-backed source. A zero seed picks one from the clock.
// The returned source is not safe for concurrent use; the registry only draws
// from it while holding its lock.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

const defaultKmPerDegree = 111.0

// Pricer computes distance-based transport fees and synthetic order totals.
type Pricer struct {
	network   models.NetworkConfig
	rand      RandomSource
	jitterMax int
	goodsMin  int64
	goodsMax  int64
}

func NewPricer(network models.NetworkConfig, cfg models.SimulationConfig, rnd RandomSource) *Pricer {
	if network.KmPerDegree <= 0 {
		network.KmPerDegree = defaultKmPerDegree
	}
	if network.DefaultRate <= 0 {
		network.DefaultRate = 500
	}
	return &Pricer{
		network:   network,
		rand:      rnd,
		jitterMax: cfg.DistanceJitterMax,
		goodsMin:  cfg.GoodsValueMin,
		goodsMax:  cfg.GoodsValueMax,
	}
}

// Depot returns the depot with the given id, or the first configured depot when id is empty.
func (p *Pricer) Depot(id string) (models.Depot, error) {
	if len(p.network.Depots) == 0 {
		return models.Depot{}, fmt.Errorf("%w: no depots configured", models.ErrNotFound)
	}
	if id == "" {
		return p.network.Depots[0], nil
	}
	for _, d := range p.network.Depots {
		if d.Id == id {
			return d, nil
		}
	}
	return models.Depot{}, fmt.Errorf("%w: depot %s", models.ErrNotFound, id)
}

// RatePerKm returns the per-km rate for a transport type, falling back to the default rate.
func (p *Pricer) RatePerKm(transportType string) decimal.Decimal {
	if rate, ok := p.network.Rates[strings.ToLower(strings.TrimSpace(transportType))]; ok {
		return decimal.NewFromInt(rate)
	}
	return decimal.NewFromInt(p.network.DefaultRate)
}

// DistanceKm approximates the depot-to-buyer distance from coordinate deltas.
// It is a placeholder, not a geodesic: (|dLat| + |dLng|) * kmPerDegree, rounded,
// plus jitter, floored at 1.
func (p *Pricer) DistanceKm(depot models.Depot, lat, lng float64) int {
	raw := (math.Abs(lat-depot.Latitude) + math.Abs(lng-depot.Longitude)) * p.network.KmPerDegree
	distance := int(math.Round(raw))
	if p.jitterMax > 0 {
		distance += p.rand.IntN(p.jitterMax + 1)
	}
	if distance < 1 {
		distance = 1
	}
	return distance
}

// Quote prices an intake. TransportFee + SellerAmount always equals TotalAmount.
func (p *Pricer) Quote(intake models.Intake) (models.Quote, error) {
	depot, err := p.Depot(intake.DepotId)
	if err != nil {
		return models.Quote{}, err
	}

	distance := p.DistanceKm(depot, intake.BuyerLatitude, intake.BuyerLongitude)
	rate := p.RatePerKm(intake.TransportType)
	fee := rate.Mul(decimal.NewFromInt(int64(distance)))

	goods := decimal.NewFromInt(p.goodsValue())
	total := goods.Add(fee)

	return models.Quote{
		DistanceKm:   distance,
		RatePerKm:    rate,
		TransportFee: fee,
		TotalAmount:  total,
		SellerAmount: total.Sub(fee),
	}, nil
}

// goodsValue draws a synthetic goods price in [goodsMin, goodsMax], in steps of 100.
func (p *Pricer) goodsValue() int64 {
	if p.goodsMax <= p.goodsMin {
		return p.goodsMin
	}
	steps := (p.goodsMax - p.goodsMin) / 100
	return p.goodsMin + int64(p.rand.IntN(int(steps)+1))*100
}

// FallbackTransporter picks a random roster entry for dispatching an unclaimed parcel.
func (p *Pricer) FallbackTransporter() (models.Transporter, bool) {
	if len(p.network.FallbackRoster) == 0 {
		return models.Transporter{}, false
	}
	return p.network.FallbackRoster[p.rand.IntN(len(p.network.FallbackRoster))], true
}
