package parcel

import (
	"testing"

	"parcel-relay-go/internal/models"

	"github.com/shopspring/decimal"
)

func TestProject(t *testing.T) {
	tests := []struct {
		view    View
		status  models.ParcelStatus
		want    string
		visible bool
	}{
		{ViewDepot, models.StatusAtDepot, "atDepot", true},
		{ViewDepot, models.StatusReady, "atDepot", true},
		{ViewDepot, models.StatusClaimed, "claimed", true},
		{ViewDepot, models.StatusInTransit, "inTransit", true},
		{ViewDepot, models.StatusDelivered, "delivered", true},
		{ViewTransporter, models.StatusAtDepot, "", false},
		{ViewTransporter, models.StatusReady, "ready", true},
		{ViewTransporter, models.StatusClaimed, "claimed", true},
		{ViewTransporter, models.StatusInTransit, "inTransit", true},
		{ViewTransporter, models.StatusDelivered, "delivered", true},
	}
	for _, tt := range tests {
		got, visible := Project(tt.view, tt.status)
		if got != tt.want || visible != tt.visible {
			t.Errorf("Project(%s, %s) = (%q, %v), want (%q, %v)", tt.view, tt.status, got, visible, tt.want, tt.visible)
		}
	}
}

func TestRatePerKm(t *testing.T) {
	pricer := NewPricer(testNetwork(), models.DefaultSimulationConfig(), &scriptedRand{})

	tests := []struct {
		transport string
		want      int64
	}{
		{"bike", 1000},
		{"Motor", 1000},
		{"truck", 300},
		{"car", 500},
		{"", 500},
		{"boat", 500},
	}
	for _, tt := range tests {
		if got := pricer.RatePerKm(tt.transport); !got.Equal(decimal.NewFromInt(tt.want)) {
			t.Errorf("RatePerKm(%q) = %s, want %d", tt.transport, got, tt.want)
		}
	}
}

func TestDistanceKm_FloorOfOne(t *testing.T) {
	cfg := models.DefaultSimulationConfig()
	cfg.DistanceJitterMax = 0
	pricer := NewPricer(testNetwork(), cfg, &scriptedRand{})

	depot := testNetwork().Depots[0]
	if got := pricer.DistanceKm(depot, depot.Latitude, depot.Longitude); got != 1 {
		t.Errorf("Expected floor distance 1, got %d", got)
	}
}

func TestPricer_DefaultsWhenNetworkIncomplete(t *testing.T) {
	network := models.NetworkConfig{Depots: testNetwork().Depots}
	cfg := models.DefaultSimulationConfig()
	cfg.DistanceJitterMax = 0
	pricer := NewPricer(network, cfg, &scriptedRand{})

	depot := network.Depots[0]
	// one degree of latitude at the default 111 km per degree
	if got := pricer.DistanceKm(depot, depot.Latitude+1, depot.Longitude); got != 111 {
		t.Errorf("Expected 111 km, got %d", got)
	}
	if got := pricer.RatePerKm("bike"); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected default rate 500, got %s", got)
	}
}

func TestFallbackTransporter(t *testing.T) {
	network := testNetwork()
	pricer := NewPricer(network, models.DefaultSimulationConfig(), &scriptedRand{})
	if _, ok := pricer.FallbackTransporter(); ok {
		t.Errorf("Expected no fallback with an empty roster")
	}

	network.FallbackRoster = []models.Transporter{{Id: "t-1", Name: "Agus"}, {Id: "t-2", Name: "Dewi"}}
	pricer = NewPricer(network, models.DefaultSimulationConfig(), &scriptedRand{ints: []int{1}})
	got, ok := pricer.FallbackTransporter()
	if !ok || got.Id != "t-2" {
		t.Errorf("Expected t-2, got %+v (ok=%v)", got, ok)
	}
}
