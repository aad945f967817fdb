package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Simulation SimulationConfig
	Server     ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// SimulationConfig holds the tunables of the parcel lifecycle simulation
type SimulationConfig struct {
	NetworkFile string
	Seed        uint64 // 0 picks a time-based seed

	HoldOnIntake bool

	CompeteWindow            time.Duration
	CompetitorWinProbability float64

	TickMin                time.Duration
	TickMax                time.Duration
	StepMin                int
	StepMax                int
	TransporterProgressCap int
	DepotProgressCap       int

	DistanceJitterMax int
	GoodsValueMin     int64
	GoodsValueMax     int64
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// DefaultSimulationConfig returns the tunables used when nothing is overridden.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		NetworkFile:              "network.yaml",
		CompeteWindow:            6 * time.Second,
		CompetitorWinProbability: 0.45,
		TickMin:                  1000 * time.Millisecond,
		TickMax:                  1200 * time.Millisecond,
		StepMin:                  5,
		StepMax:                  18,
		TransporterProgressCap:   90,
		DepotProgressCap:         98,
		DistanceJitterMax:        2,
		GoodsValueMin:            5000,
		GoodsValueMax:            50000,
	}
}
