/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"parcel-relay-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	simulation, err := loadSimulation()
	if err != nil {
		return nil, err
	}

	server, err := loadServer()
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "parcels.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Simulation: simulation,
		Server:     server,
	}, nil
}

func loadSimulation() (models.SimulationConfig, error) {
	sim := models.DefaultSimulationConfig()

	var err error
	if sim.CompeteWindow, err = getEnvDuration("COMPETE_WINDOW", sim.CompeteWindow); err != nil {
		return sim, err
	}
	if sim.TickMin, err = getEnvDuration("TRANSIT_TICK_MIN", sim.TickMin); err != nil {
		return sim, err
	}
	if sim.TickMax, err = getEnvDuration("TRANSIT_TICK_MAX", sim.TickMax); err != nil {
		return sim, err
	}

	sim.NetworkFile = getEnvString("NETWORK_FILE", sim.NetworkFile)
	sim.Seed = uint64(getEnvInt("SIMULATION_SEED", 0))
	sim.HoldOnIntake = getEnvBool("HOLD_ON_INTAKE", sim.HoldOnIntake)
	sim.CompetitorWinProbability = getEnvFloat("COMPETITOR_WIN_PROBABILITY", sim.CompetitorWinProbability)
	sim.StepMin = getEnvInt("TRANSIT_STEP_MIN", sim.StepMin)
	sim.StepMax = getEnvInt("TRANSIT_STEP_MAX", sim.StepMax)
	sim.TransporterProgressCap = getEnvInt("TRANSPORTER_PROGRESS_CAP", sim.TransporterProgressCap)
	sim.DepotProgressCap = getEnvInt("DEPOT_PROGRESS_CAP", sim.DepotProgressCap)
	sim.DistanceJitterMax = getEnvInt("DISTANCE_JITTER_MAX", sim.DistanceJitterMax)
	sim.GoodsValueMin = int64(getEnvInt("GOODS_VALUE_MIN", int(sim.GoodsValueMin)))
	sim.GoodsValueMax = int64(getEnvInt("GOODS_VALUE_MAX", int(sim.GoodsValueMax)))

	if sim.CompetitorWinProbability < 0 || sim.CompetitorWinProbability > 1 {
		return sim, fmt.Errorf("COMPETITOR_WIN_PROBABILITY must be within [0,1], got %v", sim.CompetitorWinProbability)
	}
	if sim.TickMax < sim.TickMin {
		return sim, fmt.Errorf("TRANSIT_TICK_MAX (%v) is below TRANSIT_TICK_MIN (%v)", sim.TickMax, sim.TickMin)
	}
	return sim, nil
}

func loadServer() (models.ServerConfig, error) {
	server := models.ServerConfig{
		Addr: getEnvString("HTTP_ADDR", ":8080"),
	}

	var err error
	if server.ReadTimeout, err = getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return server, err
	}
	if server.WriteTimeout, err = getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second); err != nil {
		return server, err
	}
	if server.ShutdownTimeout, err = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return server, err
	}
	if server.RequestTimeout, err = getEnvDuration("HTTP_REQUEST_TIMEOUT", 5*time.Second); err != nil {
		return server, err
	}
	return server, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
