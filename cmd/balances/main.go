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
package main

import (
	"context"
	"flag"
	"fmt"

	"parcel-relay-go/internal/common"
	"parcel-relay-go/internal/config"
	"parcel-relay-go/internal/database"
	"parcel-relay-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalActors      int
	reconciled       int
	mismatchedActors []string
}

func formatEntryId(entryId string) string {
	if entryId == "" {
		return "none"
	}
	if len(entryId) > 8 {
		return entryId[:8] + "..."
	}
	return entryId
}

func actorLabel(actorId string, names map[string]string) string {
	if name, ok := names[actorId]; ok {
		return fmt.Sprintf("%s (%s)", name, actorId)
	}
	return actorId
}

func printEntries(entries []models.LedgerEntry) {
	for i, entry := range entries {
		isLast := i == len(entries)-1
		fmt.Printf("%s %-15s %12s  parcel %s (%s)\n",
			common.BoxPrefix(isLast),
			entry.EntryType,
			common.FormatAmount(entry.Amount),
			entry.ParcelId,
			entry.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func reportActorType(ctx context.Context, dbService *database.Service, actorType models.ActorType, names map[string]string, entryLimit int, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	balances, err := dbService.GetBalances(ctx, actorType)
	if err != nil {
		logger.Error("Failed to get balances", zap.String("actor_type", string(actorType)), zap.Error(err))
		return stats
	}

	common.PrintHeader(fmt.Sprintf("%s BALANCES", actorType), common.DefaultWidth)
	if len(balances) == 0 {
		fmt.Println("No balances recorded")
		return stats
	}

	for _, balance := range balances {
		stats.totalActors++

		fmt.Printf("\n┌─ %s\n", actorLabel(balance.ActorId, names))
		fmt.Printf("│  Balance: %s (v%d, last entry: %s, updated: %s)\n",
			common.FormatAmount(balance.Balance),
			balance.Version,
			formatEntryId(balance.LastLedgerEntry),
			balance.UpdatedAt.Format("2006-01-02 15:04:05"))
		common.PrintBoxSeparator(78)

		entries, err := dbService.GetLedgerEntries(ctx, actorType, balance.ActorId, entryLimit, 0)
		if err != nil {
			logger.Error("Failed to get ledger entries", zap.String("actor_id", balance.ActorId), zap.Error(err))
			continue
		}
		printEntries(entries)

		if err := dbService.ReconcileBalance(ctx, actorType, balance.ActorId); err != nil {
			stats.mismatchedActors = append(stats.mismatchedActors, balance.ActorId)
			continue
		}
		stats.reconciled++
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	typeFlag := flag.String("type", "", "Actor type to report: seller or transporter (default: both)")
	limitFlag := flag.Int("entries", 10, "Number of recent ledger entries to show per actor")
	flag.Parse()

	actorTypes := []models.ActorType{models.ActorTransporter, models.ActorSeller}
	if *typeFlag != "" {
		actorType := models.ActorType(*typeFlag)
		if actorType != models.ActorSeller && actorType != models.ActorTransporter {
			logger.Fatal("Invalid actor type", zap.String("type", *typeFlag))
		}
		actorTypes = []models.ActorType{actorType}
	}

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.InitializeUsers(ctx, dbService, "", logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.Id] = u.Name
	}

	var total balanceStats
	for _, actorType := range actorTypes {
		stats := reportActorType(ctx, dbService, actorType, names, *limitFlag, logger)
		total.totalActors += stats.totalActors
		total.reconciled += stats.reconciled
		total.mismatchedActors = append(total.mismatchedActors, stats.mismatchedActors...)
	}

	summary := fmt.Sprintf("SUMMARY: %d actors with balances, %d reconciled, %d mismatched",
		total.totalActors, total.reconciled, len(total.mismatchedActors))
	common.PrintFooter(summary, common.DefaultWidth)

	if len(total.mismatchedActors) > 0 {
		logger.Warn("Balance reconciliation mismatches", zap.Strings("actor_ids", total.mismatchedActors))
	}
	logger.Info("Balance query completed",
		zap.Int("actors", total.totalActors),
		zap.Int("reconciled", total.reconciled))
}
