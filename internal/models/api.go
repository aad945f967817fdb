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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActorBalance represents one actor's balance in a balance listing
type ActorBalance struct {
	ActorId string          `json:"actor_id"`
	Balance decimal.Decimal `json:"balance"`
}

// LedgerRecord represents a credit in an actor's ledger history
type LedgerRecord struct {
	Id           string          `json:"id"`
	Type         string          `json:"type"` // "transport_fee", "seller_payment"
	ParcelId     string          `json:"parcel_id"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	ProcessedAt  time.Time       `json:"processed_at"`
}

// ParcelView is a parcel projected into the depot or transporter vocabulary
type ParcelView struct {
	Parcel
	DisplayStatus string `json:"display_status"`
}

// ReleaseResult reports what a payment release actually did
type ReleaseResult struct {
	Released   bool            `json:"released"`
	ActorId    string          `json:"actor_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
}
