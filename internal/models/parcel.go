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

// ParcelStatus is the canonical lifecycle state of a parcel
type ParcelStatus string

const (
	StatusAtDepot   ParcelStatus = "AT_DEPOT"
	StatusReady     ParcelStatus = "READY"
	StatusClaimed   ParcelStatus = "CLAIMED"
	StatusInTransit ParcelStatus = "IN_TRANSIT"
	StatusDelivered ParcelStatus = "DELIVERED"
)

// CompetitorId is the claimant recorded when a simulated competitor wins a claim window.
const CompetitorId = "other"

// Intake is a seller drop-off request waiting to be merged into a parcel
type Intake struct {
	Id             string    `json:"id"`
	Title          string    `json:"title"`
	SellerId       string    `json:"seller_id"`
	SellerName     string    `json:"seller_name"`
	BuyerId        string    `json:"buyer_id"`
	BuyerName      string    `json:"buyer_name"`
	BuyerPhone     string    `json:"buyer_phone"`
	BuyerAddress   string    `json:"buyer_address"`
	BuyerLatitude  float64   `json:"buyer_latitude"`
	BuyerLongitude float64   `json:"buyer_longitude"`
	TransportType  string    `json:"transport_type"`
	WeightKg       float64   `json:"weight_kg"`
	DepotId        string    `json:"depot_id"`
	OriginDistrict string    `json:"origin_district"`
	CreatedAt      time.Time `json:"created_at"`
}

// Transaction is the escrowed payment embedded in every parcel
type Transaction struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TransportFee    decimal.Decimal `json:"transport_fee"`
	SellerAmount    decimal.Decimal `json:"seller_amount"`
	TransporterPaid bool            `json:"transporter_paid"`
	SellerPaid      bool            `json:"seller_paid"`
	Held            bool            `json:"held"`
}

// Parcel is a trackable shipment created from a merged intake
type Parcel struct {
	Id             string       `json:"id"`
	IntakeId       string       `json:"intake_id"`
	Title          string       `json:"title"`
	SellerId       string       `json:"seller_id"`
	SellerName     string       `json:"seller_name"`
	BuyerId        string       `json:"buyer_id"`
	BuyerName      string       `json:"buyer_name"`
	BuyerPhone     string       `json:"buyer_phone"`
	BuyerAddress   string       `json:"buyer_address"`
	BuyerLatitude  float64      `json:"buyer_latitude"`
	BuyerLongitude float64      `json:"buyer_longitude"`
	TransportType  string       `json:"transport_type"`
	WeightKg       float64      `json:"weight_kg"`
	DepotId        string       `json:"depot_id"`
	OriginDistrict string       `json:"origin_district"`
	DistanceKm     int          `json:"distance_km"`
	Status         ParcelStatus `json:"status"`
	ClaimedBy      string       `json:"claimed_by,omitempty"`
	ClaimedByName  string       `json:"claimed_by_name,omitempty"`
	Progress       int          `json:"progress"`
	Transaction    Transaction  `json:"transaction"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	DeliveredAt    *time.Time   `json:"delivered_at,omitempty"`
}

// Quote is the priced outcome of merging an intake
type Quote struct {
	DistanceKm   int
	RatePerKm    decimal.Decimal
	TransportFee decimal.Decimal
	TotalAmount  decimal.Decimal
	SellerAmount decimal.Decimal
}

// CompeteSession describes an open claim window held by one transporter
type CompeteSession struct {
	ParcelId  string        `json:"parcel_id"`
	ActorId   string        `json:"actor_id"`
	Countdown time.Duration `json:"countdown"`
	Deadline  time.Time     `json:"deadline"`
}
