package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotificationType tags a notification with the lifecycle event that produced it
type NotificationType string

const (
	NotifyIntakeMerged    NotificationType = "intake_merged"
	NotifyReleased        NotificationType = "released"
	NotifyCompeteOpened   NotificationType = "compete_opened"
	NotifyClaimed         NotificationType = "claimed"
	NotifyClaimLost       NotificationType = "claim_lost"
	NotifyClaimReopened   NotificationType = "claim_reopened"
	NotifyInTransit       NotificationType = "in_transit"
	NotifyAwaitingHandoff NotificationType = "awaiting_handoff"
	NotifyDelivered       NotificationType = "delivered"
	NotifyTransporterPaid NotificationType = "transporter_paid"
	NotifySellerPaid      NotificationType = "seller_paid"
)

// Notification is a human readable event derived from a state transition
type Notification struct {
	Id        string           `json:"id"`
	Text      string           `json:"text"`
	Type      NotificationType `json:"type,omitempty"`
	ParcelId  string           `json:"parcel_id,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// HistoryKind names a terminal event recorded in the history archive
type HistoryKind string

const (
	HistoryDelivered       HistoryKind = "delivered"
	HistoryTransporterPaid HistoryKind = "transporter_paid"
	HistorySellerPaid      HistoryKind = "seller_paid"
)

// HistoryEntry is an immutable snapshot of a parcel at a terminal event
type HistoryEntry struct {
	Id         string          `json:"id"`
	Kind       HistoryKind     `json:"kind"`
	ParcelId   string          `json:"parcel_id"`
	ActorId    string          `json:"actor_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Snapshot   Parcel          `json:"snapshot"`
	RecordedAt time.Time       `json:"recorded_at"`
}
