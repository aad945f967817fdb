package parcel

import (
	"parcel-relay-go/internal/models"
)

var validNext = map[models.ParcelStatus]map[models.ParcelStatus]bool{
	models.StatusAtDepot:   {models.StatusReady: true},
	models.StatusReady:     {models.StatusClaimed: true},
	models.StatusClaimed:   {models.StatusInTransit: true},
	models.StatusInTransit: {models.StatusDelivered: true},
	models.StatusDelivered: {},
}

func CanTransition(from, to models.ParcelStatus) bool {
	return validNext[from][to]
}

// Transition moves p to the given status or returns a *models.TransitionError.
func Transition(p *models.Parcel, to models.ParcelStatus) error {
	if !CanTransition(p.Status, to) {
		return &models.TransitionError{ParcelId: p.Id, From: p.Status, To: to}
	}
	p.Status = to
	return nil
}

// View selects which vocabulary a parcel status is displayed in.
type View string

const (
	ViewDepot       View = "depot"
	ViewTransporter View = "transporter"
)

// Project returns the display status of s in the given view. The second result
// is false when the parcel is not visible in that view at all.
func Project(view View, s models.ParcelStatus) (string, bool) {
	switch s {
	case models.StatusClaimed:
		return "claimed", true
	case models.StatusInTransit:
		return "inTransit", true
	case models.StatusDelivered:
		return "delivered", true
	}

	if view == ViewDepot {
		if s == models.StatusAtDepot || s == models.StatusReady {
			return "atDepot", true
		}
		return "", false
	}

	// transporters never see parcels the depot has not released
	if s == models.StatusReady {
		return "ready", true
	}
	return "", false
}
