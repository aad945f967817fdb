package httpapi

import (
	"net/http"
	"strconv"

	"parcel-relay-go/internal/auth"
	"parcel-relay-go/internal/lifecycle"
	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/parcel"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Session *lifecycle.Session
	Auth    *auth.Service
}

type registerReq struct {
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type loginReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string `json:"token"`
	Id    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type userResp struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Approved bool   `json:"approved"`
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth(h.Auth))

		r.Get("/parcels", h.listParcels)
		r.Get("/parcels/{id}", h.getParcel)
		r.Get("/notifications", h.listNotifications)
		r.Post("/notifications/{id}/read", h.markRead)
		r.Get("/history", h.listHistory)

		r.With(requireRole(models.RoleSeller, models.RoleAdmin)).Post("/intakes", h.submitIntake)
		r.With(requireRole(models.RoleTransporter)).Post("/parcels/{id}/compete", h.startCompete)
		r.With(requireRole(models.RoleTransporter)).Post("/parcels/{id}/confirm", h.confirmCompete)
		r.With(requireRole(models.RoleTransporter)).Post("/parcels/{id}/scan", h.scan)
		r.With(requireRole(models.RoleBuyer, models.RoleAdmin)).Post("/parcels/{id}/deliver", h.deliver)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(models.RoleAdmin))
			r.Post("/admin/users/{id}/approve", h.approve)
			r.Get("/intakes", h.listIntakes)
			r.Post("/intakes/{id}/merge", h.mergeIntake)
			r.Post("/parcels/{id}/release", h.release)
			r.Post("/parcels/{id}/dispatch", h.dispatch)
			r.Post("/parcels/{id}/settle", h.settle)
			r.Get("/balances/{actorType}", h.balances)
			r.Get("/balances/{actorType}/{actorId}/entries", h.entries)
		})
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Auth.Register(r.Context(), req.Name, req.Phone, req.Password, req.Role)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResp(user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.Auth.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResp{Token: token, Id: user.Id, Name: user.Name, Role: string(user.Role)})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Approve(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"approved": true})
}

func (h *Handler) submitIntake(w http.ResponseWriter, r *http.Request) {
	var intake models.Intake
	if !decodeJSON(w, r, &intake) {
		return
	}

	user := currentUser(r)
	if user.Role == models.RoleSeller {
		intake.SellerId = user.Id
		intake.SellerName = user.Name
	}

	created, err := h.Session.SubmitIntake(intake)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) listIntakes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.ListIntakes())
}

func (h *Handler) mergeIntake(w http.ResponseWriter, r *http.Request) {
	p, err := h.Session.MergeIntake(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) listParcels(w http.ResponseWriter, r *http.Request) {
	view := parcel.View(r.URL.Query().Get("view"))
	if view == "" {
		view = parcel.ViewDepot
		if currentUser(r).Role == models.RoleTransporter {
			view = parcel.ViewTransporter
		}
	}
	if view != parcel.ViewDepot && view != parcel.ViewTransporter {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "view must be depot or transporter"})
		return
	}

	parcels := h.Session.ListParcels(view)
	if parcels == nil {
		parcels = []models.ParcelView{}
	}
	writeJSON(w, http.StatusOK, parcels)
}

func (h *Handler) getParcel(w http.ResponseWriter, r *http.Request) {
	p, err := h.Session.GetParcel(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	h.respondParcel(w)(h.Session.ReleaseFromDepot(chi.URLParam(r, "id")))
}

func (h *Handler) startCompete(w http.ResponseWriter, r *http.Request) {
	session, err := h.Session.StartCompete(chi.URLParam(r, "id"), currentUser(r).Id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) confirmCompete(w http.ResponseWriter, r *http.Request) {
	h.respondParcel(w)(h.Session.ConfirmCompete(chi.URLParam(r, "id"), currentUser(r).Id))
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	h.respondParcel(w)(h.Session.ScanAndStartTransit(chi.URLParam(r, "id"), currentUser(r).Id))
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	h.respondParcel(w)(h.Session.DispatchFromDepot(chi.URLParam(r, "id")))
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	parcelId := chi.URLParam(r, "id")
	user := currentUser(r)
	if user.Role == models.RoleBuyer {
		p, err := h.Session.GetParcel(parcelId)
		if err != nil {
			writeError(w, err)
			return
		}
		if p.BuyerId != "" && p.BuyerId != user.Id {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "parcel belongs to another buyer"})
			return
		}
	}
	h.respondParcel(w)(h.Session.ConfirmDelivery(r.Context(), parcelId))
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	settlement, err := h.Session.SettleParcel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

func (h *Handler) balances(w http.ResponseWriter, r *http.Request) {
	actorType, ok := parseActorType(w, r)
	if !ok {
		return
	}

	balances, err := h.Session.GetBalances(r.Context(), actorType)
	if err != nil {
		writeError(w, err)
		return
	}

	result := make([]models.ActorBalance, 0, len(balances))
	for actorId, balance := range balances {
		result = append(result, models.ActorBalance{ActorId: actorId, Balance: balance})
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) entries(w http.ResponseWriter, r *http.Request) {
	actorType, ok := parseActorType(w, r)
	if !ok {
		return
	}

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	records, err := h.Session.LedgerEntries(r.Context(), actorType, chi.URLParam(r, "actorId"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []models.LedgerRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.ListNotifications())
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.MarkNotificationRead(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.ListHistory())
}

func (h *Handler) respondParcel(w http.ResponseWriter) func(models.Parcel, error) {
	return func(p models.Parcel, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func parseActorType(w http.ResponseWriter, r *http.Request) (models.ActorType, bool) {
	actorType := models.ActorType(chi.URLParam(r, "actorType"))
	if actorType != models.ActorSeller && actorType != models.ActorTransporter {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "actor type must be seller or transporter"})
		return "", false
	}
	return actorType, true
}

func toUserResp(u *models.User) userResp {
	return userResp{Id: u.Id, Name: u.Name, Phone: u.Phone, Role: string(u.Role), Approved: u.Approved}
}
