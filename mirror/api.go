package mirror

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

// API serves the read-only mirror endpoints.
type API struct {
	mirror *Mirror
	router http.Handler
}

// NewAPI builds the chi router over the mirror database.
func NewAPI(m *Mirror) *API {
	api := &API{mirror: m}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/shares/{id}", api.getShare)
		v1.Get("/holders/{addr}", api.getHolder)
		v1.Get("/yield/summary", api.getYieldSummary)
	})
	api.router = r
	return api
}

// Handler exposes the configured HTTP router.
func (a *API) Handler() http.Handler {
	return a.router
}

type yieldSummaryResponse struct {
	TotalCredited string `json:"totalCredited"`
	CreditCount   int64  `json:"creditCount"`
	HolderCount   int64  `json:"holderCount"`
}

func (a *API) getShare(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid share id", http.StatusBadRequest)
		return
	}
	var record ShareRecord
	if err := a.mirror.db.First(&record, "share_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "share not found", http.StatusNotFound)
			return
		}
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, record)
}

func (a *API) getHolder(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	var holder HolderTotal
	if err := a.mirror.db.First(&holder, "owner = ?", addr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "holder not found", http.StatusNotFound)
			return
		}
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, holder)
}

func (a *API) getYieldSummary(w http.ResponseWriter, _ *http.Request) {
	var credits []YieldCredit
	if err := a.mirror.db.Find(&credits).Error; err != nil {
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	total := big.NewInt(0)
	for _, credit := range credits {
		amount, ok := new(big.Int).SetString(credit.Amount, 10)
		if !ok {
			http.Error(w, "corrupt credit amount", http.StatusInternalServerError)
			return
		}
		total.Add(total, amount)
	}
	var holders int64
	if err := a.mirror.db.Model(&HolderTotal{}).Count(&holders).Error; err != nil {
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, yieldSummaryResponse{
		TotalCredited: total.String(),
		CreditCount:   int64(len(credits)),
		HolderCount:   holders,
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
