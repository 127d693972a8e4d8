package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/models"
)

// ===== Ads =====

func (s *Server) ListAds(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.Catalog.GetAllAds())
}

func (s *Server) CreateAd(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	if !s.allowAdmin(w, r) {
		return
	}
	var ad models.Ad
	if err := json.NewDecoder(r.Body).Decode(&ad); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	n, err := ad.Normalize()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.Catalog.GetAdByID(n.ID); err == nil {
		http.Error(w, "ad already exists", http.StatusConflict)
		return
	}

	// Insert into catalog
	if err := s.Catalog.InsertAd(n); err != nil {
		s.Logger.Error("insert ad into catalog", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Also persist to PostgreSQL
	if s.PG != nil {
		if err := s.PG.UpsertAd(n); err != nil {
			s.Logger.Error("insert ad to postgres", zap.Error(err))
			// Don't fail the request, the catalog is the source of truth
		}
	}

	s.notifyUpdate("create", n.ID)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, n)
}

func (s *Server) UpdateAd(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	if !s.allowAdmin(w, r) {
		return
	}
	id := mux.Vars(r)["id"]
	var ad models.Ad
	if err := json.NewDecoder(r.Body).Decode(&ad); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	ad.ID = id

	n, err := ad.Normalize()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Update in catalog
	if err := s.Catalog.UpdateAd(n); err != nil {
		if err == models.ErrNotFound {
			http.Error(w, "ad not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("update ad in catalog", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Also update in PostgreSQL
	if s.PG != nil {
		if err := s.PG.UpsertAd(n); err != nil {
			s.Logger.Error("update ad in postgres", zap.Error(err))
		}
	}

	s.notifyUpdate("update", id)
	writeJSON(w, n)
}

func (s *Server) DeleteAd(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	if !s.allowAdmin(w, r) {
		return
	}
	id := mux.Vars(r)["id"]

	// Delete from catalog
	if err := s.Catalog.DeleteAd(id); err != nil {
		if err == models.ErrNotFound {
			http.Error(w, "ad not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("delete ad from catalog", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Also delete from PostgreSQL
	if s.PG != nil {
		if err := s.PG.DeleteAd(id); err != nil {
			s.Logger.Error("delete ad from postgres", zap.Error(err))
		}
	}

	s.notifyUpdate("delete", id)
	w.WriteHeader(http.StatusNoContent)
}

// allowAdmin rate-limits the mutating admin surface per client.
func (s *Server) allowAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.Limiter == nil {
		return true
	}
	if s.Limiter.Allow(clientIP(r), "ads_admin") {
		return true
	}
	http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	return false
}
