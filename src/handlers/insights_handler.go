package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgee-insights/src/db"
	"budgee-insights/src/models"
	"budgee-insights/src/util"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// GetFeatures returns the stored feature set for {user_id} and {window}.
func GetFeatures(store db.Store, cache *db.ReadCache, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, window, ok := routeParams(w, r)
		if !ok {
			return
		}
		if fs, hit := cache.Features(userID, window); hit {
			writeJSON(w, fs)
			return
		}
		conn, err := store.Acquire(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to acquire connection")
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		defer conn.Release()

		fs, found, err := conn.FeatureSet(r.Context(), userID, window)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("window", string(window)).Msg("Failed to load features")
			http.Error(w, "failed to load features", http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "features not found", http.StatusNotFound)
			return
		}
		cache.SetFeatures(fs)
		writeJSON(w, fs)
	}
}

// GetPersona returns the stored persona assignment for {user_id} and {window}.
func GetPersona(store db.Store, cache *db.ReadCache, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, window, ok := routeParams(w, r)
		if !ok {
			return
		}
		if pa, hit := cache.Persona(userID, window); hit {
			writeJSON(w, pa)
			return
		}
		conn, err := store.Acquire(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to acquire connection")
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		defer conn.Release()

		pa, err := conn.Persona(r.Context(), userID, window)
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "persona not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("window", string(window)).Msg("Failed to load persona")
			http.Error(w, "failed to load persona", http.StatusInternalServerError)
			return
		}
		cache.SetPersona(pa)
		writeJSON(w, pa)
	}
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

func routeParams(w http.ResponseWriter, r *http.Request) (string, models.Window, bool) {
	userID := chi.URLParam(r, "user_id")
	if !util.ValidateUserID(userID) {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return "", "", false
	}
	window, err := models.ParseWindow(chi.URLParam(r, "window"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	return userID, window, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
