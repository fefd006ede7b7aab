package fakestore

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Handler returns the API router. Routes live under /_db/{db}/; any database
// name is accepted.
func (s *Store) Handler() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/_db/{db}/_api").Subrouter()
	api.Use(s.countRequests, s.authenticate)

	api.HandleFunc("/version", s.handleVersion).Methods("GET")
	api.HandleFunc("/index", s.handleList).Methods("GET")
	api.HandleFunc("/index", s.handleCreate).Methods("POST")
	api.HandleFunc("/index/{coll}/{handle}", s.handleDelete).Methods("DELETE")
	api.HandleFunc("/collection/{coll}/loadIndexesIntoMemory", s.handleLoad).Methods("PUT")
	return router
}

func (s *Store) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Store) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.username != "" {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.username || pass != s.password {
				writeError(w, &storeError{401, 11, "not authorized to execute this request"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Store) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"server":  "fakestore",
		"version": "3.11.0",
	})
}

func (s *Store) handleList(w http.ResponseWriter, r *http.Request) {
	coll := r.URL.Query().Get("collection")
	indexes, ok := s.Indexes(coll)
	if !ok {
		writeError(w, &storeError{404, errNumCollectionNotFound, "collection or view not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"error":   false,
		"code":    http.StatusOK,
		"indexes": indexes,
	})
}

func (s *Store) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req Index
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &storeError{400, errNumBadParameter, "expecting a JSON object body"})
		return
	}
	req.ID = ""
	req.Selectivity = nil

	ix, created, serr := s.create(r.URL.Query().Get("collection"), req)
	if serr != nil {
		writeError(w, serr)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, struct {
		Index
		IsNewlyCreated bool `json:"isNewlyCreated"`
		Error          bool `json:"error"`
		Code           int  `json:"code"`
	}{ix, created, false, status})
}

func (s *Store) handleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, serr := s.drop(vars["coll"], vars["handle"])
	if serr != nil {
		writeError(w, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"error": false,
		"code":  http.StatusOK,
		"id":    id,
	})
}

func (s *Store) handleLoad(w http.ResponseWriter, r *http.Request) {
	if serr := s.load(mux.Vars(r)["coll"]); serr != nil {
		writeError(w, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"error":  false,
		"code":   http.StatusOK,
		"result": true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, e *storeError) {
	writeJSON(w, e.status, map[string]any{
		"error":        true,
		"code":         e.status,
		"errorNum":     e.errorNum,
		"errorMessage": e.message,
	})
}
