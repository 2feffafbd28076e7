package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/jsonstorage/internal/apperrors"
	"github.com/kadirpekel/jsonstorage/internal/coordinator"
	"github.com/kadirpekel/jsonstorage/internal/docstore"
)

type handlers struct {
	coord *coordinator.Coordinator
}

// createObject handles POST /{ns}/objects?document_name=…
func (h *handlers) createObject(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")
	documentName := r.URL.Query().Get("document_name")

	id, err := h.coord.CreateObjectStream(r.Context(), ns, documentName, r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// getObjectMeta handles GET /{ns}/objects/{id}/meta
func (h *handlers) getObjectMeta(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")
	id := chi.URLParam(r, "id")

	meta, err := h.coord.GetObjectMeta(r.Context(), ns, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// getObjectBody handles GET /{ns}/objects/{id}/body
func (h *handlers) getObjectBody(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")
	id := chi.URLParam(r, "id")

	body, err := h.coord.GetObjectBody(r.Context(), ns, id)
	if errors.Is(err, coordinator.ErrInProgress) {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// deleteObject handles DELETE /{ns}/objects/{id}
func (h *handlers) deleteObject(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")
	id := chi.URLParam(r, "id")

	if err := h.coord.DeleteObject(r.Context(), ns, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setSearchSchema handles PUT /{ns}/search-schema
func (h *handlers) setSearchSchema(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")

	var schema map[string]string
	if err := json.NewDecoder(r.Body).Decode(&schema); err != nil {
		writeError(w, apperrors.BadRequestf("invalid schema body: %v", err))
		return
	}

	if err := h.coord.SetSearchSchema(r.Context(), ns, schema); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// searchObjects handles POST /{ns}/search
func (h *handlers) searchObjects(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperrors.BadRequestf("read search body: %v", err))
		return
	}

	size, from := pageParams(r)
	docs, err := h.coord.SearchObjects(r.Context(), ns, string(raw), size, from)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// listObjects handles GET /{ns}/objects?limit=N&cursor=… and GET /{ns}
func (h *handlers) listObjects(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")

	limit := clampLimit(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")

	list, err := h.coord.ListObjects(r.Context(), ns, docstore.ListOptions{Limit: limit, Cursor: cursor})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// getNamespaces handles GET /get_namespaces
func (h *handlers) getNamespaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Namespaces())
}

func clampLimit(raw string) int {
	const def = 50
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return n
}

func pageParams(r *http.Request) (size, from int) {
	size = 10
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			from = n
		}
	}
	return size, from
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an apperrors-sentinel-wrapped error to the HTTP
// status in spec §7's error handling design.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.NotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.InProgress):
		status = http.StatusAccepted
	case errors.Is(err, apperrors.Conflict):
		status = http.StatusConflict
	case errors.Is(err, apperrors.BadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.TransientIO):
		status = http.StatusServiceUnavailable
	case errors.Is(err, apperrors.Fatal):
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
