package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"

	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// writeJSON sets status and renders data as JSON
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	rest.RenderJSON(w, data)
}

// writeJSONError renders {"error": message}
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, rest.JSON{"error": message})
}

// writeError maps domain errors to status codes, unexpected errors are logged and hidden
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch club.KindOf(err) {
	case club.KindValidation:
		status = http.StatusBadRequest
	case club.KindNotFound:
		status = http.StatusNotFound
	case club.KindConflict:
		status = http.StatusConflict
	case club.KindUpstream:
		status = http.StatusBadGateway
	case club.KindUnavailable:
		status = http.StatusServiceUnavailable
	default:
		log.Printf("[ERROR] %s %s failed, %v", r.Method, r.URL.Path, err)
		s.writeJSONError(w, status, "internal server error")
		return
	}
	log.Printf("[DEBUG] %s %s rejected with %d, %v", r.Method, r.URL.Path, status, err)
	s.writeJSONError(w, status, club.Message(err))
}

var errEmptyBody = errors.New("empty body")

// decodeJSON reads a JSON body, unknown fields are ignored. Empty body is an error.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return club.NewError(club.KindValidation, "request body is required", errEmptyBody)
		}
		return club.NewError(club.KindValidation, "malformed JSON", err)
	}
	return nil
}

// pathID parses a positive int64 path value
func pathID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, club.NewError(club.KindValidation, fmt.Sprintf("invalid %s %q", name, v), err)
	}
	return id, nil
}

// queryInt parses an optional int query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	res, err := strconv.Atoi(v)
	if err != nil {
		return 0, club.NewError(club.KindValidation, fmt.Sprintf("invalid %s parameter %q", name, v), err)
	}
	return res, nil
}

// queryPage reads page, size and sort parameters
func queryPage(r *http.Request) (store.Page, error) {
	var page store.Page
	var err error
	if page.Number, err = queryInt(r, "page", 0); err != nil {
		return store.Page{}, err
	}
	if page.Number > store.MaxPageNumber {
		return store.Page{}, club.NewError(club.KindValidation,
			fmt.Sprintf("page parameter must not exceed %d", store.MaxPageNumber), nil)
	}
	if page.Size, err = queryInt(r, "size", store.DefaultPageSize); err != nil {
		return store.Page{}, err
	}
	if err := page.ParseSort(r.URL.Query().Get("sort")); err != nil {
		return store.Page{}, club.NewError(club.KindValidation, "invalid sort parameter", err)
	}
	return page, nil
}
