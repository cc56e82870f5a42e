package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/shelf/internal/guard"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// maxBodySize bounds a request body.
const maxBodySize = 1 << 20

// Routes holds the collection handlers.
type Routes struct {
	collections Collections
}

// Router mounts the collection endpoints:
//
//	GET    /{collection}        query
//	HEAD   /{collection}        revision only
//	POST   /{collection}        add
//	GET    /{collection}/{id}   get
//	PUT    /{collection}/{id}   update
//	DELETE /{collection}/{id}   remove
func Router(collections Collections) http.Handler {
	rr := &Routes{collections: collections}

	r := chi.NewRouter()
	r.Route("/{collection}", func(r chi.Router) {
		r.Get("/", rr.query)
		r.Head("/", rr.head)
		r.Post("/", rr.add)
		r.Get("/{id}", rr.get)
		r.Put("/{id}", rr.update)
		r.Delete("/{id}", rr.remove)
	})
	return r
}

// guard resolves the collection URL parameter, writing the error response
// itself when it fails.
func (rr *Routes) guard(w http.ResponseWriter, r *http.Request) (*guard.Guard, bool) {
	g, err := rr.collections.Collection(chi.URLParam(r, "collection"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return g, true
}

func (rr *Routes) query(w http.ResponseWriter, r *http.Request) {
	g, ok := rr.guard(w, r)
	if !ok {
		return
	}

	q, err := types.ParseQuery(r.URL.RawQuery)
	if err != nil {
		setETag(w, g.Revision())
		writeErrorStatus(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return
	}

	rev := g.Revision()
	if q.Len() == 0 && matchesETag(r, rev) {
		setETag(w, rev)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	res, err := g.Query(r.Context(), q)
	setETag(w, g.Revision())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rr *Routes) head(w http.ResponseWriter, r *http.Request) {
	g, ok := rr.guard(w, r)
	if !ok {
		return
	}
	setETag(w, g.Revision())
	w.WriteHeader(http.StatusOK)
}

func (rr *Routes) get(w http.ResponseWriter, r *http.Request) {
	g, ok := rr.guard(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, g)
	if !ok {
		return
	}

	rec, err := g.Get(r.Context(), id)
	setETag(w, g.Revision())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (rr *Routes) add(w http.ResponseWriter, r *http.Request) {
	g, ok := rr.guard(w, r)
	if !ok {
		return
	}
	rec, ok := decodeRecord(w, r, g)
	if !ok {
		return
	}

	stored, tok, err := g.Add(r.Context(), rec)
	if err != nil {
		setETag(w, g.Revision())
		writeError(w, err)
		return
	}
	setETag(w, tok)
	w.Header().Set("Location", fmt.Sprintf("/api/%s/%d", g.Kind().Collection(), stored.ID()))
	writeJSON(w, http.StatusCreated, stored)
}

func (rr *Routes) update(w http.ResponseWriter, r *http.Request) {
	g, ok := rr.guard(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, g)
	if !ok {
		return
	}
	rec, ok := decodeRecord(w, r, g)
	if !ok {
		return
	}

	stored, tok, err := g.Update(r.Context(), id, rec)
	if err != nil {
		setETag(w, g.Revision())
		writeError(w, err)
		return
	}
	setETag(w, tok)
	writeJSON(w, http.StatusOK, stored)
}

func (rr *Routes) remove(w http.ResponseWriter, r *http.Request) {
	g, ok := rr.guard(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, g)
	if !ok {
		return
	}

	found, tok, err := g.Remove(r.Context(), id)
	if err != nil {
		setETag(w, g.Revision())
		writeError(w, err)
		return
	}
	setETag(w, tok)
	if !found {
		writeError(w, types.Newf(types.RecordNotFound, "The resource [%d] does not exist.", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request, g *guard.Guard) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		setETag(w, g.Revision())
		writeErrorStatus(w, http.StatusBadRequest, ErrorResponse{Message: fmt.Sprintf("Invalid id '%s'.", raw)})
		return 0, false
	}
	return id, true
}

func decodeRecord(w http.ResponseWriter, r *http.Request, g *guard.Guard) (types.Record, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err == nil {
		var rec types.Record
		if err = json.Unmarshal(body, &rec); err == nil {
			return rec, true
		}
	}
	setETag(w, g.Revision())
	writeError(w, types.Newf(types.InvalidRecord, "Malformed record: %v", err))
	return types.Record{}, false
}

func setETag(w http.ResponseWriter, tok string) {
	w.Header().Set("ETag", strconv.Quote(tok))
}

func matchesETag(r *http.Request, tok string) bool {
	inm := r.Header.Get("If-None-Match")
	return inm != "" && (inm == strconv.Quote(tok) || inm == tok)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Kind    types.ErrorKind `json:"kind,omitempty"`
	Message string          `json:"message"`
}

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	if errors.Is(err, types.ErrKindNotFound) {
		return http.StatusNotFound
	}
	kind, ok := types.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case types.RecordNotFound:
		return http.StatusNotFound
	case types.ConflictOnUniqueKey:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	resp := ErrorResponse{Message: err.Error()}

	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		resp = ErrorResponse{Kind: ve.Kind, Message: ve.Message}
	case status == http.StatusInternalServerError:
		slog.Error("request failed", "error", err)
		resp.Message = http.StatusText(status)
	}
	writeErrorStatus(w, status, resp)
}

func writeErrorStatus(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
