package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"ozonedb/internal/errs"
)

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Error: msg})
}

func statusForErr(err error) int {
	switch {
	case errs.Is(err, errs.KindNotFound):
		return http.StatusNotFound
	case errs.Is(err, errs.KindTimeout):
		return http.StatusGatewayTimeout
	case errs.Is(err, errs.KindCapacity):
		return http.StatusRequestEntityTooLarge
	case errs.Is(err, errs.KindConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// insertRequest is the JSON body of POST /v1/keys. Key and Value are
// base64-encoded to allow arbitrary bytes over a JSON transport.
type insertRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type insertResponse struct {
	Chunks int `json:"chunks"`
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	key, err := base64.StdEncoding.DecodeString(req.Key)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "key must be base64")
		return
	}
	value, err := base64.StdEncoding.DecodeString(req.Value)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "value must be base64")
		return
	}

	chunks, err := s.db.Insert(r.Context(), key, value, userIDFromContext(r.Context()))
	if err != nil {
		writeJSONError(w, statusForErr(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(insertResponse{Chunks: chunks})
}

type getResponse struct {
	Value          string `json:"value"`
	TimestampSecs  uint64 `json:"timestamp_secs"`
	TimestampNanos uint32 `json:"timestamp_nanos"`
	UserID         string `json:"user_id"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, err := base64.URLEncoding.DecodeString(r.PathValue("key"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "key must be base64url")
		return
	}
	value, meta, err := s.db.Get(r.Context(), key)
	if err != nil {
		writeJSONError(w, statusForErr(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(getResponse{
		Value:          base64.StdEncoding.EncodeToString(value),
		TimestampSecs:  meta.TimestampSecs,
		TimestampNanos: meta.TimestampNanos,
		UserID:         base64.StdEncoding.EncodeToString(meta.UserID[:]),
	})
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, err := base64.URLEncoding.DecodeString(r.PathValue("key"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "key must be base64url")
		return
	}
	deleted, err := s.db.Delete(r.Context(), key, userIDFromContext(r.Context()))
	if err != nil {
		writeJSONError(w, statusForErr(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deleteResponse{Deleted: deleted})
}

func (s *Server) handleZoneStates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.db.ZoneStates())
}
