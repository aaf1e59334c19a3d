package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

const maxBodyBytes = 1 << 20

// Searcher runs searches and filter changes against a session.
type Searcher interface {
	SearchHospitalsByName(ctx context.Context, sessionID, query string) (*entities.Session, error)
	SearchHospitalsByRadius(ctx context.Context, sessionID, address string, radius float64) (*entities.Session, error)
	SearchInsurancePlans(ctx context.Context, sessionID string, form entities.InsuranceSearchForm) (*entities.Session, error)
	ApplyHospitalFilters(ctx context.Context, sessionID string, criteria entities.HospitalFilterCriteria) (*entities.Session, error)
	ApplyInsuranceFilters(ctx context.Context, sessionID string, criteria entities.InsuranceFilterCriteria) (*entities.Session, error)
}

// SearchHandler handles search and filter requests. A failed upstream fetch
// is part of the returned view, so searches answer 200 unless the input or
// the session is bad.
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

type hospitalNameRequest struct {
	Query string `json:"query"`
}

type hospitalRadiusRequest struct {
	Address string     `json:"address"`
	Radius  flexNumber `json:"radius"`
}

// flexNumber accepts 5, 5.5 or "5" since form inputs often post strings.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*n = flexNumber(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

// SearchHospitals handles POST /api/sessions/{id}/hospitals/search
func (h *SearchHandler) SearchHospitals(w http.ResponseWriter, r *http.Request) {
	var req hospitalNameRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.searcher.SearchHospitalsByName(r.Context(), r.PathValue("id"), req.Query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, services.BuildView(session))
}

// SearchHospitalsByRadius handles POST /api/sessions/{id}/hospitals/radius-search
func (h *SearchHandler) SearchHospitalsByRadius(w http.ResponseWriter, r *http.Request) {
	var req hospitalRadiusRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.searcher.SearchHospitalsByRadius(r.Context(), r.PathValue("id"), req.Address, float64(req.Radius))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, services.BuildView(session))
}

// SearchInsurance handles POST /api/sessions/{id}/insurance/search. The body
// is the form's fields as a JSON object; an empty body is an empty form.
func (h *SearchHandler) SearchInsurance(w http.ResponseWriter, r *http.Request) {
	form := entities.InsuranceSearchForm{}
	if err := decodeJSONBody(w, r, &form); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	session, err := h.searcher.SearchInsurancePlans(r.Context(), r.PathValue("id"), form)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, services.BuildView(session))
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
