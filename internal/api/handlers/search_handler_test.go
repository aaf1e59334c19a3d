package handlers_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/healthcaresearch/backend/internal/api/handlers"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/healthcaresearch/backend/pkg/errors"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchHospitalsByName(ctx context.Context, sessionID, query string) (*entities.Session, error) {
	args := m.Called(ctx, sessionID, query)
	return sessionArg(args)
}

func (m *mockSearcher) SearchHospitalsByRadius(ctx context.Context, sessionID, address string, radius float64) (*entities.Session, error) {
	args := m.Called(ctx, sessionID, address, radius)
	return sessionArg(args)
}

func (m *mockSearcher) SearchInsurancePlans(ctx context.Context, sessionID string, form entities.InsuranceSearchForm) (*entities.Session, error) {
	args := m.Called(ctx, sessionID, form)
	return sessionArg(args)
}

func (m *mockSearcher) ApplyHospitalFilters(ctx context.Context, sessionID string, criteria entities.HospitalFilterCriteria) (*entities.Session, error) {
	args := m.Called(ctx, sessionID, criteria)
	return sessionArg(args)
}

func (m *mockSearcher) ApplyInsuranceFilters(ctx context.Context, sessionID string, criteria entities.InsuranceFilterCriteria) (*entities.Session, error) {
	args := m.Called(ctx, sessionID, criteria)
	return sessionArg(args)
}

func sessionArg(args mock.Arguments) (*entities.Session, error) {
	if s := args.Get(0); s != nil {
		return s.(*entities.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func failedHospitalSession() *entities.Session {
	s := entities.NewSession("s1", time.Now())
	s.Hospitals.Status = entities.SearchStatusFailed
	s.Hospitals.Error = "An error occurred while fetching hospitals. Please try again."
	return s
}

func serve(handler http.HandlerFunc, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.SetPathValue("id", "s1")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestSearchHandler_SearchHospitals(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("SearchHospitalsByName", mock.Anything, "s1", "St. Mary").
		Return(entities.NewSession("s1", time.Now()), nil)
	handler := handlers.NewSearchHandler(searcher)

	w := serve(handler.SearchHospitals, "POST", "/api/sessions/s1/hospitals/search", "application/json", `{"query":"St. Mary"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", decodeView(t, w).SessionID)
	searcher.AssertExpectations(t)
}

func TestSearchHandler_SearchHospitals_FetchFailureIsOK(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("SearchHospitalsByName", mock.Anything, "s1", "x").Return(failedHospitalSession(), nil)
	handler := handlers.NewSearchHandler(searcher)

	w := serve(handler.SearchHospitals, "POST", "/", "application/json", `{"query":"x"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	view := decodeView(t, w)
	require.NotNil(t, view.Hospitals)
	assert.Equal(t, entities.SearchStatusFailed, view.Hospitals.Status)
	assert.Equal(t, "An error occurred while fetching hospitals. Please try again.", view.Hospitals.Error)
	assert.Nil(t, view.Hospitals.Results)
}

func TestSearchHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation", apperrors.NewValidationError("query is required"), http.StatusBadRequest},
		{"not found", apperrors.NewNotFoundError("session not found"), http.StatusNotFound},
		{"internal", apperrors.NewInternalError("failed to save session", assert.AnError), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(mockSearcher)
			searcher.On("SearchHospitalsByName", mock.Anything, "s1", "").Return(nil, tt.err)
			handler := handlers.NewSearchHandler(searcher)

			w := serve(handler.SearchHospitals, "POST", "/", "application/json", `{"query":""}`)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestSearchHandler_SearchHospitalsByRadius(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		radius float64
	}{
		{"number", `{"address":"1 Main St","radius":5}`, 5},
		{"fraction", `{"address":"1 Main St","radius":2.5}`, 2.5},
		{"string", `{"address":"1 Main St","radius":" 10 "}`, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(mockSearcher)
			searcher.On("SearchHospitalsByRadius", mock.Anything, "s1", "1 Main St", tt.radius).
				Return(entities.NewSession("s1", time.Now()), nil)
			handler := handlers.NewSearchHandler(searcher)

			w := serve(handler.SearchHospitalsByRadius, "POST", "/", "application/json", tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			searcher.AssertExpectations(t)
		})
	}
}

func TestSearchHandler_SearchHospitalsByRadius_BadRadius(t *testing.T) {
	searcher := new(mockSearcher)
	handler := handlers.NewSearchHandler(searcher)

	w := serve(handler.SearchHospitalsByRadius, "POST", "/", "application/json", `{"address":"1 Main St","radius":"far"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	searcher.AssertNotCalled(t, "SearchHospitalsByRadius", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchHandler_SearchInsurance(t *testing.T) {
	t.Run("form fields pass through", func(t *testing.T) {
		searcher := new(mockSearcher)
		form := entities.InsuranceSearchForm{"zip": "10001", "age": float64(40)}
		searcher.On("SearchInsurancePlans", mock.Anything, "s1", form).
			Return(entities.NewSession("s1", time.Now()), nil)
		handler := handlers.NewSearchHandler(searcher)

		w := serve(handler.SearchInsurance, "POST", "/", "application/json", `{"zip":"10001","age":40}`)

		assert.Equal(t, http.StatusOK, w.Code)
		searcher.AssertExpectations(t)
	})

	t.Run("empty body is an empty form", func(t *testing.T) {
		searcher := new(mockSearcher)
		searcher.On("SearchInsurancePlans", mock.Anything, "s1", entities.InsuranceSearchForm{}).
			Return(entities.NewSession("s1", time.Now()), nil)
		handler := handlers.NewSearchHandler(searcher)

		w := serve(handler.SearchInsurance, "POST", "/", "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		searcher.AssertExpectations(t)
	})

	t.Run("non-object body", func(t *testing.T) {
		searcher := new(mockSearcher)
		handler := handlers.NewSearchHandler(searcher)

		w := serve(handler.SearchInsurance, "POST", "/", "application/json", `["zip"]`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSearchHandler_ApplyHospitalFilters_JSON(t *testing.T) {
	searcher := new(mockSearcher)
	want := entities.HospitalFilterCriteria{
		EmergencyServices: []entities.Label{entities.L("Yes"), entities.Missing},
	}
	searcher.On("ApplyHospitalFilters", mock.Anything, "s1", want).
		Return(entities.NewSession("s1", time.Now()), nil)
	handler := handlers.NewSearchHandler(searcher)

	w := serve(handler.ApplyHospitalFilters, "PUT", "/", "application/json", `{"emergency_services":["Yes",null]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	searcher.AssertExpectations(t)
}

func TestSearchHandler_ApplyHospitalFilters_Form(t *testing.T) {
	searcher := new(mockSearcher)
	want := entities.HospitalFilterCriteria{
		EmergencyServices: []entities.Label{entities.L("Yes"), entities.Missing},
		HospitalTypes:     []entities.Label{entities.L("Acute Care Hospitals")},
	}
	searcher.On("ApplyHospitalFilters", mock.Anything, "s1", want).
		Return(entities.NewSession("s1", time.Now()), nil)
	handler := handlers.NewSearchHandler(searcher)

	form := url.Values{
		"emergency_services": {"Yes", ""},
		"hospital_types":     {"Acute Care Hospitals"},
		"page":               {"2"},
	}
	w := serve(handler.ApplyHospitalFilters, "PUT", "/", "application/x-www-form-urlencoded", form.Encode())

	assert.Equal(t, http.StatusOK, w.Code)
	searcher.AssertExpectations(t)
}

func TestSearchHandler_ApplyInsuranceFilters_Form(t *testing.T) {
	searcher := new(mockSearcher)
	want := entities.InsuranceFilterCriteria{
		MetalLevels: []entities.Label{entities.L("Gold")},
		Premium:     &entities.Range{Min: 100, Max: math.Inf(1)},
		HSAEligible: true,
	}
	searcher.On("ApplyInsuranceFilters", mock.Anything, "s1", want).
		Return(entities.NewSession("s1", time.Now()), nil)
	handler := handlers.NewSearchHandler(searcher)

	form := url.Values{
		"metal_levels": {"Gold"},
		"premium_min":  {"100"},
		"premium_max":  {""},
		"hsa_eligible": {"true"},
	}
	w := serve(handler.ApplyInsuranceFilters, "PUT", "/", "application/x-www-form-urlencoded", form.Encode())

	assert.Equal(t, http.StatusOK, w.Code)
	searcher.AssertExpectations(t)
}

func TestSearchHandler_ApplyInsuranceFilters_Checkboxes(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"checked", "on", true},
		{"true", "true", true},
		{"one", "1", true},
		{"false", "false", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(mockSearcher)
			want := entities.InsuranceFilterCriteria{HSAEligible: tt.want, HasNationalNetwork: true}
			searcher.On("ApplyInsuranceFilters", mock.Anything, "s1", want).
				Return(entities.NewSession("s1", time.Now()), nil)
			handler := handlers.NewSearchHandler(searcher)

			form := url.Values{"hsa_eligible": {tt.value}, "has_national_network": {"on"}}
			w := serve(handler.ApplyInsuranceFilters, "PUT", "/", "application/x-www-form-urlencoded", form.Encode())

			assert.Equal(t, http.StatusOK, w.Code)
			searcher.AssertExpectations(t)
		})
	}

	t.Run("garbage", func(t *testing.T) {
		searcher := new(mockSearcher)
		handler := handlers.NewSearchHandler(searcher)

		form := url.Values{"hsa_eligible": {"maybe"}}
		w := serve(handler.ApplyInsuranceFilters, "PUT", "/", "application/x-www-form-urlencoded", form.Encode())

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSearchHandler_ApplyInsuranceFilters_BadBound(t *testing.T) {
	searcher := new(mockSearcher)
	handler := handlers.NewSearchHandler(searcher)

	form := url.Values{"deductible_max": {"lots"}}
	w := serve(handler.ApplyInsuranceFilters, "PUT", "/", "application/x-www-form-urlencoded", form.Encode())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "deductible_max must be a number")
}

func TestSearchHandler_ApplyInsuranceFilters_JSONRange(t *testing.T) {
	searcher := new(mockSearcher)
	want := entities.InsuranceFilterCriteria{
		Deductible: &entities.Range{Min: 0, Max: 2000},
	}
	searcher.On("ApplyInsuranceFilters", mock.Anything, "s1", want).
		Return(entities.NewSession("s1", time.Now()), nil)
	handler := handlers.NewSearchHandler(searcher)

	w := serve(handler.ApplyInsuranceFilters, "PUT", "/", "application/json", `{"deductible":[0,2000]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	searcher.AssertExpectations(t)
}
