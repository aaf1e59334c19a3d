package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
	// An empty value is kept as "" so it can select the missing label.
	decoder.ZeroEmpty(true)
	decoder.RegisterConverter(false, formBool)
}

// formBool also accepts "on", which is what a checked HTML checkbox sends.
func formBool(value string) reflect.Value {
	switch strings.ToLower(value) {
	case "on", "yes":
		return reflect.ValueOf(true)
	case "off", "no", "":
		return reflect.ValueOf(false)
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return reflect.ValueOf(b)
	}
	return reflect.Value{}
}

type hospitalFilterForm struct {
	EmergencyServices  []string `schema:"emergency_services"`
	HospitalTypes      []string `schema:"hospital_types"`
	HospitalOwnerships []string `schema:"hospital_ownerships"`
}

type insuranceFilterForm struct {
	Issuers            []string `schema:"issuers"`
	PlanTypes          []string `schema:"plan_types"`
	MetalLevels        []string `schema:"metal_levels"`
	PremiumMin         string   `schema:"premium_min"`
	PremiumMax         string   `schema:"premium_max"`
	DeductibleMin      string   `schema:"deductible_min"`
	DeductibleMax      string   `schema:"deductible_max"`
	HSAEligible        bool     `schema:"hsa_eligible"`
	HasNationalNetwork bool     `schema:"has_national_network"`
}

func (f hospitalFilterForm) criteria() entities.HospitalFilterCriteria {
	return entities.HospitalFilterCriteria{
		EmergencyServices:  formLabels(f.EmergencyServices),
		HospitalTypes:      formLabels(f.HospitalTypes),
		HospitalOwnerships: formLabels(f.HospitalOwnerships),
	}
}

func (f insuranceFilterForm) criteria() (entities.InsuranceFilterCriteria, error) {
	premium, err := formRange("premium", f.PremiumMin, f.PremiumMax)
	if err != nil {
		return entities.InsuranceFilterCriteria{}, err
	}
	deductible, err := formRange("deductible", f.DeductibleMin, f.DeductibleMax)
	if err != nil {
		return entities.InsuranceFilterCriteria{}, err
	}
	return entities.InsuranceFilterCriteria{
		Issuers:            formLabels(f.Issuers),
		PlanTypes:          formLabels(f.PlanTypes),
		MetalLevels:        formLabels(f.MetalLevels),
		Premium:            premium,
		Deductible:         deductible,
		HSAEligible:        f.HSAEligible,
		HasNationalNetwork: f.HasNationalNetwork,
	}, nil
}

func formLabels(values []string) []entities.Label {
	if len(values) == 0 {
		return nil
	}
	labels := make([]entities.Label, 0, len(values))
	for _, v := range values {
		if v == "" {
			labels = append(labels, entities.Missing)
			continue
		}
		labels = append(labels, entities.L(v))
	}
	return labels
}

func formRange(name, min, max string) (*entities.Range, error) {
	lo, err := formBound(name+"_min", min)
	if err != nil {
		return nil, err
	}
	hi, err := formBound(name+"_max", max)
	if err != nil {
		return nil, err
	}
	return entities.NewRange(lo, hi), nil
}

func formBound(field, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", field)
	}
	return &f, nil
}

func isFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

// ApplyHospitalFilters handles PUT /api/sessions/{id}/hospitals/filters
func (h *SearchHandler) ApplyHospitalFilters(w http.ResponseWriter, r *http.Request) {
	var criteria entities.HospitalFilterCriteria

	if isFormRequest(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		var form hospitalFilterForm
		if err := decoder.Decode(&form, r.PostForm); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid filter form")
			return
		}
		criteria = form.criteria()
	} else if err := decodeJSONBody(w, r, &criteria); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.searcher.ApplyHospitalFilters(r.Context(), r.PathValue("id"), criteria)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, services.BuildView(session))
}

// ApplyInsuranceFilters handles PUT /api/sessions/{id}/insurance/filters
func (h *SearchHandler) ApplyInsuranceFilters(w http.ResponseWriter, r *http.Request) {
	var criteria entities.InsuranceFilterCriteria

	if isFormRequest(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		var form insuranceFilterForm
		if err := decoder.Decode(&form, r.PostForm); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid filter form")
			return
		}
		var err error
		if criteria, err = form.criteria(); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if err := decodeJSONBody(w, r, &criteria); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.searcher.ApplyInsuranceFilters(r.Context(), r.PathValue("id"), criteria)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, services.BuildView(session))
}
