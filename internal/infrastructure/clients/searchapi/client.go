package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/providers"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/observability"
)

const (
	hospitalsPath       = "/api/hospitals"
	hospitalsRadiusPath = "/api/hospitals/radius"
	insurancePlansPath  = "/api/insurance-plans"
)

// HTTPClient talks to the hospital and insurance search backend
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ providers.SearchAPI = (*HTTPClient)(nil)

// NewClient creates a search API client. A non-positive timeout falls back to 10s.
func NewClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type insurancePlansResponse struct {
	Plans []entities.InsurancePlan `json:"plans"`
}

// SearchHospitals calls GET /api/hospitals?query=
func (c *HTTPClient) SearchHospitals(ctx context.Context, query string) ([]entities.Hospital, error) {
	params := url.Values{}
	params.Set("query", query)

	var out []entities.Hospital
	if err := c.doJSON(ctx, http.MethodGet, hospitalsPath, params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchHospitalsByRadius calls GET /api/hospitals/radius?address=&radius=
func (c *HTTPClient) SearchHospitalsByRadius(ctx context.Context, address string, radius float64) ([]entities.Hospital, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("radius", strconv.FormatFloat(radius, 'f', -1, 64))

	var out []entities.Hospital
	if err := c.doJSON(ctx, http.MethodGet, hospitalsRadiusPath, params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchInsurancePlans calls POST /api/insurance-plans with the form as the JSON body
func (c *HTTPClient) SearchInsurancePlans(ctx context.Context, form entities.InsuranceSearchForm) ([]entities.InsurancePlan, error) {
	if form == nil {
		form = entities.InsuranceSearchForm{}
	}
	body, err := json.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("failed to encode insurance form: %w", err)
	}

	var out insurancePlansResponse
	if err := c.doJSON(ctx, http.MethodPost, insurancePlansPath, nil, bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, params url.Values, body io.Reader, out interface{}) (err error) {
	ctx, span := observability.StartSpan(ctx, "searchapi "+method+" "+path,
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)
	defer func() {
		if err != nil {
			observability.RecordError(span, err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &providers.FetchError{Kind: providers.FetchErrorNetwork, Endpoint: path, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &providers.FetchError{Kind: providers.FetchErrorNetwork, Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &providers.FetchError{Kind: providers.FetchErrorHTTP, Endpoint: path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &providers.FetchError{Kind: providers.FetchErrorDecode, Endpoint: path, StatusCode: resp.StatusCode, Err: err}
	}

	return nil
}
