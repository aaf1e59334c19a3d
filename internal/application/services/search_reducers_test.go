package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

var reducerTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func num(v float64) *float64 { return &v }

func sampleHospitals() []entities.Hospital {
	return []entities.Hospital{
		{EmergencyServices: entities.L("Yes"), HospitalType: entities.L("Acute Care"), HospitalOwnership: entities.L("Government")},
		{EmergencyServices: entities.L("No"), HospitalType: entities.L("Critical Access"), HospitalOwnership: entities.Missing},
		{EmergencyServices: entities.L("Yes"), HospitalType: entities.L("Acute Care"), HospitalOwnership: entities.L("Proprietary")},
	}
}

func samplePlans() []entities.InsurancePlan {
	return []entities.InsurancePlan{
		{ID: "a", Issuer: &entities.Issuer{Name: entities.L("Acme")}, MetalLevel: entities.L("Gold"), Type: entities.L("HMO"), Premium: num(300)},
		{ID: "b", Issuer: &entities.Issuer{Name: entities.L("Beta")}, MetalLevel: entities.L("Silver"), Type: entities.L("PPO"), Premium: num(200)},
	}
}

func TestParseStalePolicy(t *testing.T) {
	p, err := services.ParseStalePolicy("")
	require.NoError(t, err)
	assert.Equal(t, services.StalePolicyLatestIssued, p)

	p, err = services.ParseStalePolicy("last-resolved")
	require.NoError(t, err)
	assert.Equal(t, services.StalePolicyLastResolved, p)

	_, err = services.ParseStalePolicy("first-wins")
	assert.Error(t, err)
}

func TestBeginHospitalSearch_ClearsErrorAndKeepsResults(t *testing.T) {
	r := entities.HospitalResults{}
	r, token := services.BeginHospitalSearch(r, reducerTime)
	r, ok := services.ResolveHospitalSearch(r, token, sampleHospitals(), services.StalePolicyLatestIssued, reducerTime)
	require.True(t, ok)

	r.Error = "previous failure"
	next, token2 := services.BeginHospitalSearch(r, reducerTime)

	assert.Equal(t, token+1, token2)
	assert.Equal(t, entities.SearchStatusLoading, next.Status)
	assert.True(t, next.Loading())
	assert.Empty(t, next.Error)
	assert.Len(t, next.All, 3)
	assert.Len(t, next.Filtered, 3)
}

func TestResolveHospitalSearch_StoresResultsAndResetsCriteria(t *testing.T) {
	r, token := services.BeginHospitalSearch(entities.HospitalResults{}, reducerTime)
	r.Criteria = entities.HospitalFilterCriteria{HospitalTypes: []entities.Label{entities.L("Acute Care")}}

	r, ok := services.ResolveHospitalSearch(r, token, sampleHospitals(), services.StalePolicyLatestIssued, reducerTime)

	require.True(t, ok)
	assert.Equal(t, entities.SearchStatusSuccess, r.Status)
	assert.Equal(t, token, r.Applied)
	assert.Equal(t, sampleHospitals(), r.All)
	assert.Equal(t, sampleHospitals(), r.Filtered)
	assert.Empty(t, r.Criteria.HospitalTypes)
	assert.Equal(t, []entities.Label{entities.L("Yes"), entities.L("No")}, r.Options.EmergencyServices)
	assert.Equal(t, []entities.Label{entities.L("Government"), entities.Missing, entities.L("Proprietary")}, r.Options.HospitalOwnerships)
}

func TestResolveHospitalSearch_NilResponseBecomesEmptyList(t *testing.T) {
	r, token := services.BeginHospitalSearch(entities.HospitalResults{}, reducerTime)
	r, ok := services.ResolveHospitalSearch(r, token, nil, services.StalePolicyLatestIssued, reducerTime)

	require.True(t, ok)
	assert.NotNil(t, r.All)
	assert.Empty(t, r.All)
	assert.NotNil(t, r.Options.HospitalTypes)
}

func TestFailHospitalSearch_ClearsListsAndSetsMessage(t *testing.T) {
	r, token := services.BeginHospitalSearch(entities.HospitalResults{}, reducerTime)
	r, _ = services.ResolveHospitalSearch(r, token, sampleHospitals(), services.StalePolicyLatestIssued, reducerTime)
	r, token = services.BeginHospitalSearch(r, reducerTime)

	r, ok := services.FailHospitalSearch(r, token, services.StalePolicyLatestIssued, reducerTime)

	require.True(t, ok)
	assert.Equal(t, entities.SearchStatusFailed, r.Status)
	assert.False(t, r.Loading())
	assert.Equal(t, "An error occurred while fetching hospitals. Please try again.", r.Error)
	assert.Nil(t, r.All)
	assert.Nil(t, r.Filtered)
	assert.Empty(t, r.Options.EmergencyServices)
}

func TestFilterHospitalResults(t *testing.T) {
	r, token := services.BeginHospitalSearch(entities.HospitalResults{}, reducerTime)
	r, _ = services.ResolveHospitalSearch(r, token, sampleHospitals(), services.StalePolicyLatestIssued, reducerTime)

	criteria := entities.HospitalFilterCriteria{EmergencyServices: []entities.Label{entities.L("Yes")}}
	filtered, ok := services.FilterHospitalResults(r, criteria)

	require.True(t, ok)
	assert.Len(t, filtered.All, 3)
	assert.Len(t, filtered.Filtered, 2)
	assert.Equal(t, criteria, filtered.Criteria)
	assert.Equal(t, r.Options, filtered.Options)
}

func TestFilterHospitalResults_NoFullListIsNoOp(t *testing.T) {
	r := entities.HospitalResults{SearchLifecycle: entities.SearchLifecycle{Status: entities.SearchStatusIdle}}
	criteria := entities.HospitalFilterCriteria{EmergencyServices: []entities.Label{entities.L("Yes")}}

	out, ok := services.FilterHospitalResults(r, criteria)

	assert.False(t, ok)
	assert.Equal(t, r, out)
}

func TestStalePolicy_LatestIssuedDropsOlderResponse(t *testing.T) {
	r, first := services.BeginHospitalSearch(entities.HospitalResults{}, reducerTime)
	r, second := services.BeginHospitalSearch(r, reducerTime)

	r, ok := services.ResolveHospitalSearch(r, second, sampleHospitals()[:1], services.StalePolicyLatestIssued, reducerTime)
	require.True(t, ok)

	after, ok := services.ResolveHospitalSearch(r, first, sampleHospitals(), services.StalePolicyLatestIssued, reducerTime)
	assert.False(t, ok)
	assert.Equal(t, r, after)

	after, ok = services.FailHospitalSearch(r, first, services.StalePolicyLatestIssued, reducerTime)
	assert.False(t, ok)
	assert.Len(t, after.All, 1)
}

func TestStalePolicy_LastResolvedAppliesWhateverArrivesLast(t *testing.T) {
	r, first := services.BeginHospitalSearch(entities.HospitalResults{}, reducerTime)
	r, second := services.BeginHospitalSearch(r, reducerTime)

	r, ok := services.ResolveHospitalSearch(r, second, sampleHospitals()[:1], services.StalePolicyLastResolved, reducerTime)
	require.True(t, ok)
	r, ok = services.ResolveHospitalSearch(r, first, sampleHospitals(), services.StalePolicyLastResolved, reducerTime)

	require.True(t, ok)
	assert.Len(t, r.All, 3)
	assert.Equal(t, first, r.Applied)
}

func TestStalePolicy_RejectsUnknownTokens(t *testing.T) {
	r, _ := services.BeginHospitalSearch(entities.HospitalResults{}, reducerTime)

	_, ok := services.ResolveHospitalSearch(r, 0, sampleHospitals(), services.StalePolicyLastResolved, reducerTime)
	assert.False(t, ok)
	_, ok = services.ResolveHospitalSearch(r, 99, sampleHospitals(), services.StalePolicyLastResolved, reducerTime)
	assert.False(t, ok)
}

func TestInsuranceReducers(t *testing.T) {
	r, token := services.BeginInsuranceSearch(entities.InsuranceResults{}, reducerTime)
	r, ok := services.ResolveInsuranceSearch(r, token, samplePlans(), services.StalePolicyLatestIssued, reducerTime)
	require.True(t, ok)
	assert.Equal(t, []entities.Label{entities.L("Acme"), entities.L("Beta")}, r.Options.Issuers)

	r, ok = services.FilterInsuranceResults(r, entities.InsuranceFilterCriteria{Premium: entities.NewRange(num(250), nil)})
	require.True(t, ok)
	require.Len(t, r.Filtered, 1)
	assert.Equal(t, "a", r.Filtered[0].ID)

	r, token = services.BeginInsuranceSearch(r, reducerTime)
	assert.Len(t, r.Filtered, 1)

	r, ok = services.FailInsuranceSearch(r, token, services.StalePolicyLatestIssued, reducerTime)
	require.True(t, ok)
	assert.Equal(t, "An error occurred while fetching insurance plans. Please try again.", r.Error)
	assert.Nil(t, r.All)
	assert.Nil(t, r.Filtered)
	assert.Nil(t, r.Criteria.Premium)

	_, ok = services.FilterInsuranceResults(r, entities.InsuranceFilterCriteria{HSAEligible: true})
	assert.False(t, ok)
}
