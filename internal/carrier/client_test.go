// internal/carrier/client_test.go
package carrier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollment-core/internal/common/config"
	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient("allstate", config.CarrierConfig{
		Name:      "Allstate",
		BaseURL:   baseURL,
		APIKey:    "test-key",
		TimeoutMS: 2000,
	}, logger.NewTestLogger(t))
}

func testEligibilityContext() models.EligibilityContext {
	return models.EligibilityContext{
		SelectedPlans: []string{"term-20"},
		State:         "TX",
		EffectiveDate: "2026-10-01",
	}
}

// ==========================
// FetchQuestions Tests
// ==========================

func TestFetchQuestions_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eligibility/questions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"questions":[{"id":"tobacco","text":"Used tobacco?"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	questions, err := c.FetchQuestions(context.Background(), testEligibilityContext())

	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "tobacco", questions[0].ID)
}

func TestFetchQuestions_EmptySetIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"questions":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	questions, err := c.FetchQuestions(context.Background(), testEligibilityContext())

	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestFetchQuestions_ContextErrorFrom422(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code":"INVALID_EFFECTIVE_DATE","message":"date outside window","hint":"pick the first of next month"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.FetchQuestions(context.Background(), testEligibilityContext())

	require.Error(t, err)
	assert.True(t, apperrors.IsContextError(err))
	var se *apperrors.StandardError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.ErrCodeInvalidEffectiveDate, se.Code)
	assert.Equal(t, "pick the first of next month", se.Hint)
}

func TestFetchQuestions_ServerErrorIsCollaboratorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.FetchQuestions(context.Background(), testEligibilityContext())

	require.Error(t, err)
	assert.False(t, apperrors.IsContextError(err))
	assert.Equal(t, apperrors.CategoryCollaborator, apperrors.CategoryOf(err))
}

// ==========================
// Submit Tests
// ==========================

func TestSubmit_ReturnsApplicationID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/applications", r.URL.Path)
		w.Write([]byte(`{"applicationId":"APP-123"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	id, err := c.Submit(context.Background(), map[string]interface{}{"referenceId": "ref-1"})

	require.NoError(t, err)
	assert.Equal(t, "APP-123", id)
}

func TestSubmit_MissingApplicationIDIsAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Submit(context.Background(), map[string]interface{}{})

	require.Error(t, err)
	var se *apperrors.StandardError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.ErrCodeCarrierSubmitFailed, se.Code)
}

func TestSubmit_UnreachableCarrier(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")

	_, err := c.Submit(context.Background(), map[string]interface{}{})

	require.Error(t, err)
	var se *apperrors.StandardError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.ErrCodeCarrierUnavailable, se.Code)
}

// ==========================
// Registry Tests
// ==========================

func TestRegistry_ExactLookupOnly(t *testing.T) {
	cfg := config.CarriersConfig{
		DefaultSlug: "acme-life",
		Endpoints: map[string]config.CarrierConfig{
			"acme-life": {Name: "Acme Life", BaseURL: "http://acme.test"},
			"allstate":  {Name: "Allstate", BaseURL: "http://allstate.test"},
		},
	}
	r := NewRegistry(cfg, logger.NewNoOpLogger())

	c, ok := r.Get("allstate")
	require.True(t, ok)
	assert.Equal(t, "Allstate", c.Name())

	// A real but unconfigured carrier must never be routed to another
	// carrier's endpoint.
	c, ok = r.Get("blue-cross")
	assert.False(t, ok)
	assert.Nil(t, c)
}
