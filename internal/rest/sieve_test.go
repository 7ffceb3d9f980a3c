package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sievelab/sieved/domain"
	"github.com/sievelab/sieved/internal/engine"
	"github.com/sievelab/sieved/internal/repository"
	"github.com/sievelab/sieved/internal/rest/request"
	"github.com/sievelab/sieved/internal/rest/response"
	"github.com/sievelab/sieved/internal/usecase/sieve"
)

func newTestRouter(t *testing.T, maxBound uint64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	request.RegisterValidations()

	engines, err := engine.NewRegistry(map[string]domain.FilterSpec{
		"primes": {Kind: domain.FilterPrimes},
		"odds":   {Kind: domain.FilterCoprime, Base: []uint64{2}},
	})
	require.NoError(t, err)

	repo := repository.NewSieveRepository(engines, nil, repository.Options{})
	svc := sieve.NewService(repo, engines, maxBound, time.Second)
	h := NewSieveHandler(svc)

	router := gin.New()
	router.GET("/sieve", h.Query)
	router.GET("/domains", h.Domains)
	router.GET("/stats", h.Stats)
	router.GET("/healthz", NewHealthHandler().Health)
	return router
}

func doGet(router *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestQuery_PrimesUpToTen(t *testing.T) {
	router := newTestRouter(t, 100)

	w := doGet(router, "/sieve?lower=0&upper=10")
	require.Equal(t, http.StatusOK, w.Code)

	var body response.SieveRange
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []uint64{2, 3, 5, 7}, body.Values)
	assert.Equal(t, 4, body.Count)
	assert.Equal(t, "primes", body.Domain)
	assert.Equal(t, uint64(0), body.Lower)
	assert.Equal(t, uint64(10), body.Upper)
}

func TestQuery_GrowthAddsOnlyNewSurvivors(t *testing.T) {
	router := newTestRouter(t, 100)

	w1 := doGet(router, "/sieve?lower=0&upper=10")
	require.Equal(t, http.StatusOK, w1.Code)
	var first response.SieveRange
	require.NoError(t, json.Unmarshal(w1.Body.Bytes(), &first))

	w2 := doGet(router, "/sieve?lower=0&upper=20")
	require.Equal(t, http.StatusOK, w2.Code)
	var second response.SieveRange
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &second))

	expected := append(append([]uint64{}, first.Values...), 11, 13, 17, 19)
	assert.Equal(t, expected, second.Values)
}

func TestQuery_EmptyRangeIsNotAnError(t *testing.T) {
	router := newTestRouter(t, 100)

	for _, url := range []string{"/sieve?upper=0", "/sieve?upper=1"} {
		w := doGet(router, url)
		require.Equal(t, http.StatusOK, w.Code, url)

		var body response.SieveRange
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 0, body.Count, url)
		assert.NotNil(t, body.Values, "values must serialize as [], not null")
	}
}

func TestQuery_BadRequests(t *testing.T) {
	router := newTestRouter(t, 100)

	cases := map[string]string{
		"upper above max bound": "/sieve?lower=0&upper=101",
		"lower above upper":     "/sieve?lower=10&upper=5",
		"missing upper":         "/sieve?lower=0",
		"negative lower":        "/sieve?lower=-1&upper=10",
		"non-numeric upper":     "/sieve?upper=banana",
		"malformed domain":      "/sieve?domain=no%20spaces&upper=10",
	}
	for name, url := range cases {
		w := doGet(router, url)
		require.Equal(t, http.StatusBadRequest, w.Code, name)

		var body ResponseError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), name)
		assert.Equal(t, KindInvalidBound, body.Kind, name)
		assert.NotEmpty(t, body.Message, name)
	}
}

func TestQuery_UnknownDomain(t *testing.T) {
	router := newTestRouter(t, 100)

	w := doGet(router, "/sieve?domain=mersenne&upper=10")
	require.Equal(t, http.StatusNotFound, w.Code)

	var body ResponseError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, KindUnknownDomain, body.Kind)
}

func TestQuery_CustomFilterDomain(t *testing.T) {
	router := newTestRouter(t, 100)

	w := doGet(router, "/sieve?domain=odds&lower=0&upper=9")
	require.Equal(t, http.StatusOK, w.Code)

	var body response.SieveRange
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []uint64{1, 3, 5, 7, 9}, body.Values)
}

func TestDomains_ListsConfiguredFilters(t *testing.T) {
	router := newTestRouter(t, 100)

	w := doGet(router, "/domains")
	require.Equal(t, http.StatusOK, w.Code)

	var body response.DomainList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "odds", body.Domains[0].Name)
	assert.Equal(t, "primes", body.Domains[1].Name)
}

func TestStats_AfterQuery(t *testing.T) {
	router := newTestRouter(t, 100)

	doGet(router, "/sieve?upper=50")
	w := doGet(router, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats []domain.DomainStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, uint64(50), stats[0].Bound)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, 100)

	w := doGet(router, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

// timeoutUsecase always reports a computation timeout.
type timeoutUsecase struct{}

func (timeoutUsecase) Query(ctx context.Context, key string, r domain.Range) (domain.RangeResult, error) {
	return domain.RangeResult{}, domain.ErrComputationTimeout
}
func (timeoutUsecase) Domains(ctx context.Context) []domain.FilterDomain { return nil }
func (timeoutUsecase) Stats(ctx context.Context) []domain.DomainStats    { return nil }

func TestQuery_TimeoutIsGatewayTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	request.RegisterValidations()

	router := gin.New()
	router.GET("/sieve", NewSieveHandler(timeoutUsecase{}).Query)

	w := doGet(router, "/sieve?upper=10")
	require.Equal(t, http.StatusGatewayTimeout, w.Code)

	var body ResponseError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, KindTimeout, body.Kind)
}
