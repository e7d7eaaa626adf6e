package search_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/data/search"
	"github.com/ncobase/querybridge/data/search/searchtest"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponseError_ParsesEngineError(t *testing.T) {
	body := []byte(`{"error":{"root_cause":[{"type":"query_shard_exception","reason":"bad field"}],"type":"search_phase_execution_exception","reason":"all shards failed"},"status":400}`)
	err := search.NewResponseError(search.Elasticsearch, http.StatusBadRequest, body)

	var te *search.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "search_phase_execution_exception", te.Class)
	assert.Equal(t, "all shards failed", te.Reason)
	assert.False(t, te.IsServerSide())
	assert.Contains(t, te.Error(), "[400]")
}

func TestNewResponseError_NotFoundWithoutEnvelope(t *testing.T) {
	err := search.NewResponseError(search.OpenSearch, http.StatusNotFound, []byte(`{"_index":"users","_id":"1","found":false}`))

	var te *search.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.IsNotFound())
	assert.Equal(t, "not_found", te.Class)
}

func TestNewResponseError_StringError(t *testing.T) {
	err := search.NewResponseError(search.OpenSearch, http.StatusBadGateway, []byte(`{"error":"upstream down","status":502}`))

	var te *search.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "upstream down", te.Reason)
	assert.Equal(t, "http_502", te.Class)
	assert.True(t, te.IsServerSide())
}

func TestNewResponseError_Success(t *testing.T) {
	assert.NoError(t, search.NewResponseError(search.OpenSearch, http.StatusCreated, nil))
}

func TestNewRequestError_KeepsCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := search.NewRequestError(search.Elasticsearch, cause)

	var te *search.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Same(t, err, search.NewRequestError(search.Elasticsearch, err))
}

func TestBreakerTransport_TripsOnServerErrors(t *testing.T) {
	tr := searchtest.New(search.OpenSearch)
	tr.On(searchtest.MethodSearch, func(searchtest.Call) (*search.Response, error) {
		return tr.Respond(http.StatusServiceUnavailable, map[string]any{"error": "unavailable"})
	})

	b := search.NewBreakerTransport(tr, &config.Breaker{MaxRequests: 1, FailureRatio: 0.5, MinRequests: 3})
	for i := 0; i < 3; i++ {
		_, err := b.Search(context.Background(), "users", []byte(`{}`))
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Search(context.Background(), "users", []byte(`{}`))
	var te *search.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "circuit_open", te.Class)
	assert.True(t, errors.Is(err, search.ErrNoEngineAvailable))
	assert.Len(t, tr.Calls(searchtest.MethodSearch), 3, "open breaker must not reach the engine")
}

func TestBreakerTransport_IgnoresClientErrors(t *testing.T) {
	tr := searchtest.New(search.Elasticsearch)
	tr.On(searchtest.MethodSearch, func(searchtest.Call) (*search.Response, error) {
		return tr.Respond(http.StatusBadRequest, map[string]any{"error": map[string]any{"type": "parsing_exception"}})
	})

	b := search.NewBreakerTransport(tr, &config.Breaker{MaxRequests: 1, FailureRatio: 0.5, MinRequests: 2})
	for i := 0; i < 5; i++ {
		resp, err := b.Search(context.Background(), "users", []byte(`{}`))
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerTransport_IndexExists(t *testing.T) {
	tr := searchtest.New(search.Elasticsearch)
	tr.Reply(searchtest.MethodIndexExists, http.StatusNotFound, "")

	b := search.NewBreakerTransport(tr, nil)
	ok, err := b.IndexExists(context.Background(), "users")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.IndexExists(context.Background(), "users")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewTransport_Registry(t *testing.T) {
	fake := searchtest.New(search.Engine("fake"))
	search.RegisterTransportFactory("fake", func(*config.Search) (search.Transport, error) {
		return fake, nil
	})

	tr, err := search.NewTransport(&config.Search{Engine: "fake"})
	require.NoError(t, err)
	assert.Same(t, fake, tr)

	tr, err = search.NewTransport(&config.Search{Engine: "fake", Breaker: &config.Breaker{Enabled: true, MaxRequests: 1}})
	require.NoError(t, err)
	assert.IsType(t, &search.BreakerTransport{}, tr)

	_, err = search.NewTransport(&config.Search{Engine: "missing"})
	assert.ErrorIs(t, err, search.ErrEngineNotFound)
	assert.Contains(t, search.GetRegisteredEngines(), search.Engine("fake"))
}
