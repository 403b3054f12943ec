package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-state/internal/api"
	"github.com/fairyhunter13/storefront-state/internal/model"
)

func newCatalog(t *testing.T, h http.HandlerFunc) *api.CatalogClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL + "/hw/store")
	require.NoError(t, err)
	return api.NewCatalogClient(c)
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := api.NewClient("")
	require.Error(t, err)
	_, err = api.NewClient("/relative/only")
	require.Error(t, err)
	_, err = api.NewClient("http://localhost:3000/hw/store/")
	require.NoError(t, err)
}

func TestFetchProducts_PreservesServerOrder(t *testing.T) {
	var gotPath, gotReqID string
	cc := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotReqID = r.Header.Get("X-Request-Id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":123,"name":"qqq","price":999},{"id":7,"name":"eee","price":1}]`)
	})

	products, err := cc.FetchProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/hw/store/api/products", gotPath)
	assert.NotEmpty(t, gotReqID)
	assert.Equal(t, []model.Product{
		{ID: 123, Name: "qqq", Price: 999},
		{ID: 7, Name: "eee", Price: 1},
	}, products)
}

func TestFetchProducts_OversizedBodyIsRejected(t *testing.T) {
	cc := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "[")
		_, _ = io.WriteString(w, strings.Repeat(" ", 4<<20))
		_, _ = io.WriteString(w, "]")
	})
	_, err := cc.FetchProducts(context.Background())
	require.ErrorIs(t, err, api.ErrResponseTooLarge)
	var te *api.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusOK, te.StatusCode)
}

func TestFetchProducts_EmptyListIsNotAnError(t *testing.T) {
	cc := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	products, err := cc.FetchProducts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestFetchProducts_Errors(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		wantParse bool
	}{
		{"server_error", http.StatusInternalServerError, `boom`, false},
		{"bad_gateway", http.StatusBadGateway, ``, false},
		{"malformed_json", http.StatusOK, `[{"id":1,`, true},
		{"not_an_array", http.StatusOK, `{"id":1}`, true},
		{"null_body", http.StatusOK, `null`, true},
		{"wrong_field_type", http.StatusOK, `[{"id":"x","name":"a","price":1}]`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cc := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := cc.FetchProducts(context.Background())
			require.Error(t, err)
			var pe *api.ParseError
			var te *api.TransportError
			if tc.wantParse {
				require.True(t, errors.As(err, &pe), "expected ParseError, got %T", err)
			} else {
				require.True(t, errors.As(err, &te), "expected TransportError, got %T", err)
				assert.Equal(t, tc.status, te.StatusCode)
			}
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestFetchProducts_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c, err := api.NewClient(url)
	require.NoError(t, err)
	_, err = api.NewCatalogClient(c).FetchProducts(context.Background())
	var te *api.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
}

func TestFetchProduct(t *testing.T) {
	cc := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hw/store/api/products/5":
			_ = json.NewEncoder(w).Encode(model.ProductDetails{ID: 5, Name: "Towel", Price: 12, Color: "red", Material: "cotton"})
		case "/hw/store/api/products/6":
			_ = json.NewEncoder(w).Encode(model.ProductDetails{ID: 60, Name: "Other"})
		default:
			http.NotFound(w, r)
		}
	})

	p, err := cc.FetchProduct(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Towel", p.Name)
	assert.Equal(t, model.Product{ID: 5, Name: "Towel", Price: 12}, p.Short())

	_, err = cc.FetchProduct(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNotFound))

	_, err = cc.FetchProduct(context.Background(), 6)
	var pe *api.ParseError
	require.ErrorAs(t, err, &pe)
	assert.False(t, errors.Is(err, api.ErrNotFound))
}

func TestFetchProducts_ContextCanceled(t *testing.T) {
	cc := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cc.FetchProducts(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
