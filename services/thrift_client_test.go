package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStoresDecodesPayloads(t *testing.T) {
	bodies := map[string]string{
		"array": `[
			{"storeName":"Hospice Shop","address":"1 Main Rd","location":{"lat":-26.19,"lng":"28.03"}},
			{"storeName":"No coords","location":{"lat":null,"lng":"n/a"}}
		]`,
		"stores": `{"stores":[{"storeName":"Hospice Shop","location":{"lat":"-26.19","lng":28.03}}]}`,
		"data":   `{"data":[{"storeName":"Hospice Shop","location":{"lat":-26.19,"lng":28.03}}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/external/stores", r.URL.Path)
				assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			stores, err := NewThriftClient(srv.URL, "secret", time.Second).FetchStores(context.Background())
			require.NoError(t, err)
			require.NotEmpty(t, stores)
			first := stores[0]
			assert.Equal(t, "Hospice Shop", first.StoreName)
			assert.True(t, first.Location.Lat.Valid)
			assert.InDelta(t, -26.19, first.Location.Lat.Value, 1e-9)
			assert.InDelta(t, 28.03, first.Location.Lng.Value, 1e-9)

			if name == "array" {
				require.Len(t, stores, 2)
				require.NotNil(t, stores[0].Address)
				assert.Equal(t, "1 Main Rd", *stores[0].Address)
				assert.False(t, stores[1].Location.Lat.Valid)
				assert.False(t, stores[1].Location.Lng.Valid)
			}
		})
	}
}

func TestFetchStoresUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewThriftClient(srv.URL, "", time.Second).FetchStores(context.Background())
	se := requireKind(t, err, KindUpstream)
	assert.Equal(t, http.StatusServiceUnavailable, se.UpstreamStatus)
	assert.Equal(t, http.StatusInternalServerError, se.HTTPStatus())
	assert.Contains(t, se.Message, "down for maintenance")
}

func TestFetchStoresTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewThriftClient(srv.URL, "", 50*time.Millisecond).FetchStores(context.Background())
	se := requireKind(t, err, KindUpstream)
	assert.Equal(t, http.StatusGatewayTimeout, se.HTTPStatus())
}

func TestFetchStoresRejectsBadConfig(t *testing.T) {
	_, err := NewThriftClient("", "", time.Second).FetchStores(context.Background())
	require.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()
	_, err = NewThriftClient(srv.URL, "", time.Second).FetchStores(context.Background())
	requireKind(t, err, KindUpstream)
}
