package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	var received lookupRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(lookupResponse{Profiles: []Profile{
			{Address: "0xAA", Name: "alice", Message: "gm"},
		}})
	}))
	defer server.Close()

	client := NewClient(server.URL, 64, nil)
	profiles, err := client.Lookup(context.Background(), []string{"0xaa", "0xbb"})
	require.NoError(t, err)

	assert.Equal(t, []string{"0xaa", "0xbb"}, received.Addresses)
	require.Contains(t, profiles, "0xaa")
	assert.Equal(t, "alice", profiles["0xaa"].Name)
	assert.Equal(t, "gm", profiles["0xaa"].Message)
}

func TestLookupTruncatesBatch(t *testing.T) {
	var received lookupRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(lookupResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, 2, nil)
	_, err := client.Lookup(context.Background(), []string{"0xa", "0xb", "0xc"})
	require.NoError(t, err)
	assert.Len(t, received.Addresses, 2)
}

func TestLookupDisabled(t *testing.T) {
	client := NewClient("", 64, nil)
	profiles, err := client.Lookup(context.Background(), []string{"0xa"})
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestLookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 64, nil)
	_, err := client.Lookup(context.Background(), []string{"0xa"})
	assert.Error(t, err)
}
