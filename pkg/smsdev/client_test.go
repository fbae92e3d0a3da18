package smsdev

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"already national", "11987654321", "11987654321", false},
		{"with country code", "5511987654321", "11987654321", false},
		{"formatted", "+55 (11) 98765-4321", "11987654321", false},
		{"legacy without ninth digit", "1187654321", "11987654321", false},
		{"country code and legacy", "551187654321", "11987654321", false},
		{"too short", "87654321", "", true},
		{"too long", "119876543210", "", true},
		{"empty", "", "", true},
		{"letters only", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/send", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "9", q.Get("type"))
		assert.Equal(t, "11987654321", q.Get("number"))
		assert.Equal(t, "Olá Ana, tudo bem?", q.Get("msg"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"situacao":"OK","codigo":"1","id":"123","descricao":"MESSAGE QUEUED"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "test-key"})
	resp, err := client.Send(context.Background(), "5511987654321", "Olá Ana, tudo bem?")
	require.NoError(t, err)
	assert.Equal(t, SituationOK, resp.Situacao)
	assert.Equal(t, "123", resp.ID)
}

func TestSend_ProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"situacao":"ERRO","codigo":"400","descricao":"INVALID KEY"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "bad-key"})
	resp, err := client.Send(context.Background(), "11987654321", "Olá")
	require.NoError(t, err)
	assert.Equal(t, SituationError, resp.Situacao)
	assert.Equal(t, "INVALID KEY", resp.Descricao)
}

func TestSend_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "k"})
	_, err := client.Send(context.Background(), "11987654321", "Olá")
	assert.Error(t, err)
}

func TestSend_InvalidPhoneSkipsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "k"})
	_, err := client.Send(context.Background(), "123", "Olá")
	assert.Error(t, err)
	assert.False(t, called)
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/dlr", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "status", q.Get("action"))
		assert.Equal(t, "123", q.Get("id"))

		w.Write([]byte(`{"situacao":"ENTREGUE","id":"123","descricao":"DELIVERED"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "k"})
	resp, err := client.GetStatus(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, SituationDelivered, resp.Situacao)
}
