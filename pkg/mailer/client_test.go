package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Gabinete <contato@gabinete.example>", payload["from"])
		assert.Equal(t, []interface{}{"ana@example.com"}, payload["to"])
		assert.Equal(t, "Confirmação de cadastro", payload["subject"])

		w.Write([]byte(`{"id": "49a3999c-0ce1-4ea6-ab68"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		FromEmail: "contato@gabinete.example",
		FromName:  "Gabinete",
	})

	resp, err := client.Send(context.Background(), "ana@example.com", "Confirmação de cadastro", "<p>Olá Ana</p>")
	require.NoError(t, err)
	assert.Equal(t, "49a3999c-0ce1-4ea6-ab68", resp.ID)
}

func TestSend_NoFromName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "contato@gabinete.example", payload["from"])
		w.Write([]byte(`{"id": "abc"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "k", FromEmail: "contato@gabinete.example"})
	_, err := client.Send(context.Background(), "ana@example.com", "Olá", "<p>Olá</p>")
	require.NoError(t, err)
}

func TestSend_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "Invalid recipient"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "k", FromEmail: "c@g.example"})
	_, err := client.Send(context.Background(), "not-an-email", "Olá", "<p>Olá</p>")
	assert.Error(t, err)
}
