package adapter

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64url(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func TestMailClientListMessageIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, "/users/me/messages", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("q"), "after:")

		if r.URL.Query().Get("pageToken") == "page-2" {
			_, _ = w.Write([]byte(`{"messages": [{"id": "m3"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"messages": [{"id": "m1"}, {"id": "m2"}], "nextPageToken": "page-2"}`))
	}))
	defer server.Close()

	client := NewMailClient(server.URL)
	after := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ids, err := client.ListMessageIDs(context.Background(), "at-1", "from:amazon.co.uk", after, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
}

func TestMailClientListRespectsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages": [{"id": "m1"}, {"id": "m2"}, {"id": "m3"}], "nextPageToken": "more"}`))
	}))
	defer server.Close()

	client := NewMailClient(server.URL)
	ids, err := client.ListMessageIDs(context.Background(), "at-1", "", time.Time{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids)
}

func TestMailClientGetMessage(t *testing.T) {
	plainBody := "Your order has shipped.\nTracking number: 1Z999AA10123456784"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages/m1", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))

		fmt.Fprintf(w, `{
			"id": "m1",
			"internalDate": "1750410000000",
			"payload": {
				"mimeType": "multipart/alternative",
				"headers": [
					{"name": "From", "value": "\"Amazon.co.uk\" <order-update@amazon.co.uk>"},
					{"name": "Subject", "value": "Your order has been dispatched"}
				],
				"body": {"data": ""},
				"parts": [
					{"mimeType": "text/plain", "body": {"data": %q}},
					{"mimeType": "text/html", "body": {"data": %q}}
				]
			}
		}`, b64url(plainBody), b64url("<p>html version</p>"))
	}))
	defer server.Close()

	client := NewMailClient(server.URL)
	msg, err := client.GetMessage(context.Background(), "at-1", "m1")
	require.NoError(t, err)

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, `"Amazon.co.uk" <order-update@amazon.co.uk>`, msg.From)
	assert.Equal(t, "Your order has been dispatched", msg.Subject)
	assert.Equal(t, time.UnixMilli(1750410000000).UTC(), msg.ReceivedAt)
	// plain text wins over the html alternative
	assert.Contains(t, msg.Body, "1Z999AA10123456784")
	assert.NotContains(t, msg.Body, "<p>")
}

func TestMailClientHTMLFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"id": "m2",
			"internalDate": "1750410000000",
			"payload": {
				"mimeType": "text/html",
				"headers": [],
				"body": {"data": %q}
			}
		}`, b64url("<b>Total: £9.99</b>"))
	}))
	defer server.Close()

	client := NewMailClient(server.URL)
	msg, err := client.GetMessage(context.Background(), "at-1", "m2")
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Total")
}

func TestMailClientRejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewMailClient(server.URL)
	_, err := client.GetMessage(context.Background(), "stale-token", "m1")
	require.Error(t, err)

	_, err = client.GetMessage(context.Background(), "", "m1")
	require.Error(t, err)
}
