package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSetWebhookPostsEndpoint(t *testing.T) {
	var path string
	var params map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&params)
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	err := SetWebhook(context.Background(), WebhookOptions{
		Token:       "123:abc",
		APIURL:      srv.URL,
		PublicURL:   "https://bot.example.com/hook",
		SecretToken: "s3cret",
		Client:      srv.Client(),
	})
	if err != nil {
		t.Fatalf("SetWebhook: %v", err)
	}
	if path != "/bot123:abc/setWebhook" {
		t.Fatalf("path = %q", path)
	}
	if params["url"] != "https://bot.example.com/hook" || params["secret_token"] != "s3cret" {
		t.Fatalf("params = %v", params)
	}
}

func TestSetWebhookErrorIsRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	err := SetWebhook(context.Background(), WebhookOptions{
		Token:     "123456:SECRETTOKEN",
		APIURL:    srv.URL,
		PublicURL: "https://bot.example.com/hook",
		Client:    srv.Client(),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "SECRETTOKEN") {
		t.Fatalf("token leaked: %v", err)
	}
}

func TestSetWebhookRequiresURLAndToken(t *testing.T) {
	if err := SetWebhook(context.Background(), WebhookOptions{Token: "1:a"}); err == nil {
		t.Fatal("expected missing url error")
	}
	if err := DeleteWebhook(context.Background(), WebhookOptions{}); err == nil {
		t.Fatal("expected missing token error")
	}
}

func TestDeleteWebhook(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	if err := DeleteWebhook(context.Background(), WebhookOptions{Token: "1:a", APIURL: srv.URL, Client: srv.Client()}); err != nil {
		t.Fatalf("DeleteWebhook: %v", err)
	}
	if path != "/bot1:a/deleteWebhook" {
		t.Fatalf("path = %q", path)
	}
}
