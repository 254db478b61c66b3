package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
	}))
	defer srv.Close()

	client, err := New(Config{
		APIURL:     srv.URL,
		Username:   "acct",
		Password:   "pw",
		Sender:     "GSMB",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := client.Send(context.Background(), "0712345678", "Your OTP code is 123456"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := map[string]string{
		"username": "acct",
		"password": "pw",
		"src":      "GSMB",
		"dst":      "0712345678",
		"msg":      "Your OTP code is 123456",
	}
	for k, v := range want {
		if query[k] != v {
			t.Errorf("%s = %q, want %q", k, query[k], v)
		}
	}
}

func TestSendGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid destination"))
	}))
	defer srv.Close()

	client, err := New(Config{APIURL: srv.URL, Username: "a", Password: "b", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = client.Send(context.Background(), "000", "msg")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "failed to send message: invalid destination" {
		t.Fatalf("error = %q", got)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{APIURL: "http://example.com"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
