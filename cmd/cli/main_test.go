package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func TestTransferBody(t *testing.T) {
	body := transferBody("acc-b", "200", "lunch", "")
	if body["receiver_id"] != "acc-b" || body["amount"] != "200" || body["description"] != "lunch" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["edit_transaction_id"]; ok {
		t.Fatal("edit_transaction_id should be omitted for plain transfers")
	}

	body = transferBody("acc-b", "150", "", "txn-1")
	if body["edit_transaction_id"] != "txn-1" {
		t.Fatalf("expected edit target, got %v", body)
	}
	if _, ok := body["description"]; ok {
		t.Fatal("empty description should be omitted")
	}
}

func TestPrintJSON(t *testing.T) {
	out := captureOutput(t, func() {
		printJSON([]byte(`{"a":1}`))
	})

	expected := "{\n  \"a\": 1\n}\n"
	if out != expected {
		t.Fatalf("unexpected json output:\n%s", out)
	}

	out = captureOutput(t, func() {
		printJSON([]byte("not json"))
	})
	if out != "not json\n" {
		t.Fatalf("expected raw fallback, got %q", out)
	}
}

func TestAPIRequestSendsToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	origURL, origToken := baseURL, token
	defer func() { baseURL, token = origURL, origToken }()
	baseURL = server.URL
	token = "test-token"

	captureOutput(t, func() {
		if err := apiRequest(http.MethodGet, "/api/v1/me", nil); err != nil {
			t.Errorf("request failed: %v", err)
		}
	})

	if gotAuth != "Bearer test-token" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
}

func TestAPIRequestErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"insufficient balance"}`))
	}))
	defer server.Close()

	origURL := baseURL
	defer func() { baseURL = origURL }()
	baseURL = server.URL

	captureOutput(t, func() {
		if err := apiRequest(http.MethodPost, "/api/v1/transfers", map[string]string{}); err == nil {
			t.Error("expected error for 4xx status")
		}
	})
}
