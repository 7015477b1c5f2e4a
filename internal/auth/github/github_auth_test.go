package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/copilot-cli/copilot-cli/internal/auth"
)

// newTestClient builds a client pointed at the given endpoints with a recording sleep
// and a clock that advances by each sleep's duration.
func newTestClient(deviceCodeURL, tokenURL string) (*DeviceFlowClient, *[]time.Duration) {
	sleeps := &[]time.Duration{}
	now := time.Unix(1700000000, 0)
	c := &DeviceFlowClient{
		httpClient:    &http.Client{},
		clientID:      "test-client",
		scope:         "read:user",
		userAgent:     "test-agent",
		deviceCodeURL: deviceCodeURL,
		tokenURL:      tokenURL,
		flowID:        "test-flow",
	}
	c.now = func() time.Time { return now }
	c.sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
		now = now.Add(d)
	}
	return c, sleeps
}

func deviceCodeHandler(t *testing.T, fields map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fields)
	}
}

func TestRequestDeviceCodeFieldValidation(t *testing.T) {
	t.Parallel()

	complete := map[string]any{
		"device_code":      "dev-123",
		"user_code":        "ABCD-1234",
		"verification_uri": "https://github.com/login/device",
		"interval":         5,
		"expires_in":       900,
	}

	tests := []struct {
		name    string
		drop    string
		wantErr bool
	}{
		{"complete response", "", false},
		{"missing device_code", "device_code", true},
		{"missing user_code", "user_code", true},
		{"missing verification_uri", "verification_uri", true},
		{"missing interval", "interval", true},
		{"missing expires_in", "expires_in", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fields := make(map[string]any, len(complete))
			for k, v := range complete {
				if k != tt.drop {
					fields[k] = v
				}
			}
			srv := httptest.NewServer(deviceCodeHandler(t, fields))
			defer srv.Close()

			c, _ := newTestClient(srv.URL, srv.URL)
			got, err := c.RequestDeviceCode(context.Background())

			if tt.wantErr {
				if !auth.IsCode(err, auth.ErrProtocol) {
					t.Fatalf("expected protocol error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.DeviceCode != "dev-123" || got.UserCode != "ABCD-1234" {
				t.Errorf("unexpected device authorization: %+v", got)
			}
			if got.Interval != 5 || got.ExpiresIn != 900 {
				t.Errorf("unexpected interval/expiry: %+v", got)
			}
		})
	}
}

func TestRequestDeviceCodeNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, srv.URL)
	_, err := c.RequestDeviceCode(context.Background())
	if !auth.IsCode(err, auth.ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

// pollServer answers the token endpoint with each scripted body in turn, repeating the
// last one once the script runs out.
func pollServer(t *testing.T, bodies []string) (*httptest.Server, *int) {
	t.Helper()
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := attempts
		if idx >= len(bodies) {
			idx = len(bodies) - 1
		}
		attempts++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(bodies[idx]))
	}))
	return srv, &attempts
}

func TestPollForTokenPendingThenSuccess(t *testing.T) {
	t.Parallel()

	pending := `{"error":"authorization_pending"}`
	srv, attempts := pollServer(t, []string{pending, pending, pending, `{"access_token":"gho_abc"}`})
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL, srv.URL)
	token, err := c.PollForToken(context.Background(), &DeviceAuthorization{
		DeviceCode: "dev-123",
		Interval:   5,
		ExpiresIn:  900,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Reveal() != "gho_abc" {
		t.Errorf("unexpected token %q", token.Reveal())
	}
	if *attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", *attempts)
	}
	if len(*sleeps) != 3 {
		t.Fatalf("expected exactly 3 sleeps, got %d", len(*sleeps))
	}
	for i, d := range *sleeps {
		if d != 5*time.Second {
			t.Errorf("sleep %d: expected 5s, got %v", i, d)
		}
	}
}

func TestPollForTokenSlowDown(t *testing.T) {
	t.Parallel()

	srv, _ := pollServer(t, []string{
		`{"error":"authorization_pending"}`,
		`{"error":"slow_down"}`,
		`{"error":"authorization_pending"}`,
		`{"access_token":"gho_abc"}`,
	})
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL, srv.URL)
	_, err := c.PollForToken(context.Background(), &DeviceAuthorization{
		DeviceCode: "dev-123",
		Interval:   5,
		ExpiresIn:  900,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second, 10 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), *sleeps)
	}
	for i, d := range *sleeps {
		if d != want[i] {
			t.Errorf("sleep %d: expected %v, got %v", i, want[i], d)
		}
	}
}

func TestPollForTokenTerminalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode auth.ErrorCode
	}{
		{"expired_token", `{"error":"expired_token"}`, auth.ErrAuthExpired},
		{"access_denied", `{"error":"access_denied"}`, auth.ErrAuthDenied},
		{"unrecognized code", `{"error":"shrug","error_description":"what"}`, auth.ErrProtocol},
		{"no token no error", `{}`, auth.ErrProtocol},
		{"malformed body", `{{{`, auth.ErrProtocol},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, attempts := pollServer(t, []string{tt.body})
			defer srv.Close()

			c, sleeps := newTestClient(srv.URL, srv.URL)
			_, err := c.PollForToken(context.Background(), &DeviceAuthorization{
				DeviceCode: "dev-123",
				Interval:   5,
				ExpiresIn:  900,
			})
			if !auth.IsCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if *attempts != 1 {
				t.Errorf("expected a single attempt, got %d", *attempts)
			}
			if len(*sleeps) != 0 {
				t.Errorf("expected no sleeps, got %v", *sleeps)
			}
		})
	}
}

func TestPollForTokenExpiryBound(t *testing.T) {
	t.Parallel()

	srv, attempts := pollServer(t, []string{`{"error":"authorization_pending"}`})
	defer srv.Close()

	c, _ := newTestClient(srv.URL, srv.URL)
	_, err := c.PollForToken(context.Background(), &DeviceAuthorization{
		DeviceCode: "dev-123",
		Interval:   5,
		ExpiresIn:  15,
	})
	if !auth.IsCode(err, auth.ErrAuthExpired) {
		t.Fatalf("expected auth_expired, got %v", err)
	}
	// ceil(15/5) = 3 attempts at most.
	if *attempts > 3 {
		t.Errorf("expected at most 3 attempts, got %d", *attempts)
	}
}
