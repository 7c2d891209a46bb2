package registration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ngsilink/iotagent-core/internal/ngsi"
)

func registrationRequest() ngsi.RegisterContextRequest {
	return ngsi.RegisterContextRequest{
		ContextRegistrations: []ngsi.ContextRegistration{{
			Entities: []ngsi.EntityRef{{Type: "Light", IsPattern: "false", ID: "light1"}},
			Attributes: []ngsi.RegistrationAttribute{
				{Name: "temperature", Type: "centigrades", IsDomain: "false"},
			},
			ProvidingApplication: "http://localhost:4041",
		}},
		Duration: "P1M",
	}
}

func TestClientRegisterContext(t *testing.T) {
	var gotPath, gotService, gotServicePath string
	var gotBody ngsi.RegisterContextRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotService = r.Header.Get("fiware-service")
		gotServicePath = r.Header.Get("fiware-servicepath")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ngsi.RegisterContextResponse{ //nolint:errcheck
			RegistrationID: "6319a7f5254b05844321de17",
			Duration:       "P1M",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	resp, err := c.RegisterContext(context.Background(), testTenant, registrationRequest())
	if err != nil {
		t.Fatalf("RegisterContext() error: %v", err)
	}

	if resp.RegistrationID != "6319a7f5254b05844321de17" {
		t.Errorf("RegistrationID = %q", resp.RegistrationID)
	}
	if gotPath != "/NGSI9/registerContext" {
		t.Errorf("path = %q, want /NGSI9/registerContext", gotPath)
	}
	if gotService != "smartgondor" || gotServicePath != "/gardens" {
		t.Errorf("tenant headers = %q/%q", gotService, gotServicePath)
	}
	if gotBody.Duration != "P1M" || len(gotBody.ContextRegistrations) != 1 {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
}

func TestClientRegisterContextHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.RegisterContext(context.Background(), testTenant, registrationRequest()); !errors.Is(err, ErrBrokerRejected) {
		t.Errorf("RegisterContext() = %v, want ErrBrokerRejected", err)
	}
}

func TestClientRegisterContextErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ngsi.RegisterContextResponse{ //nolint:errcheck
			ErrorCode: &ngsi.StatusCode{Code: "400", ReasonPhrase: "Bad Request"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.RegisterContext(context.Background(), testTenant, registrationRequest()); !errors.Is(err, ErrBrokerRejected) {
		t.Errorf("RegisterContext() = %v, want ErrBrokerRejected", err)
	}
}

func TestClientRegisterContextMissingRegistrationID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"duration":"P1M"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.RegisterContext(context.Background(), testTenant, registrationRequest()); !errors.Is(err, ErrBrokerRejected) {
		t.Errorf("RegisterContext() = %v, want ErrBrokerRejected", err)
	}
}

func TestClientRegisterContextUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	if _, err := c.RegisterContext(context.Background(), testTenant, registrationRequest()); !errors.Is(err, ErrBrokerUnreachable) {
		t.Errorf("RegisterContext() = %v, want ErrBrokerUnreachable", err)
	}
}
