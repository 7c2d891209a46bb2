package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ngsilink/iotagent-core/internal/device"
	"github.com/ngsilink/iotagent-core/internal/ngsi"
)

// registerContextPath is the NGSI9 context availability endpoint.
const registerContextPath = "/NGSI9/registerContext"

// defaultRequestTimeout bounds a single broker call.
const defaultRequestTimeout = 10 * time.Second

// Client is the outbound NGSI9 HTTP client. Every call carries the
// tenant's fiware-service / fiware-servicepath headers; the client itself
// holds no tenant state.
type Client struct {
	http *resty.Client
}

// NewClient creates a broker client for the given base URL
// (e.g. "http://orion:1026").
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient}
}

// RegisterContext sends a context availability declaration (or renewal, when
// req carries a registrationId) to the broker on behalf of the tenant.
func (c *Client) RegisterContext(ctx context.Context, tenant device.Tenant, req ngsi.RegisterContextRequest) (*ngsi.RegisterContextResponse, error) {
	var out ngsi.RegisterContextResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("fiware-service", tenant.Service).
		SetHeader("fiware-servicepath", tenant.Subservice).
		SetBody(req).
		SetResult(&out).
		Post(registerContextPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnreachable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrBrokerRejected, resp.StatusCode())
	}
	if out.ErrorCode != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrBrokerRejected, out.ErrorCode.Code, out.ErrorCode.ReasonPhrase)
	}
	if out.RegistrationID == "" {
		return nil, fmt.Errorf("%w: response carries no registrationId", ErrBrokerRejected)
	}
	return &out, nil
}
