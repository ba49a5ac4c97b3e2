// Package imeicheck calls the external device verification service.
package imeicheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DeviceRecord is the property set the verification service returns for a
// valid device. Keys vary by service plan, so it stays schemaless.
type DeviceRecord map[string]any

// Client performs a single verification attempt. Implementations are
// stateless; retry orchestration belongs to the calling front-end, not here.
type Client interface {
	Check(ctx context.Context, imei string, serviceID int) (DeviceRecord, error)
}

// HTTPClient talks to an imeicheck.net-compatible endpoint with a bearer
// credential. The caller is expected to have validated the IMEI already;
// the client does not re-validate.
type HTTPClient struct {
	endpoint string
	token    string
	httpc    *http.Client
	tracer   trace.Tracer
}

func NewHTTPClient(endpoint, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		token:    token,
		httpc:    &http.Client{Timeout: timeout},
		tracer:   otel.Tracer("imeigate/imeicheck"),
	}
}

type checkRequest struct {
	DeviceID  string `json:"deviceId"`
	ServiceID int    `json:"serviceId"`
}

type checkResponse struct {
	Status     string       `json:"status"`
	Properties DeviceRecord `json:"properties"`
}

func (c *HTTPClient) Check(ctx context.Context, imei string, serviceID int) (DeviceRecord, error) {
	ctx, span := c.tracer.Start(ctx, "imeicheck.Check")
	defer span.End()

	body, err := json.Marshal(checkRequest{DeviceID: imei, ServiceID: serviceID})
	if err != nil {
		return nil, fmt.Errorf("marshal check request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		netErr := &NetworkError{Err: err}
		span.RecordError(netErr)
		return nil, netErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		tErr := &TransportError{StatusCode: resp.StatusCode, Body: string(raw)}
		span.RecordError(tErr)
		return nil, tErr
	}

	var parsed checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode check response: %w", err)
	}
	if parsed.Status != "successful" {
		rErr := &ServiceRejectedError{Status: parsed.Status}
		span.RecordError(rErr)
		return nil, rErr
	}
	return parsed.Properties, nil
}
