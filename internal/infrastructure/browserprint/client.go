// Package browserprint is the anti-corruption layer for the Zebra Browser
// Print bridge, the local agent that exposes USB/network Zebra printers over
// HTTP on the operator's workstation.
package browserprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is where the bridge listens on a standard install.
const DefaultBaseURL = "http://localhost:9100"

// Errors surfaced to callers. WriteError carries the bridge's own message.
var (
	ErrNoServiceRunning = errors.New("browser print service is not running")
	ErrNoPrinterFound   = errors.New("no printer found")
)

// WriteError is returned when the bridge rejects a document.
type WriteError struct {
	StatusCode int
	Body       string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("printer write rejected: status %d: %s", e.StatusCode, e.Body)
}

// Printer mirrors the bridge's device descriptor. The full descriptor must
// be echoed back verbatim on write requests.
type Printer struct {
	DeviceType   string `json:"deviceType"`
	UID          string `json:"uid"`
	Provider     string `json:"provider"`
	Name         string `json:"name"`
	Connection   string `json:"connection"`
	Version      int    `json:"version"`
	Manufacturer string `json:"manufacturer"`
}

type availableResponse struct {
	Printer []Printer `json:"printer"`
}

type writeRequest struct {
	Device Printer `json:"device"`
	Data   string  `json:"data"`
}

// Client talks to a Browser Print bridge instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a bridge client. An empty baseURL selects the standard
// local install.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Available lists the printers the bridge currently sees.
func (c *Client) Available(ctx context.Context) ([]Printer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/available", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrNoServiceRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("browser print returned status %d", resp.StatusCode)
	}

	var payload availableResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode printer list: %w", err)
	}
	return payload.Printer, nil
}

// IsServiceAvailable probes the bridge without caring about printers.
func (c *Client) IsServiceAvailable(ctx context.Context) bool {
	_, err := c.Available(ctx)
	return !errors.Is(err, ErrNoServiceRunning)
}

// DiscoverPrinter returns the bridge's default printer: the first device it
// reports. ErrNoServiceRunning when the bridge is down, ErrNoPrinterFound
// when it is up but sees no device.
func (c *Client) DiscoverPrinter(ctx context.Context) (Printer, error) {
	printers, err := c.Available(ctx)
	if err != nil {
		return Printer{}, err
	}
	if len(printers) == 0 {
		return Printer{}, ErrNoPrinterFound
	}
	return printers[0], nil
}

// SendDocument submits a ZPL document to the given printer. The bridge
// expects a text/plain content type even though the body is JSON.
func (c *Client) SendDocument(ctx context.Context, printer Printer, document string) error {
	body, err := json.Marshal(writeRequest{Device: printer, Data: document})
	if err != nil {
		return fmt.Errorf("failed to encode write request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/write", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrNoServiceRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return &WriteError{StatusCode: resp.StatusCode, Body: string(text)}
	}
	return nil
}
