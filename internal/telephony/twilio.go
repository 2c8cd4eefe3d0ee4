package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const twilioDefaultBaseURL = "https://api.twilio.com"

// TwilioBridge places bridged calls through the Twilio REST API.
//
// Call progress comes back through voice status callbacks; the HTTP layer
// must route the provider webhook to HandleStatusCallback. No business
// logic lives here: the adapter only maps provider statuses onto the
// provider-agnostic event sink.
type TwilioBridge struct {
	accountSID string
	authToken  string
	baseURL    string

	// statusCallbackURL is the public URL Twilio posts call progress to.
	statusCallbackURL string

	httpClient *http.Client

	mu      sync.Mutex
	pending map[string]*twilioCall // by CallSid
}

type TwilioOptions struct {
	AccountSID        string
	AuthToken         string
	StatusCallbackURL string

	// BaseURL overrides the API host (tests).
	BaseURL string

	HTTPClient *http.Client
}

func NewTwilioBridge(opts TwilioOptions) (*TwilioBridge, error) {
	if opts.AccountSID == "" || opts.AuthToken == "" {
		return nil, errors.New("telephony: twilio credentials are required")
	}
	base := opts.BaseURL
	if base == "" {
		base = twilioDefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &TwilioBridge{
		accountSID:        opts.AccountSID,
		authToken:         opts.AuthToken,
		baseURL:           strings.TrimRight(base, "/"),
		statusCallbackURL: opts.StatusCallbackURL,
		httpClient:        client,
		pending:           map[string]*twilioCall{},
	}, nil
}

func (b *TwilioBridge) Name() string { return "twilio" }

func (b *TwilioBridge) Place(ctx context.Context, req PlaceRequest, sink EventSink) (ActiveCall, error) {
	form := url.Values{}
	form.Set("To", req.CalleeNumber)
	form.Set("From", req.CallerNumber)
	// Bridge the callee straight to the operator leg; Twilio needs
	// instructions for the answered call.
	form.Set("Twiml", `<Response><Pause length="3600"/></Response>`)
	if b.statusCallbackURL != "" {
		form.Set("StatusCallback", b.statusCallbackURL)
		form.Set("StatusCallbackEvent", "answered completed")
	}
	if req.Record {
		form.Set("Record", "true")
	}

	var out struct {
		Sid string `json:"sid"`
	}
	if err := b.do(ctx, http.MethodPost, b.callsPath(""), form, &out); err != nil {
		return nil, err
	}
	if out.Sid == "" {
		return nil, errors.New("telephony: twilio response missing call sid")
	}

	call := &twilioCall{bridge: b, sid: out.Sid, sink: sink}
	b.mu.Lock()
	b.pending[out.Sid] = call
	b.mu.Unlock()
	return call, nil
}

// HandleStatusCallback consumes one Twilio voice status callback.
// Unknown call sids are ignored: the session may already be gone.
func (b *TwilioBridge) HandleStatusCallback(form url.Values) {
	sid := form.Get("CallSid")
	if sid == "" {
		return
	}

	b.mu.Lock()
	call := b.pending[sid]
	b.mu.Unlock()
	if call == nil {
		return
	}

	switch form.Get("CallStatus") {
	case "in-progress", "answered":
		call.markConnected()
		call.sink.Connected()
	case "busy":
		b.forget(sid)
		call.sink.Busy()
	case "no-answer":
		b.forget(sid)
		call.sink.NoAnswer()
	case "completed":
		b.forget(sid)
		if call.wasConnected() {
			call.sink.RemoteHangup(EndInfo{RecordingURL: form.Get("RecordingUrl")})
		}
		// completed without connect means the attempt was abandoned
		// locally; the session already recorded its outcome.
	case "failed":
		b.forget(sid)
		if call.wasConnected() {
			call.sink.Dropped(EndInfo{RecordingURL: form.Get("RecordingUrl")})
		} else {
			call.sink.BridgeError("provider reported call failed")
		}
	case "canceled":
		b.forget(sid)
	}
}

func (b *TwilioBridge) forget(sid string) {
	b.mu.Lock()
	delete(b.pending, sid)
	b.mu.Unlock()
}

func (b *TwilioBridge) callsPath(sid string) string {
	p := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls", b.baseURL, b.accountSID)
	if sid != "" {
		return p + "/" + sid + ".json"
	}
	return p + ".json"
}

func (b *TwilioBridge) do(ctx context.Context, method, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(b.accountSID, b.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("telephony: twilio: %s", apiErr.Message)
		}
		return fmt.Errorf("telephony: twilio status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type twilioCall struct {
	bridge *TwilioBridge
	sid    string
	sink   EventSink

	mu        sync.Mutex
	connected bool
}

func (c *twilioCall) markConnected() {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
}

func (c *twilioCall) wasConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *twilioCall) Hangup(ctx context.Context) error {
	form := url.Values{}
	form.Set("Status", "completed")
	err := c.bridge.do(ctx, http.MethodPost, c.bridge.callsPath(c.sid), form, nil)
	c.bridge.forget(c.sid)
	return err
}
