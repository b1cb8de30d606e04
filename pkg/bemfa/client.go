package bemfa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://pro.bemfa.com/v4/app/v1"
	DefaultCommandURL = "https://pro.bemfa.com/vv/postmsg2"

	// The official app identifies itself this way; the endpoint rejects
	// some default Go user agents.
	userAgent = "Dart/3.7 (dart:io)"

	commandMsgType = "3"
)

// DeviceClient is the remote side of the bridge: one snapshot fetch and
// one best-effort command post. No retries, no backoff; one attempt per
// call.
type DeviceClient interface {
	// FetchDevices returns the full device list for the account.
	// Any transport error or non-zero API code yields an *UpdateFailedError.
	FetchDevices(ctx context.Context) (Snapshot, error)
	// SendCommand posts one command string to one topic. Every failure
	// is swallowed into a false return.
	SendCommand(ctx context.Context, topic string, msg string) bool
}

// UpdateFailedError is the single failure kind surfaced by FetchDevices.
type UpdateFailedError struct {
	Reason string
	Err    error
}

func (e *UpdateFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("update failed: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("update failed: %s", e.Reason)
}

func (e *UpdateFailedError) Unwrap() error {
	return e.Err
}

func updateFailed(reason string, err error) *UpdateFailedError {
	return &UpdateFailedError{Reason: reason, Err: err}
}

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

type httpDeviceClient struct {
	baseURL    string
	commandURL string
	user       string
	client     *http.Client
	logger     *zap.Logger
}

// CreateHTTPDeviceClient builds a DeviceClient over the cloud HTTP API.
// Empty baseURL/commandURL select the public endpoints.
func CreateHTTPDeviceClient(baseURL, commandURL, user string, timeout time.Duration, logger *zap.Logger) DeviceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if commandURL == "" {
		commandURL = DefaultCommandURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpDeviceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		commandURL: commandURL,
		user:       user,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(zap.String("component", "bemfa_client")),
	}
}

func (c *httpDeviceClient) FetchDevices(ctx context.Context) (Snapshot, error) {
	reqURL := fmt.Sprintf("%s/homeRoom?user=%s", c.baseURL, url.QueryEscape(c.user))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, updateFailed("build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, updateFailed("api request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, updateFailed(fmt.Sprintf("api status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, updateFailed("read body", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, updateFailed("decode envelope", err)
	}
	if env.Code != 0 {
		return nil, updateFailed(fmt.Sprintf("api error code %d: %s", env.Code, env.Msg), nil)
	}

	var snapshot Snapshot
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &snapshot); err != nil {
			return nil, updateFailed("decode device list", err)
		}
	}
	c.logger.Debug("fetched device list", zap.Int("devices", len(snapshot)))
	return snapshot, nil
}

func (c *httpDeviceClient) SendCommand(ctx context.Context, topic string, msg string) bool {
	form := url.Values{}
	form.Set("user", c.user)
	form.Set("topic", topic)
	form.Set("msg", msg)
	form.Set("type", commandMsgType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.commandURL, strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Error("command request build failed", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("command request failed", zap.String("topic", topic), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("command rejected", zap.String("topic", topic), zap.Int("status", resp.StatusCode))
		return false
	}
	c.logger.Debug("command sent", zap.String("topic", topic), zap.String("msg", msg))
	return true
}
