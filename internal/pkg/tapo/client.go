package tapo

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

var (
	ErrDevice    = errors.New("device returned an error")
	ErrNoSession = errors.New("device did not return a session cookie")
)

// DeviceError carries the non-zero error_code of a device response.
type DeviceError struct {
	Method Method
	Code   int
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s failed with error_code %d", ErrDevice, e.Method, e.Code)
}

func (e *DeviceError) Unwrap() error {
	return ErrDevice
}

// Client talks to one plug. It is created by Connect and is not safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	endpoint   url.URL
	session    *http.Cookie
	token      string
	logger     *zap.Logger
}

// Connect performs the handshake and login against hostname. The returned
// client carries the session and token for further requests.
func Connect(ctx context.Context, httpClient *http.Client, hostname, username, password string) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		endpoint:   url.URL{Scheme: "http", Host: hostname, Path: "/app"},
		logger:     zap.L().With(zap.String("hostname", hostname)),
	}

	if err := c.handshake(ctx); err != nil {
		return nil, err
	}
	if err := c.login(ctx, username, password); err != nil {
		return nil, err
	}
	c.logger.Debug("logged in to device")
	return c, nil
}

func (c *Client) handshake(ctx context.Context) error {
	res, cookies, err := c.do(ctx, Request{Method: Handshake})
	if err != nil {
		return err
	}
	if res.ErrorCode != 0 {
		return &DeviceError{Method: Handshake, Code: res.ErrorCode}
	}
	for _, ck := range cookies {
		if ck.Name == sessionCookieID {
			c.session = &http.Cookie{Name: ck.Name, Value: ck.Value}
			return nil
		}
	}
	return ErrNoSession
}

func (c *Client) login(ctx context.Context, username, password string) error {
	digest := sha1.Sum([]byte(username))
	result := LoginResult{}
	if err := c.call(ctx, LoginDevice, LoginParams{
		Username: base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(digest[:]))),
		Password: base64.StdEncoding.EncodeToString([]byte(password)),
	}, &result); err != nil {
		return err
	}
	c.token = result.Token
	return nil
}

func (c *Client) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	info := &DeviceInfo{}
	if err := c.call(ctx, GetDeviceInfo, nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) EnergyUsage(ctx context.Context) (*EnergyUsage, error) {
	usage := &EnergyUsage{}
	if err := c.call(ctx, GetEnergyUsage, nil, usage); err != nil {
		return nil, err
	}
	return usage, nil
}

func (c *Client) call(ctx context.Context, method Method, params any, out any) error {
	res, _, err := c.do(ctx, Request{Method: method, Params: params})
	if err != nil {
		return err
	}
	if res.ErrorCode != 0 {
		return &DeviceError{Method: method, Code: res.ErrorCode}
	}
	if out == nil || len(res.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, []*http.Cookie, error) {
	req.RequestTimeMils = time.Now().UnixMilli()
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, err
	}

	u := c.endpoint
	if c.token != "" {
		u.RawQuery = url.Values{"token": {c.token}}.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.session != nil {
		httpReq.AddCookie(c.session)
	}

	c.logger.Debug("sending request", zap.String("method", req.Method.String()))
	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", req.Method, err)
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%s: unexpected status %s", req.Method, httpRes.Status)
	}
	data, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: read response: %w", req.Method, err)
	}
	res := &Response{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, nil, fmt.Errorf("%s: decode response: %w", req.Method, err)
	}
	return res, httpRes.Cookies(), nil
}
