package tapo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlug is a minimal device speaking the request/response protocol.
type fakePlug struct {
	mu        sync.Mutex
	methods   []Method
	responses map[Method]string
	noCookie  bool
}

func (f *fakePlug) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := Request{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.methods = append(f.methods, req.Method)
	f.mu.Unlock()

	switch req.Method {
	case Handshake:
		if !f.noCookie {
			http.SetCookie(w, &http.Cookie{Name: sessionCookieID, Value: "abc"})
		}
	case LoginDevice:
		if _, err := r.Cookie(sessionCookieID); err != nil {
			_, _ = w.Write([]byte(`{"error_code":-1501}`))
			return
		}
	default:
		if r.URL.Query().Get("token") != "tok" {
			_, _ = w.Write([]byte(`{"error_code":9999}`))
			return
		}
	}
	body, ok := f.responses[req.Method]
	if !ok {
		body = `{"error_code":0}`
	}
	_, _ = w.Write([]byte(body))
}

func newFakePlug() *fakePlug {
	nickname := base64.StdEncoding.EncodeToString([]byte("Kitchen"))
	return &fakePlug{
		responses: map[Method]string{
			LoginDevice:    `{"error_code":0,"result":{"token":"tok"}}`,
			GetDeviceInfo:  `{"error_code":0,"result":{"device_on":true,"nickname":"` + nickname + `","model":"P110"}}`,
			GetEnergyUsage: `{"error_code":0,"result":{"current_power":15000,"today_energy":120,"today_runtime":33}}`,
		},
	}
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestConnectAndQuery(t *testing.T) {
	plug := newFakePlug()
	srv := httptest.NewServer(plug)
	defer srv.Close()

	ctx := context.Background()
	c, err := Connect(ctx, srv.Client(), hostOf(srv), "user@example.com", "secret")
	require.NoError(t, err)

	info, err := c.DeviceInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info.DeviceOn)
	assert.Equal(t, "Kitchen", info.DecodedNickname())
	assert.Equal(t, "P110", info.Model)

	usage, err := c.EnergyUsage(ctx)
	require.NoError(t, err)
	require.NotNil(t, usage.CurrentPower)
	assert.Equal(t, 15000.0, *usage.CurrentPower)
	assert.Equal(t, 120.0, *usage.TodayEnergy)
	assert.Nil(t, usage.MonthEnergy)

	assert.Equal(t, []Method{Handshake, LoginDevice, GetDeviceInfo, GetEnergyUsage}, plug.methods)
}

func TestConnect_Errors(t *testing.T) {
	tests := map[string]struct {
		plug    func() *fakePlug
		wantErr error
	}{
		"login rejected": {
			plug: func() *fakePlug {
				p := newFakePlug()
				p.responses[LoginDevice] = `{"error_code":-1501}`
				return p
			},
			wantErr: ErrDevice,
		},
		"no session cookie": {
			plug: func() *fakePlug {
				p := newFakePlug()
				p.noCookie = true
				return p
			},
			wantErr: ErrNoSession,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(tt.plug())
			defer srv.Close()

			_, err := Connect(context.Background(), srv.Client(), hostOf(srv), "u", "p")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuery_DeviceError(t *testing.T) {
	plug := newFakePlug()
	plug.responses[GetEnergyUsage] = `{"error_code":-1002}`
	srv := httptest.NewServer(plug)
	defer srv.Close()

	c, err := Connect(context.Background(), srv.Client(), hostOf(srv), "u", "p")
	require.NoError(t, err)

	_, err = c.EnergyUsage(context.Background())
	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, -1002, devErr.Code)
	assert.Equal(t, GetEnergyUsage, devErr.Method)
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(newFakePlug())
	host := hostOf(srv)
	srv.Close()

	_, err := Connect(context.Background(), nil, host, "u", "p")
	assert.Error(t, err)
}

func TestDecodedNickname(t *testing.T) {
	assert.Equal(t, "Cellar", DeviceInfo{Nickname: base64.StdEncoding.EncodeToString([]byte("Cellar"))}.DecodedNickname())
	assert.Equal(t, "not base64!", DeviceInfo{Nickname: "not base64!"}.DecodedNickname())
	assert.Equal(t, "", DeviceInfo{}.DecodedNickname())
}
