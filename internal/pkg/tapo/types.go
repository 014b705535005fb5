package tapo

import (
	"encoding/base64"
	"encoding/json"
)

type Method string

func (m Method) String() string {
	return string(m)
}

const (
	Handshake      Method = "handshake"
	LoginDevice    Method = "login_device"
	GetDeviceInfo  Method = "get_device_info"
	GetEnergyUsage Method = "get_energy_usage"
)

const sessionCookieID = "TP_SESSIONID"

type Request struct {
	Method          Method `json:"method"`
	Params          any    `json:"params,omitempty"`
	RequestTimeMils int64  `json:"requestTimeMils"`
}

type Response struct {
	ErrorCode int             `json:"error_code"`
	Result    json.RawMessage `json:"result"`
}

type LoginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token string `json:"token"`
}

// DeviceInfo is the subset of get_device_info the bridge uses.
type DeviceInfo struct {
	DeviceID string `json:"device_id"`
	Model    string `json:"model"`
	FWVer    string `json:"fw_ver"`
	DeviceOn bool   `json:"device_on"`
	// Nickname is base64 encoded on the wire.
	Nickname string `json:"nickname"`
}

// DecodedNickname returns the nickname in plain text. A value that is not
// valid base64 is returned as is.
func (d DeviceInfo) DecodedNickname() string {
	decoded, err := base64.StdEncoding.DecodeString(d.Nickname)
	if err != nil {
		return d.Nickname
	}
	return string(decoded)
}

// EnergyUsage as reported by get_energy_usage. Power is in milliwatts,
// energy in watt hours and runtime in minutes.
type EnergyUsage struct {
	CurrentPower *float64 `json:"current_power"`
	TodayEnergy  *float64 `json:"today_energy"`
	TodayRuntime *float64 `json:"today_runtime"`
	MonthEnergy  *float64 `json:"month_energy"`
	MonthRuntime *float64 `json:"month_runtime"`
}
