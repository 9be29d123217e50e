package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrMissingAttemptToken is returned when the backend sends an item without
	// the attempt token needed to answer it
	ErrMissingAttemptToken = errors.New("response carries an item but no attempt token")

	// ErrMalformedResponse is returned when a body cannot be decoded
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	var env struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		msg = env.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// NetworkError wraps a transport failure
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of an APIError anywhere in err's chain, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Messages shown to users
const (
	MsgUnauthorized  = "อีเมลหรือรหัสผ่านไม่ถูกต้อง หรือเซสชันหมดอายุ กรุณาเข้าสู่ระบบใหม่"
	MsgConflict      = "ข้อมูลนี้ถูกใช้งานแล้ว"
	MsgServerError   = "เซิร์ฟเวอร์ขัดข้อง กรุณาลองใหม่ภายหลัง"
	MsgNetwork       = "ไม่สามารถเชื่อมต่อเซิร์ฟเวอร์ได้"
	MsgMissingToken  = "ไม่พบรหัสการประเมิน กรุณาลองใหม่อีกครั้ง"
	MsgMalformed     = "ข้อมูลไม่สมบูรณ์"
	MsgGenericFailed = "เกิดข้อผิดพลาด กรุณาลองใหม่อีกครั้ง"
)

// UserMessage maps an error to the message shown to the user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var netErr *NetworkError
	switch {
	case errors.As(err, &netErr):
		return MsgNetwork
	case errors.Is(err, ErrMissingAttemptToken):
		return MsgMissingToken
	case errors.Is(err, ErrMalformedResponse):
		return MsgMalformed
	}

	switch StatusCode(err) {
	case http.StatusUnauthorized:
		return MsgUnauthorized
	case http.StatusConflict:
		return MsgConflict
	case http.StatusInternalServerError:
		return MsgServerError
	}

	return MsgGenericFailed
}
