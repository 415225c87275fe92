package retry

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmorgan81/imagine/internal/image"
)

type Class int

const (
	ClassOK Class = iota
	ClassModelLoading
	ClassRateLimited
	ClassTransport
	ClassUnauthorized
	ClassInvalidRequest
	ClassServer
)

func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassModelLoading:
		return "model_loading"
	case ClassRateLimited:
		return "rate_limited"
	case ClassTransport:
		return "transport"
	case ClassUnauthorized:
		return "unauthorized"
	case ClassInvalidRequest:
		return "invalid_request"
	case ClassServer:
		return "server"
	default:
		return "unknown"
	}
}

// Verdict is the classification of one attempt. RetryAfter is the server's
// own hint and is zero when it gave none.
type Verdict struct {
	Class      Class
	RetryAfter time.Duration
}

type errorBody struct {
	Error         any      `json:"error"`
	EstimatedTime *float64 `json:"estimated_time"`
}

func parseErrorBody(body []byte) (errorBody, bool) {
	var eb errorBody
	if len(body) == 0 || json.Unmarshal(body, &eb) != nil {
		return errorBody{}, false
	}
	return eb, true
}

func (eb errorBody) message() string {
	switch v := eb.Error.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(v)
	}
}

// Classify never looks at more than the one response it is given.
func Classify(resp *image.Response, err error) Verdict {
	if err != nil || resp == nil {
		return Verdict{Class: ClassTransport}
	}
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return Verdict{Class: ClassOK}
	}

	hint := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	eb, isJSON := parseErrorBody(resp.Body)
	loading := code == http.StatusServiceUnavailable ||
		(isJSON && (eb.EstimatedTime != nil || strings.Contains(strings.ToLower(eb.message()), "loading")))

	switch {
	case code == http.StatusTooManyRequests:
		return Verdict{Class: ClassRateLimited, RetryAfter: hint}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Verdict{Class: ClassUnauthorized}
	case loading:
		if isJSON && eb.EstimatedTime != nil && *eb.EstimatedTime > 0 {
			hint = seconds(*eb.EstimatedTime)
		}
		return Verdict{Class: ClassModelLoading, RetryAfter: hint}
	case code >= 400 && code < 500:
		return Verdict{Class: ClassInvalidRequest}
	default:
		return Verdict{Class: ClassServer}
	}
}

// detail extracts the server's own error message for logs and user output.
func detail(resp *image.Response) string {
	if resp == nil {
		return ""
	}
	if eb, ok := parseErrorBody(resp.Body); ok {
		if msg := eb.message(); msg != "" {
			return msg
		}
	}
	if strings.HasPrefix(resp.ContentType(), "text/") {
		s := strings.TrimSpace(string(resp.Body))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	return ""
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		if n <= 0 {
			return 0
		}
		return seconds(n)
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

func seconds(f float64) time.Duration {
	return time.Duration(math.Round(f * float64(time.Second)))
}
