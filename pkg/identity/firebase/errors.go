package firebase

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rhuss/scribe/pkg/identity"
)

// userErrorCodes are the Identity Toolkit error codes caused by the values a
// user submitted. Anything else (bad API key, quota, 5xx) is a service fault.
var userErrorCodes = map[string]bool{
	identity.CodeEmailExists:        true,
	identity.CodeInvalidEmail:       true,
	identity.CodeWeakPassword:       true,
	identity.CodeInvalidCredentials: true,
	"MISSING_EMAIL":                 true,
	"MISSING_PASSWORD":              true,
	"EMAIL_NOT_FOUND":               true,
	"INVALID_PASSWORD":              true,
	"USER_DISABLED":                 true,
	"TOO_MANY_ATTEMPTS_TRY_LATER":   true,
}

// errorEnvelope is the error body returned by Google APIs.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// mapHTTPError converts a non-2xx Identity Toolkit response into either an
// *identity.RejectedError (user-caused) or a plain error.
func mapHTTPError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Error.Message == "" {
		return fmt.Errorf("identity toolkit returned HTTP %d", resp.StatusCode)
	}

	code, detail := splitMessage(env.Error.Message)
	if resp.StatusCode < 500 && userErrorCodes[code] {
		return identity.Reject(code, detail)
	}
	return fmt.Errorf("identity toolkit returned HTTP %d: %s", resp.StatusCode, env.Error.Message)
}

// splitMessage separates "WEAK_PASSWORD : Password should be at least 6
// characters" into its code and detail.
func splitMessage(msg string) (code, detail string) {
	code, detail, _ = strings.Cut(msg, ":")
	return strings.TrimSpace(code), strings.TrimSpace(detail)
}
