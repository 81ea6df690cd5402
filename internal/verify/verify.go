// Package verify checks login credentials against an external ejudge-style
// contest platform. The system keeps no identity state of its own: a login
// is considered verified when a session-start form post against one of the
// group's contest endpoints comes back without the empty-session marker.
package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// emptySessionMarker appears in the response body when the platform refused
// to start a session. Any response without it counts as a successful login.
const emptySessionMarker = `SID="0000000000000000"`

// Verifier validates a login/password pair for a group selector.
type Verifier interface {
	Check(ctx context.Context, login, password string, group int) (bool, error)
}

// HTTPVerifier verifies credentials by posting the platform's session-start
// form. The group's own contest is tried first, then every other contest as
// a fallback (accounts frequently exist in a neighbouring group).
type HTTPVerifier struct {
	endpoint string
	contests []int
	client   *http.Client
}

// NewHTTPVerifier creates a verifier against the given session-start URL.
// contests maps group selectors to contest identifiers; index 0 is a
// placeholder and never tried.
func NewHTTPVerifier(endpoint string, contests []int) *HTTPVerifier {
	return &HTTPVerifier{
		endpoint: endpoint,
		contests: contests,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Check reports whether the credentials start a session for the group's
// contest or any fallback contest.
func (v *HTTPVerifier) Check(ctx context.Context, login, password string, group int) (bool, error) {
	if group < 1 || group >= len(v.contests) {
		return false, fmt.Errorf("invalid group %d", group)
	}

	primary := v.contests[group]
	ok, err := v.checkContest(ctx, login, password, primary)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	for _, contest := range v.contests[1:] {
		if contest == primary {
			continue
		}
		ok, err := v.checkContest(ctx, login, password, contest)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

func (v *HTTPVerifier) checkContest(ctx context.Context, login, password string, contest int) (bool, error) {
	form := url.Values{
		"contest_id": {strconv.Itoa(contest)},
		"role":       {"0"},
		"prob_name":  {""},
		"login":      {login},
		"password":   {password},
		"locale_id":  {"1"},
		"action_2":   {"Log in"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build session-start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("session-start request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read session-start response: %w", err)
	}

	return !strings.Contains(string(body), emptySessionMarker), nil
}
