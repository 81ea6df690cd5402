package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContests = []int{0, 100, 200, 300}

// fakePlatform records session-start posts and answers with the empty-session
// marker unless the contest id is in accepted.
type fakePlatform struct {
	accepted map[int]bool
	tried    []int
}

func (p *fakePlatform) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "0", r.PostFormValue("role"))
		assert.Equal(t, "1", r.PostFormValue("locale_id"))
		assert.NotEmpty(t, r.PostFormValue("login"))

		contest, err := strconv.Atoi(r.PostFormValue("contest_id"))
		require.NoError(t, err)
		p.tried = append(p.tried, contest)

		if p.accepted[contest] {
			fmt.Fprint(w, `<html>SID="abc123def456"</html>`)
			return
		}
		fmt.Fprint(w, `<html>SID="0000000000000000"</html>`)
	}
}

func TestCheck(t *testing.T) {
	t.Run("accepts on the primary contest", func(t *testing.T) {
		platform := &fakePlatform{accepted: map[int]bool{200: true}}
		srv := httptest.NewServer(platform.handler(t))
		defer srv.Close()

		v := NewHTTPVerifier(srv.URL, testContests)
		ok, err := v.Check(context.Background(), "alice", "secret", 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []int{200}, platform.tried)
	})

	t.Run("falls back to the other contests", func(t *testing.T) {
		platform := &fakePlatform{accepted: map[int]bool{300: true}}
		srv := httptest.NewServer(platform.handler(t))
		defer srv.Close()

		v := NewHTTPVerifier(srv.URL, testContests)
		ok, err := v.Check(context.Background(), "alice", "secret", 1)
		require.NoError(t, err)
		assert.True(t, ok)
		// Primary first, then the remaining contests in table order,
		// skipping the primary.
		assert.Equal(t, []int{100, 200, 300}, platform.tried)
	})

	t.Run("rejects when no contest accepts", func(t *testing.T) {
		platform := &fakePlatform{}
		srv := httptest.NewServer(platform.handler(t))
		defer srv.Close()

		v := NewHTTPVerifier(srv.URL, testContests)
		ok, err := v.Check(context.Background(), "alice", "wrong", 1)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []int{100, 200, 300}, platform.tried)
	})

	t.Run("rejects invalid groups", func(t *testing.T) {
		v := NewHTTPVerifier("http://unused.invalid", testContests)

		for _, group := range []int{0, -1, len(testContests)} {
			_, err := v.Check(context.Background(), "alice", "secret", group)
			assert.Error(t, err, "group %d", group)
		}
	})

	t.Run("propagates transport errors", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close() // immediately unreachable

		v := NewHTTPVerifier(srv.URL, testContests)
		_, err := v.Check(context.Background(), "alice", "secret", 1)
		assert.Error(t, err)
	})
}
