package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/mocks"
	"github.com/phrazzld/scry-engine/internal/platform/token"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

// testAPI bundles a router with the mocks behind it.
type testAPI struct {
	owner    uuid.UUID
	cards    *mocks.MockCardRepository
	sessions *mocks.MockSessionManager
	stats    *mocks.MockStatsService
	handler  http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	a := &testAPI{
		owner:    uuid.New(),
		cards:    &mocks.MockCardRepository{},
		sessions: &mocks.MockSessionManager{},
		stats:    &mocks.MockStatsService{},
	}
	a.handler = NewRouter(RouterDeps{
		Cards:    a.cards,
		Sessions: a.sessions,
		Stats:    a.stats,
		Tokens:   &mocks.MockTokenService{Claims: &token.Claims{OwnerID: a.owner}},
		Now:      func() time.Time { return testNow },
	})
	return a
}

// do sends an authenticated request. body may be nil, a string, or a value
// to encode as JSON.
func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
