package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	concord4 "github.com/caarlos0/concord4-bridge"
	"github.com/caarlos0/concord4-bridge/internal/integration"
	"github.com/caarlos0/concord4-bridge/internal/integration/integrationtest"
	"github.com/caarlos0/concord4-bridge/internal/store"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	cli         *integrationtest.Client
	store       *store.BoltStore
	integration *integration.Integration
	loader      *testLoader
	handler     http.Handler
}

type testLoader struct {
	t         *testing.T
	integ     *integration.Integration
	cancelled []string
}

func (l *testLoader) Load(ctx context.Context, entry integration.ConfigEntry) {
	require.NoError(l.t, l.integ.SetupEntry(ctx, entry))
}

func (l *testLoader) Cancel(entryID string) {
	l.cancelled = append(l.cancelled, entryID)
}

func setupTestServer(t *testing.T) fixture {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cli := integrationtest.New()
	integ := integration.New(cli.Dialer(), integration.Platforms(integration.Hosts{})...)
	loader := &testLoader{t: t, integ: integ}
	srv := New(integration.NewConfigFlow(cli.Dialer()), st, integ, loader)
	mux := http.NewServeMux()
	srv.Register(mux)
	return fixture{cli: cli, store: st, integration: integ, loader: loader, handler: mux}
}

func (f fixture) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestIndexEmpty(t *testing.T) {
	f := setupTestServer(t)
	rec := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No panels configured.")

	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/nope", nil).Code)
}

func TestSetupForm(t *testing.T) {
	f := setupTestServer(t)
	rec := f.do(t, http.MethodGet, "/setup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `name="host"`)
	require.Contains(t, rec.Body.String(), `value="8080"`)
}

func TestSetupErrors(t *testing.T) {
	f := setupTestServer(t)

	rec := f.do(t, http.MethodPost, "/setup", url.Values{"name": {"Home"}, "host": {""}, "port": {"abc"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Required")
	require.Contains(t, rec.Body.String(), "Invalid port")

	f.cli.Err = concord4.ErrCannotConnect
	rec = f.do(t, http.MethodPost, "/setup", url.Values{"name": {"Home"}, "host": {"panel.local"}, "port": {"8080"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Failed to connect")
	require.Contains(t, rec.Body.String(), `value="panel.local"`)

	f.cli.Err = errors.New("boom")
	rec = f.do(t, http.MethodPost, "/setup", url.Values{"name": {"Home"}, "host": {"panel.local"}, "port": {"8080"}})
	require.Contains(t, rec.Body.String(), "Unexpected error")

	entries, err := f.store.List()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSetupAndIndex(t *testing.T) {
	f := setupTestServer(t)

	rec := f.do(t, http.MethodPost, "/setup", url.Values{"name": {"Home"}, "host": {"panel.local"}, "port": {"8080"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	entries, err := f.store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, integration.EntryData{Name: "Home", Host: "panel.local", Port: 8080}, entries[0].Data)
	_, loaded := f.integration.Runtime(entries[0].ID)
	require.True(t, loaded)

	f.cli.SetZoneStatus("2", concord4.ZoneStatusTripped)
	body := f.do(t, http.MethodGet, "/", nil).Body.String()
	require.Contains(t, body, "Home")
	require.Contains(t, body, "Connected")
	require.Contains(t, body, "Partition 2 Alarm Panel")
	require.Contains(t, body, "disarmed")
	require.Contains(t, body, "Hall Motion")
	require.Contains(t, body, "Tripped")
}

func TestIndexNotLoaded(t *testing.T) {
	f := setupTestServer(t)
	_, err := f.store.Create(integration.EntryTitle, integration.EntryData{Name: "Cabin", Host: "cabin.local", Port: 8080})
	require.NoError(t, err)

	body := f.do(t, http.MethodGet, "/", nil).Body.String()
	require.Contains(t, body, "Cabin")
	require.Contains(t, body, "Not loaded")
}

func TestUnload(t *testing.T) {
	f := setupTestServer(t)
	require.Equal(t, http.StatusSeeOther, f.do(t, http.MethodPost, "/setup", url.Values{"name": {"Home"}, "host": {"panel.local"}, "port": {"8080"}}).Code)
	entries, err := f.store.List()
	require.NoError(t, err)
	id := entries[0].ID

	require.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/unload", nil).Code)
	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/unload", url.Values{"id": {"404"}}).Code)

	rec := f.do(t, http.MethodPost, "/unload", url.Values{"id": {id}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, loaded := f.integration.Runtime(id)
	require.False(t, loaded)
	require.Equal(t, 2, f.cli.Closed(), "the flow test connection and the unload")
	_, err = f.store.Get(id)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUnloadNotLoaded(t *testing.T) {
	f := setupTestServer(t)
	entry, err := f.store.Create(integration.EntryTitle, integration.EntryData{Name: "Cabin", Host: "cabin.local", Port: 8080})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/unload", url.Values{"id": {entry.ID}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, []string{entry.ID}, f.loader.cancelled, "pending loads are cancelled")
	_, err = f.store.Get(entry.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
