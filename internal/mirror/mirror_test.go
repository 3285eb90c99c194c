package mirror_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
	"github.com/Tiliavir/boat-time-tracker/internal/model"
)

// recordingTransport captures payloads and returns err.
type recordingTransport struct {
	mu    sync.Mutex
	dests []string
	sent  []mirror.Fields
	err   error
}

func (r *recordingTransport) Send(_ context.Context, dest string, payload mirror.Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dests = append(r.dests, dest)
	r.sent = append(r.sent, payload)
	return r.err
}

func TestClientTagsPayload(t *testing.T) {
	tr := &recordingTransport{}
	c := mirror.New(mirror.Options{
		URL:       "https://example.test/exec",
		Token:     "s3cret",
		Transport: tr,
		NewNonce:  func() string { return "nonce-1" },
	})

	err := c.NotifyEntryStart(context.Background(), mirror.Fields{"resource": "Båt 1", "startTime": "08:00", "id": "e1"})
	require.NoError(t, err)

	require.Len(t, tr.sent, 1)
	require.Equal(t, "https://example.test/exec", tr.dests[0])
	require.Equal(t, mirror.Fields{
		"resource":  "Båt 1",
		"startTime": "08:00",
		"id":        "e1",
		"type":      "boatLogStart",
		"token":     "s3cret",
		"nonce":     "nonce-1",
	}, tr.sent[0])
}

func TestClientDoesNotMutateCallerFields(t *testing.T) {
	tr := &recordingTransport{}
	c := mirror.New(mirror.Options{URL: "https://example.test", Transport: tr})
	f := mirror.Fields{"id": "e1"}
	require.NoError(t, c.NotifyEntryStop(context.Background(), f))
	require.Equal(t, mirror.Fields{"id": "e1"}, f)
}

func TestClientDisabledSendsNothing(t *testing.T) {
	tr := &recordingTransport{err: errors.New("must not be called")}
	c := mirror.New(mirror.Options{Transport: tr})
	require.False(t, c.Enabled())
	require.NoError(t, c.NotifyDayFinalized(context.Background(), mirror.Fields{}))
	require.Empty(t, tr.sent)
}

func TestClientRoutesAcknowledgedKinds(t *testing.T) {
	fire := &recordingTransport{}
	ack := &recordingTransport{}
	c := mirror.New(mirror.Options{URL: "https://example.test", Transport: fire, Ack: ack})
	ctx := context.Background()

	require.NoError(t, c.NotifyEntryStart(ctx, mirror.Fields{}))
	require.NoError(t, c.NotifyEntryStop(ctx, mirror.Fields{}))
	require.NoError(t, c.NotifyDayHeader(ctx, mirror.Fields{}))
	require.NoError(t, c.NotifyLegacyEntry(ctx, mirror.Fields{}))
	require.NoError(t, c.NotifyEntryTimesUpdated(ctx, mirror.Fields{}))
	require.NoError(t, c.NotifyDayFinalized(ctx, mirror.Fields{}))

	require.Len(t, fire.sent, 4)
	require.Len(t, ack.sent, 2)
	require.Equal(t, "boatLogUpdateTimes", ack.sent[0]["type"])
	require.Equal(t, "updateDaySessionEndTime", ack.sent[1]["type"])
}

func TestClientWrapsTransportError(t *testing.T) {
	boom := errors.New("network down")
	c := mirror.New(mirror.Options{URL: "https://example.test", Transport: &recordingTransport{err: boom}})
	err := c.NotifyDayFinalized(context.Background(), mirror.Fields{})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "finalize")
}

func TestClientSoftTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := mirror.New(mirror.Options{
		URL:       srv.URL,
		Transport: &mirror.PostTransport{Client: srv.Client()},
		Timeout:   50 * time.Millisecond,
	})
	started := time.Now()
	err := c.NotifyEntryTimesUpdated(context.Background(), mirror.Fields{"id": "e1"})
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(started), time.Second)
}

func TestBeaconTransportSendsQueryAndIgnoresStatus(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := &mirror.BeaconTransport{Client: srv.Client()}
	err := tr.Send(context.Background(), srv.URL+"/exec?v=1", mirror.Fields{"id": "e1", "description": "loading cargo"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"v": "1", "id": "e1", "description": "loading cargo"}, got)
}

func TestBeaconTransportReportsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := &mirror.BeaconTransport{}
	require.Error(t, tr.Send(context.Background(), url, mirror.Fields{}))
}

func TestPostTransport(t *testing.T) {
	var body map[string]string
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	tr := &mirror.PostTransport{Client: srv.Client()}
	require.NoError(t, tr.Send(context.Background(), srv.URL, mirror.Fields{"date": "2026-02-27"}))
	require.Equal(t, "2026-02-27", body["date"])

	status = http.StatusBadGateway
	err := tr.Send(context.Background(), srv.URL, mirror.Fields{})
	var se *mirror.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadGateway, se.Code)
}

func TestProxyTransport(t *testing.T) {
	reply := `{"success":true,"data":{"row":4}}`
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(reply))
	}))
	defer srv.Close()

	tr := &mirror.ProxyTransport{Client: srv.Client(), ProxyURL: srv.URL + "/api/save-to-sheets"}
	require.NoError(t, tr.Send(context.Background(), "https://script.example/exec", mirror.Fields{"id": "e1"}))
	require.Equal(t, "https://script.example/exec", body[mirror.ProxyRequestDestKey])
	require.Equal(t, "e1", body["id"])

	reply = `{"error":"Google Apps Script URL not configured"}`
	err := tr.Send(context.Background(), "https://script.example/exec", mirror.Fields{})
	require.ErrorContains(t, err, "not configured")

	reply = `not json`
	require.Error(t, tr.Send(context.Background(), "https://script.example/exec", mirror.Fields{}))
}

func TestNewTransport(t *testing.T) {
	tr, err := mirror.NewTransport("", nil, "")
	require.NoError(t, err)
	require.IsType(t, &mirror.BeaconTransport{}, tr)
	require.IsType(t, &mirror.PostTransport{}, mirror.AckTransportFor(tr, nil))

	tr, err = mirror.NewTransport("proxy", nil, "http://localhost:4000/api/save-to-sheets")
	require.NoError(t, err)
	require.Same(t, tr, mirror.AckTransportFor(tr, nil))

	_, err = mirror.NewTransport("proxy", nil, "")
	require.Error(t, err)
	_, err = mirror.NewTransport("carrier-pigeon", nil, "")
	require.Error(t, err)
}

func TestPayloadBuilders(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	start := time.Date(2026, 2, 27, 7, 5, 30, 0, loc)
	end := time.Date(2026, 2, 27, 9, 45, 0, 0, loc)
	e := model.Entry{ID: "e1", Resource: "Båt 2", Start: start, End: &end, Description: "hull check", Completed: true}

	require.Equal(t, mirror.Fields{"resource": "Båt 2", "startTime": "07:05", "id": "e1"}, mirror.StartFields(e))
	require.Equal(t, mirror.Fields{"id": "e1", "endTime": "09:45", "description": "hull check"}, mirror.StopFields(e))
	require.Equal(t, mirror.Fields{"resource": "Båt 2", "startTime": "07:05", "endTime": "09:45", "description": "hull check"}, mirror.LegacyFields(e))
	require.Equal(t, mirror.Fields{"id": "e1", "startTime": "07:05", "endTime": ""}, mirror.TimesFields("e1", start, nil))

	s := model.DaySession{Date: "2026-02-27", DayStart: start}
	require.Equal(t, mirror.Fields{"date": "2026-02-27", "dayStart": "07:05"}, mirror.HeaderFields(s))
	s.DayEnd = &end
	require.Equal(t, mirror.Fields{"date": "2026-02-27", "dayStart": "07:05", "dayEnd": "09:45"}, mirror.FinalizeFields(s))
}

func TestHTTPClientRequiresLogin(t *testing.T) {
	base := &http.Client{}
	c, err := mirror.HTTPClient(context.Background(), mirror.AuthConfig{}, base)
	require.NoError(t, err)
	require.Same(t, base, c)

	a := mirror.AuthConfig{ClientID: "client", TokenPath: filepath.Join(t.TempDir(), "tokens.json")}
	_, err = mirror.HTTPClient(context.Background(), a, base)
	require.ErrorIs(t, err, mirror.ErrNotLoggedIn)
}
