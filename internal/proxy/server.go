// Package proxy forwards mirror notifications to the spreadsheet web app for
// clients that cannot reach it directly.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
)

// SavePath is the forwarding endpoint.
const SavePath = "/api/save-to-sheets"

// PlaceholderURL is the unconfigured destination shipped in sample configs.
const PlaceholderURL = "YOUR_APPS_SCRIPT_URL_HERE"

const maxBody = 1 << 20

type Server struct {
	client *http.Client
	log    *log.Logger
}

// NewServer returns the proxy handler. A nil client uses a client with the
// mirror's default timeout.
func NewServer(client *http.Client, logger *log.Logger) http.Handler {
	if client == nil {
		client = &http.Client{Timeout: mirror.DefaultTimeout}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{client: client, log: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+SavePath, s.handleSave)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var dest string
	if raw, ok := body[mirror.ProxyRequestDestKey]; ok {
		_ = json.Unmarshal(raw, &dest)
	}
	if dest == "" || dest == PlaceholderURL {
		writeError(w, http.StatusBadRequest, "Google Apps Script URL not configured")
		return
	}
	delete(body, mirror.ProxyRequestDestKey)

	var kind string
	if raw, ok := body["type"]; ok {
		_ = json.Unmarshal(raw, &kind)
	}
	s.log.Info("forwarding notification", "dest", dest, "type", kind)

	data, err := s.forward(r.Context(), dest, body)
	if err != nil {
		s.log.Error("forwarding failed", "dest", dest, "type", kind, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mirror.ProxyResponse{Success: true, Data: data})
}

// forward posts payload to dest and returns the decoded reply.
func (s *Server) forward(ctx context.Context, dest string, payload map[string]json.RawMessage) (json.RawMessage, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request failed: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if !json.Valid(text) {
		return nil, fmt.Errorf("Google Apps Script returned invalid response. Make sure the URL is correct and the script is deployed as a web app. Received: %s...", truncate(text, 100))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var reply struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(text, &reply) == nil && reply.Error != "" {
			return nil, errors.New(reply.Error)
		}
		return nil, errors.New("Failed to save to Google Sheets")
	}
	return json.RawMessage(text), nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, mirror.ProxyResponse{Error: msg})
}

// ListenAndServe runs h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	if logger != nil {
		logger.Info("proxy listening", "addr", addr)
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
