package mirror

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultTimeout is the soft limit on a single transmission.
const DefaultTimeout = 10 * time.Second

// Options configures a Client.
type Options struct {
	// URL is the destination. Empty disables the mirror: every call succeeds
	// without sending anything.
	URL string
	// Token is the shared secret attached to every payload.
	Token string
	// Transport carries fire-and-forget kinds.
	Transport Transport
	// Ack carries kinds whose failure the caller acts on. Defaults to Transport.
	Ack      Transport
	Timeout  time.Duration
	Logger   *log.Logger
	NewNonce func() string
}

// Client sends one-way notifications to the remote spreadsheet.
// Delivery is at most once and unverified.
type Client struct {
	url       string
	token     string
	transport Transport
	ack       Transport
	timeout   time.Duration
	log       *log.Logger
	newNonce  func() string
}

// New builds a Client from opts.
func New(opts Options) *Client {
	c := &Client{
		url:       opts.URL,
		token:     opts.Token,
		transport: opts.Transport,
		ack:       opts.Ack,
		timeout:   opts.Timeout,
		log:       opts.Logger,
		newNonce:  opts.NewNonce,
	}
	if c.transport == nil {
		c.transport = &BeaconTransport{}
	}
	if c.ack == nil {
		c.ack = c.transport
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.log == nil {
		c.log = log.New(io.Discard)
	}
	if c.newNonce == nil {
		c.newNonce = uuid.NewString
	}
	return c
}

// Enabled reports whether notifications leave the process.
func (c *Client) Enabled() bool {
	return c.url != ""
}

func (c *Client) NotifyEntryStart(ctx context.Context, f Fields) error {
	return c.Notify(ctx, KindEntryStart, f)
}

func (c *Client) NotifyEntryStop(ctx context.Context, f Fields) error {
	return c.Notify(ctx, KindEntryStop, f)
}

func (c *Client) NotifyEntryTimesUpdated(ctx context.Context, f Fields) error {
	return c.Notify(ctx, KindEntryTimesUpdated, f)
}

func (c *Client) NotifyDayHeader(ctx context.Context, f Fields) error {
	return c.Notify(ctx, KindDayHeader, f)
}

func (c *Client) NotifyDayFinalized(ctx context.Context, f Fields) error {
	return c.Notify(ctx, KindDayFinalized, f)
}

func (c *Client) NotifyLegacyEntry(ctx context.Context, f Fields) error {
	return c.Notify(ctx, KindLegacyEntry, f)
}

// Notify tags f with type, token and a cache-busting nonce and transmits it.
// The call returns when the attempt completes or the soft timeout expires.
func (c *Client) Notify(ctx context.Context, kind Kind, f Fields) error {
	if !c.Enabled() {
		c.log.Debug("mirror disabled, dropping notification", "kind", kind)
		return nil
	}

	payload := make(Fields, len(f)+3)
	for k, v := range f {
		payload[k] = v
	}
	payload["type"] = kind.WireType()
	payload["token"] = c.token
	payload["nonce"] = c.newNonce()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tr := c.transport
	if kind.Acknowledged() {
		tr = c.ack
	}
	if err := tr.Send(ctx, c.url, payload); err != nil {
		return fmt.Errorf("mirror %s: %w", kind, err)
	}
	c.log.Debug("mirror notification sent", "kind", kind, "id", f["id"])
	return nil
}
