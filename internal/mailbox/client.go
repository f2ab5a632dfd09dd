package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/model"
)

// previewLen caps the body preview carried in an Envelope.
const previewLen = 140

// IMAPClient reads recent guest emails from a feedback inbox.
type IMAPClient struct {
	host     string
	port     int
	username string
	password string
	tls      bool
	since    time.Duration
	limit    int
	log      *zap.Logger
}

// NewIMAPClient creates a client for cfg using password from the keyring.
func NewIMAPClient(cfg model.MailboxConfig, password string, log *zap.Logger) *IMAPClient {
	if log == nil {
		log = zap.NewNop()
	}
	port := cfg.Port
	if port == 0 {
		port = 993
	}
	return &IMAPClient{
		host:     cfg.Host,
		port:     port,
		username: cfg.Username,
		password: password,
		tls:      cfg.TLS,
		since:    7 * 24 * time.Hour,
		limit:    25,
		log:      log.Named("mailbox"),
	}
}

// connect dials the server and authenticates. The caller must log out.
func (c *IMAPClient) connect() (*imapclient.Client, error) {
	addr := c.host + ":" + strconv.Itoa(c.port)

	var client *imapclient.Client
	var err error
	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", c.username, err)
	}
	return client, nil
}

// Recent returns the envelopes of INBOX messages from the last seven
// days, newest last, each with a short text preview.
func (c *IMAPClient) Recent(ctx context.Context) ([]Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	// imapclient has no context support; closing the connection unblocks
	// any pending command when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if _, err := client.Select("INBOX", &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}
	return c.collect(&session{client: client, log: c.log}, time.Now())
}

// mailSource is the part of a selected mailbox that collect reads from.
type mailSource interface {
	SearchSince(since time.Time) ([]imap.UID, error)
	Fetch(uids []imap.UID, body *imap.FetchItemBodySection) ([]*imapclient.FetchMessageBuffer, error)
}

// collect searches src for messages newer than the lookback window and
// turns the newest c.limit of them into envelopes. A failed fetch still
// returns the envelopes read before it.
func (c *IMAPClient) collect(src mailSource, now time.Time) ([]Envelope, error) {
	uids, err := src.SearchSince(now.Add(-c.since))
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if c.limit > 0 && len(uids) > c.limit {
		uids = uids[len(uids)-c.limit:]
	}

	body := &imap.FetchItemBodySection{Peek: true}
	bufs, fetchErr := src.Fetch(uids, body)

	envelopes := make([]Envelope, 0, len(bufs))
	for _, buf := range bufs {
		env := envelopeFromBuffer(buf)
		if raw := buf.FindBodySection(body); raw != nil {
			env.Preview = preview(textBody(raw))
		}
		envelopes = append(envelopes, env)
	}
	if fetchErr != nil {
		return envelopes, fmt.Errorf("fetching envelopes: %w", fetchErr)
	}
	return envelopes, nil
}

// session adapts a logged-in imapclient.Client to mailSource.
type session struct {
	client *imapclient.Client
	log    *zap.Logger
}

func (s *session) SearchSince(since time.Time) ([]imap.UID, error) {
	data, err := s.client.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, err
	}
	return data.AllUIDs(), nil
}

func (s *session) Fetch(uids []imap.UID, body *imap.FetchItemBodySection) ([]*imapclient.FetchMessageBuffer, error) {
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{body},
	})
	defer fetchCmd.Close()

	var bufs []*imapclient.FetchMessageBuffer
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			s.log.Debug("skipping message", zap.Error(err))
			continue
		}
		bufs = append(bufs, buf)
	}
	return bufs, fetchCmd.Close()
}

func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer) Envelope {
	env := Envelope{UID: uint32(buf.UID)}
	if buf.Envelope == nil {
		return env
	}
	env.MessageID = buf.Envelope.MessageID
	env.Subject = buf.Envelope.Subject
	env.Date = buf.Envelope.Date
	if len(buf.Envelope.From) > 0 {
		from := buf.Envelope.From[0]
		if from.Name != "" {
			env.From = from.Name
		} else {
			env.From = from.Addr()
		}
	}
	return env
}

// textBody extracts the text/plain part of a raw RFC 5322 message.
// Unparseable input is returned as is.
func textBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/plain") {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return ""
		}
		return string(body)
	}
}

// preview collapses whitespace and truncates s to previewLen runes.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewLen-1]) + "…"
}
