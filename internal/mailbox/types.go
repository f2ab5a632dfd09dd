package mailbox

import (
	"strings"
	"time"
)

// Envelope is one message in the guest feedback inbox.
type Envelope struct {
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	UID       uint32

	// Preview is the first line(s) of the text/plain body.
	Preview string
}

// Key returns a stable identifier for deduplication. Servers that omit
// Message-ID fall back to sender, subject and date.
func (e Envelope) Key() string {
	if e.MessageID != "" {
		return e.MessageID
	}
	return strings.Join([]string{e.From, e.Subject, e.Date.UTC().Format(time.RFC3339)}, "|")
}
