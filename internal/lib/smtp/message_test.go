package smtp

import (
	"errors"
	"io"
	"mime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordClient struct {
	calls   []string
	body    strings.Builder
	rcptErr error
}

func (c *recordClient) Mail(from string) error {
	c.calls = append(c.calls, "MAIL "+from)
	return nil
}

func (c *recordClient) Rcpt(to string) error {
	c.calls = append(c.calls, "RCPT "+to)
	return c.rcptErr
}

func (c *recordClient) Data() (io.WriteCloser, error) {
	c.calls = append(c.calls, "DATA")
	return nopCloser{&c.body}, nil
}

func (c *recordClient) Quit() error {
	c.calls = append(c.calls, "QUIT")
	return nil
}

func (c *recordClient) Close() error { return nil }

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func TestMessage_Bytes(t *testing.T) {
	msg := Message{
		From:    "bot@example.com",
		To:      []string{"support@example.com"},
		ReplyTo: "bob@example.com",
		Subject: "Новое обращение",
		Body:    "line1\nline2",
	}

	raw := string(msg.Bytes())
	head, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)

	assert.Contains(t, head, "From: bot@example.com\r\n")
	assert.Contains(t, head, "To: support@example.com\r\n")
	assert.Contains(t, head, "Reply-To: bob@example.com\r\n")
	assert.Equal(t, "line1\r\nline2", body)

	var subject string
	for _, line := range strings.Split(head, "\r\n") {
		if v, ok := strings.CutPrefix(line, "Subject: "); ok {
			subject = v
		}
	}
	assert.NotEqual(t, "Новое обращение", subject, "non-ASCII subject is encoded")
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	assert.Equal(t, "Новое обращение", decoded)
}

func TestMessage_BytesWithoutReplyTo(t *testing.T) {
	raw := string(Message{From: "a@x", To: []string{"b@x"}, Subject: "Hi"}.Bytes())

	assert.NotContains(t, raw, "Reply-To")
	assert.Contains(t, raw, "Subject: Hi\r\n")
}

func TestSend(t *testing.T) {
	c := &recordClient{}
	msg := Message{From: "bot@example.com", To: []string{"a@example.com", "b@example.com"}, Subject: "s", Body: "b"}

	require.NoError(t, Send(c, msg))
	assert.Equal(t, []string{"MAIL bot@example.com", "RCPT a@example.com", "RCPT b@example.com", "DATA", "QUIT"}, c.calls)
	assert.Equal(t, string(msg.Bytes()), c.body.String())
}

func TestSend_RcptError(t *testing.T) {
	c := &recordClient{rcptErr: errors.New("mailbox unavailable")}

	err := Send(c, Message{From: "bot@example.com", To: []string{"a@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rcpt to a@example.com")
	assert.NotContains(t, c.calls, "DATA")
}
