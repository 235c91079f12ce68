package smtp

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/messenger/internal/config"
)

// fakeServer отвечает на EHLO без STARTTLS.
func fakeServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		_, _ = io.WriteString(conn, "220 localhost ESMTP\r\n")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"):
				_, _ = io.WriteString(conn, "250-localhost\r\n250 AUTH PLAIN\r\n")
			case strings.HasPrefix(cmd, "QUIT"):
				_, _ = io.WriteString(conn, "221 bye\r\n")
				return
			default:
				_, _ = io.WriteString(conn, "502 not implemented\r\n")
			}
		}
	}()
	return ln.Addr().String()
}

func newTransport(t *testing.T, addr string) *Transport {
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTransport(config.SMTP{
		SMTPHost:     host,
		SMTPPort:     port,
		SMTPUser:     "bot@example.com",
		SupportEmail: "support@example.com",
	}, log)
}

func TestTransport_RequiresStartTLS(t *testing.T) {
	tr := newTransport(t, fakeServer(t))

	_, err := tr.Connect()
	assert.ErrorIs(t, err, ErrNoStartTLS)
}

func TestTransport_DialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = newTransport(t, addr).Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.Transport.Connect: dial")
}

func TestTransport_Addresses(t *testing.T) {
	tr := newTransport(t, "127.0.0.1:2525")

	assert.Equal(t, "bot@example.com", tr.GetSMTPUser())
	assert.Equal(t, "support@example.com", tr.SupportEmail())
}
