package smtp

import (
	"fmt"
	"mime"
	"strings"
)

// Message письмо в виде text/plain UTF-8.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Body    string
}

// Bytes собирает заголовки и тело с переводами строк CRLF.
// Тема с не-ASCII символами кодируется по RFC 2047.
func (m Message) Bytes() []byte {
	var b strings.Builder
	header := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	header("From", m.From)
	header("To", strings.Join(m.To, ", "))
	if m.ReplyTo != "" {
		header("Reply-To", m.ReplyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

// Send передаёт письмо по открытой сессии и завершает её командой QUIT.
// Закрытие клиента остаётся за вызывающим.
func Send(c Client, m Message) error {
	const op = "smtp.Send"

	if err := c.Mail(m.From); err != nil {
		return fmt.Errorf("%s: mail from %s: %w", op, m.From, err)
	}
	for _, addr := range m.To {
		if err := c.Rcpt(addr); err != nil {
			return fmt.Errorf("%s: rcpt to %s: %w", op, addr, err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write(m.Bytes()); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close body: %w", op, err)
	}
	if err = c.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}
	return nil
}
