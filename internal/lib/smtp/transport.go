package smtp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/messenger/internal/config"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

// ErrNoStartTLS сервер не объявил расширение STARTTLS.
var ErrNoStartTLS = errors.New("smtp server does not support STARTTLS")

// Transport открывает SMTP-сессию к серверу из настроек: STARTTLS,
// затем PLAIN-аутентификация. Без STARTTLS пароль не отправляется.
type Transport struct {
	cfg     config.SMTP
	log     *slog.Logger
	timeout time.Duration
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log, timeout: dialTimeout}
}

// session *smtp.Client уже реализует Client.
type session struct {
	*smtp.Client
}

// Connect открывает сессию, готовую к отправке письма.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Transport.Connect"
	log := t.log.With(slog.String("op", op), slog.String("host", t.cfg.SMTPHost))

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort), t.timeout)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}
	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: greeting: %w", op, err)
	}

	abort := func(step string, err error) (Client, error) {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close smtp session", sl.Err(closeErr))
		}
		if step == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %s: %w", op, step, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return abort("", ErrNoStartTLS)
	}
	if err = client.StartTLS(&tls.Config{ServerName: t.cfg.SMTPHost, MinVersion: tls.VersionTLS12}); err != nil {
		return abort("starttls", err)
	}
	if t.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
		if err = client.Auth(auth); err != nil {
			return abort("auth", err)
		}
	}

	return session{Client: client}, nil
}

// GetSMTPUser возвращает имя пользователя SMTP, оно же адрес отправителя.
func (t *Transport) GetSMTPUser() string {
	return t.cfg.SMTPUser
}

// SupportEmail адрес, на который пересылаются обращения.
func (t *Transport) SupportEmail() string {
	return t.cfg.SupportEmail
}
