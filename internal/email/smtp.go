package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// implicitTLSPort is the submission port that expects TLS from the first byte.
const implicitTLSPort = 465

type Config struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTP sends plain-text messages through a mail relay.
type SMTP struct {
	log    *logrus.Entry
	config Config
}

func New(log *logrus.Logger, config Config) *SMTP {
	return &SMTP{
		log:    log.WithField("component", "email"),
		config: config,
	}
}

func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("empty recipient for %q", subject)
	}
	message := buildMessage(s.config.From, to, subject, body)
	var err error
	if s.config.Port == implicitTLSPort {
		err = s.sendTLS(ctx, to, message)
	} else {
		err = smtp.SendMail(s.addr(), s.auth(), s.config.From, []string{to}, message)
	}
	if err != nil {
		return fmt.Errorf("err sending %q to %s: %w", subject, to, err)
	}
	s.log.Debugf("sent %q to %s", subject, to)
	return nil
}

func (s *SMTP) addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

func (s *SMTP) auth() smtp.Auth {
	if s.config.Username == "" || s.config.Password == "" {
		return nil
	}
	return smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
}

func (s *SMTP) sendTLS(ctx context.Context, to string, message []byte) error {
	dialer := tls.Dialer{Config: &tls.Config{ServerName: s.config.Host, MinVersion: tls.VersionTLS12}}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr())
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			s.log.Debugf("err during closing smtp client: %v", err)
		}
	}()
	if auth := s.auth(); auth != nil {
		if err = c.Auth(auth); err != nil {
			return err
		}
	}
	if err = c.Mail(s.config.From); err != nil {
		return err
	}
	if err = c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(message); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
