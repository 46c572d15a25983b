// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail delivers transactional email over SMTP.

Delivery is split in two. A [Sender] makes exactly one attempt, and [Deliver]
wraps it in the bounded retry policy. Neither ever reaches the HTTP caller:
the API hands messages to the queue (or a detached goroutine) and moves on.
*/
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// ActivationSubject is the subject line of account activation emails.
const ActivationSubject = "Account activation"

// Message is one outbound plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// ActivationMessage builds the email that carries an account activation link.
func ActivationMessage(to, link string) Message {
	return Message{
		To:      to,
		Subject: ActivationSubject,
		Body:    "Activate your account: " + link,
	}
}

// Sender performs a single delivery attempt.
type Sender interface {
	Send(context context.Context, message Message) error
}

// # SMTP

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender sends mail through a relay that supports STARTTLS.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender returns a sender for cfg. A zero Timeout defaults to 30s.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{cfg: cfg}
}

/*
Send opens a connection, upgrades it with STARTTLS when offered, authenticates
and writes the message.

Returns:
  - error: A *textproto.Error for protocol replies, otherwise a network error.
*/
func (sender *SMTPSender) Send(context context.Context, message Message) error {
	address := net.JoinHostPort(sender.cfg.Host, sender.cfg.Port)

	dialer := net.Dialer{Timeout: sender.cfg.Timeout}
	conn, err := dialer.DialContext(context, "tcp", address)
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", address, err)
	}

	deadline := time.Now().Add(sender.cfg.Timeout)
	if contextDeadline, ok := context.Deadline(); ok && contextDeadline.Before(deadline) {
		deadline = contextDeadline
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, sender.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: sender.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}

	if sender.cfg.Username != "" {
		auth := smtp.PlainAuth("", sender.cfg.Username, sender.cfg.Password, sender.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}

	if err := client.Mail(sender.cfg.From); err != nil {
		return fmt.Errorf("mail: sender rejected: %w", err)
	}
	if err := client.Rcpt(message.To); err != nil {
		return fmt.Errorf("mail: recipient rejected: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: data: %w", err)
	}
	if _, err := writer.Write(compose(sender.cfg.From, message)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("mail: write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("mail: data close: %w", err)
	}

	return client.Quit()
}

// compose renders the RFC 5322 message. Header values are stripped of line breaks.
func compose(from string, message Message) []byte {
	var buffer bytes.Buffer

	header := func(name, value string) {
		value = strings.NewReplacer("\r", "", "\n", "").Replace(value)
		buffer.WriteString(name + ": " + value + "\r\n")
	}

	header("From", from)
	header("To", message.To)
	header("Subject", mime.QEncoding.Encode("utf-8", message.Subject))
	header("Date", time.Now().UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	buffer.WriteString("\r\n")
	buffer.WriteString(strings.ReplaceAll(message.Body, "\n", "\r\n"))
	buffer.WriteString("\r\n")

	return buffer.Bytes()
}
