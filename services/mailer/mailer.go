package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/waitlist/config"
	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/internal/utils"
)

type smtpMailer struct {
	sender   enmime.Sender
	fromName string
	fromAddr string
}

// NewMailer returns an SMTP mailer, or a log-only mailer when no SMTP host is configured.
func NewMailer(cfg *config.SMTPConfig, log logger.Logger) interfaces.Mailer {
	if cfg == nil || cfg.Host == "" {
		log.Warn("SMTP host not configured, confirmation mails will only be logged")
		return &logMailer{log: log}
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return NewSMTPMailer(enmime.NewSMTP(addr, auth), cfg.FromName, cfg.FromAddress)
}

func NewSMTPMailer(sender enmime.Sender, fromName, fromAddr string) interfaces.Mailer {
	return &smtpMailer{
		sender:   sender,
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

func (m *smtpMailer) Send(ctx context.Context, message dto.OutgoingMessage) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "smtpMailer.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := validateMessage(message); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if message.MessageID == "" {
		message.MessageID = utils.GenerateMessageID(utils.ExtractDomainFromEmail(m.fromAddr), message.To)
	}
	span.SetTag("message.id", message.MessageID)

	builder := enmime.Builder().
		From(m.fromName, m.fromAddr).
		To("", message.To).
		Subject(message.Subject).
		Header("Message-ID", message.MessageID).
		Text([]byte(message.Text))
	if message.HTML != "" {
		builder = builder.HTML([]byte(message.HTML))
	}

	if err := builder.Send(m.sender); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to send mail")
	}
	return nil
}

func validateMessage(message dto.OutgoingMessage) error {
	switch {
	case message.To == "":
		return errors.New("recipient is required")
	case message.Subject == "":
		return errors.New("subject is required")
	case message.Text == "" && message.HTML == "":
		return errors.New("message must have text or HTML content")
	}
	return nil
}

type logMailer struct {
	log logger.Logger
}

func (m *logMailer) Send(ctx context.Context, message dto.OutgoingMessage) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "logMailer.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := validateMessage(message); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	m.log.Infof("mail to %s: %s", utils.MaskEmail(message.To), fmt.Sprintf("%q", message.Subject))
	return nil
}
