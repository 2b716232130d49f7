package mailer

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/pkg/errors"

	"github.com/customeros/waitlist/dto"
)

type ConfirmationData struct {
	ProductName string
	PublicURL   string
	Email       string
}

const confirmationSubject = "You're on the {{.ProductName}} waitlist"

const confirmationText = `Hi,

Thanks for joining the {{.ProductName}} waitlist with {{.Email}}.
We'll let you know as soon as your spot opens up.

{{.PublicURL}}
`

const confirmationHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
<p>Hi,</p>
<p>Thanks for joining the <strong>{{.ProductName}}</strong> waitlist with {{.Email}}.</p>
<p>We'll let you know as soon as your spot opens up.</p>
<p><a href="{{.PublicURL}}">{{.PublicURL}}</a></p>
</body>
</html>
`

var (
	subjectTemplate = texttemplate.Must(texttemplate.New("subject").Parse(confirmationSubject))
	textTemplate    = texttemplate.Must(texttemplate.New("text").Parse(confirmationText))
	htmlTemplate    = htmltemplate.Must(htmltemplate.New("html").Parse(confirmationHTML))
)

func RenderConfirmation(data ConfirmationData) (dto.OutgoingMessage, error) {
	var subject, text, html bytes.Buffer

	if err := subjectTemplate.Execute(&subject, data); err != nil {
		return dto.OutgoingMessage{}, errors.Wrap(err, "render subject")
	}
	if err := textTemplate.Execute(&text, data); err != nil {
		return dto.OutgoingMessage{}, errors.Wrap(err, "render text body")
	}
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return dto.OutgoingMessage{}, errors.Wrap(err, "render html body")
	}

	return dto.OutgoingMessage{
		To:      data.Email,
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
