// Package email delivers verification emails through a primary transactional
// provider with an optional fallback, and reports each outcome to an
// operations webhook. The user never learns whether delivery worked.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templates embed.FS

var verifyTemplate = template.Must(template.ParseFS(templates, "templates/verify.html"))

type Message struct {
	To      string
	From    string
	Subject string
	HTML    string
}

type verifyVars struct {
	Username string
	Link     string
	Expiry   string
}

func renderVerification(from, username, address, link string, expiry time.Duration) (Message, error) {
	var buf bytes.Buffer
	err := verifyTemplate.Execute(&buf, verifyVars{
		Username: username,
		Link:     link,
		Expiry:   expiry.String(),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}
	return Message{
		To:      address,
		From:    from,
		Subject: "Hatch.lol verification for " + username,
		HTML:    buf.String(),
	}, nil
}
