package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	otpHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/otp.html.tmpl"))
	otpText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/otp.txt.tmpl"))
)

// Purpose selects the wording of a code email.
type Purpose int

const (
	PurposeSignup Purpose = iota
	PurposeResend
)

const (
	subjectSignup = "Verify your email address - Take All Notes"
	subjectResend = "Take All Notes App - New OTP Verification Code"
)

type otpData struct {
	Code    string
	Email   string
	Minutes int
}

// NewOTPMessage renders the verification email carrying code.
func NewOTPMessage(purpose Purpose, to, code string, validFor time.Duration) (Message, error) {
	data := otpData{Code: code, Email: to, Minutes: int(validFor.Round(time.Minute) / time.Minute)}

	var html, text bytes.Buffer
	if err := otpHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render otp html: %w", err)
	}
	if err := otpText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render otp text: %w", err)
	}

	subject := subjectSignup
	if purpose == PurposeResend {
		subject = subjectResend
	}
	return Message{
		To:       to,
		Subject:  subject,
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}
