package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strings"
	texttemplate "text/template"
	"time"

	"go.uber.org/zap"
)

type MailService interface {
	SendOnboardingLink(ctx context.Context, to, schoolName, link string) error
	SendStaffCredentials(ctx context.Context, to, schoolName, loginURL, tempPassword string) error
}

// SMTPConfig holds the SMTP server and sender identity.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	UseSSL   bool // implicit TLS (465); STARTTLS otherwise
}

type smtpMailService struct {
	cfg      SMTPConfig
	htmlTpl  *template.Template
	plainTpl *texttemplate.Template
	log      *zap.Logger
	now      func() time.Time
}

// NewMailService returns a no-op sender when no SMTP host is configured.
func NewMailService(cfg SMTPConfig, log *zap.Logger) MailService {
	log = log.Named("mail")
	if cfg.Host == "" {
		log.Info("SMTP not configured; outgoing mail disabled")
		return &noopMailService{log: log}
	}
	return &smtpMailService{
		cfg:      cfg,
		htmlTpl:  template.Must(template.New("html").Parse(emailHTML)),
		plainTpl: texttemplate.Must(texttemplate.New("plain").Parse(emailPlain)),
		log:      log,
		now:      time.Now,
	}
}

type noopMailService struct {
	log *zap.Logger
}

func (n *noopMailService) SendOnboardingLink(_ context.Context, to, schoolName, _ string) error {
	n.log.Debug("mail skipped", zap.String("kind", "onboarding_link"), zap.String("school", schoolName))
	return nil
}

func (n *noopMailService) SendStaffCredentials(_ context.Context, to, schoolName, _, _ string) error {
	n.log.Debug("mail skipped", zap.String("kind", "staff_credentials"), zap.String("school", schoolName))
	return nil
}

// ------------------- Public API -------------------

func (s *smtpMailService) SendOnboardingLink(ctx context.Context, to, schoolName, link string) error {
	return s.deliver(ctx, to, emailData{
		Title:     "Finish setting up payments for " + schoolName,
		Intro:     "Your school billing account has been created. Complete the payment provider's verification to start accepting tuition payments.",
		ButtonURL: link,
		ButtonTxt: "Continue setup",
		School:    schoolName,
	})
}

func (s *smtpMailService) SendStaffCredentials(ctx context.Context, to, schoolName, loginURL, tempPassword string) error {
	return s.deliver(ctx, to, emailData{
		Title:     "Your staff login for " + schoolName,
		Intro:     "A staff account was created for you. Sign in with this email address and the temporary password below.",
		Detail:    tempPassword,
		ButtonURL: loginURL,
		ButtonTxt: "Sign in",
		School:    schoolName,
	})
}

// ------------------- Rendering -------------------

type emailData struct {
	Title     string
	Intro     string
	Detail    string
	ButtonURL string
	ButtonTxt string
	School    string
	Year      int
}

const emailHTML = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body { margin: 0; padding: 0; background: #f1f5f9; color: #0f172a; font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; }
    .container { max-width: 560px; margin: 32px auto; background: #ffffff; border-radius: 12px; overflow: hidden; }
    .header { padding: 24px 28px; background: #1e3a8a; color: #ffffff; font-weight: 700; font-size: 18px; }
    .body { padding: 28px; }
    h1 { margin: 0 0 16px; font-size: 22px; }
    p { margin: 0 0 18px; line-height: 1.6; color: #334155; }
    .detail { font-family: monospace; font-size: 18px; padding: 12px 16px; background: #f8fafc; border: 1px solid #e2e8f0; border-radius: 8px; }
    .btn { display: inline-block; padding: 14px 28px; background: #2563eb; color: #ffffff !important; text-decoration: none; border-radius: 8px; font-weight: 600; }
    .muted { color: #64748b; font-size: 13px; word-break: break-all; }
    .footer { padding: 18px 28px; color: #64748b; font-size: 12px; text-align: center; border-top: 1px solid #e2e8f0; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">{{.School}}</div>
    <div class="body">
      <h1>{{.Title}}</h1>
      <p>{{.Intro}}</p>
      {{if .Detail}}<p class="detail">{{.Detail}}</p>{{end}}
      {{if .ButtonURL}}
        <p><a class="btn" href="{{.ButtonURL}}">{{.ButtonTxt}}</a></p>
        <p class="muted">Or open this link: {{.ButtonURL}}</p>
      {{end}}
    </div>
    <div class="footer">{{.School}} &middot; {{.Year}}</div>
  </div>
</body>
</html>`

const emailPlain = `{{.Title}}

{{.Intro}}
{{if .Detail}}
    {{.Detail}}
{{end}}{{if .ButtonURL}}
{{.ButtonTxt}}: {{.ButtonURL}}
{{end}}
{{.School}} ({{.Year}})
`

func (s *smtpMailService) render(data emailData) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := s.htmlTpl.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := s.plainTpl.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

func (s *smtpMailService) deliver(ctx context.Context, to string, data emailData) error {
	data.Year = s.now().Year()
	html, text, err := s.render(data)
	if err != nil {
		return fmt.Errorf("render mail: %w", err)
	}
	if err := s.send(ctx, to, data.Title, html, text); err != nil {
		s.log.Error("mail delivery failed", zap.String("subject", data.Title), zap.Error(err))
		return err
	}
	s.log.Info("mail sent", zap.String("subject", data.Title))
	return nil
}

// ------------------- SMTP Send -------------------

func (s *smtpMailService) message(to, subject, htmlBody, textBody string) []byte {
	boundary := fmt.Sprintf("alt_%d", s.now().UnixNano())

	var msg bytes.Buffer
	write := func(format string, a ...any) { fmt.Fprintf(&msg, format, a...) }

	write("From: %s\r\n", s.fromHeader())
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	write("Date: %s\r\n", s.now().Format(time.RFC1123Z))
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	for _, part := range []struct{ ctype, body string }{
		{"text/plain", textBody},
		{"text/html", htmlBody},
	} {
		write("--%s\r\n", boundary)
		write("Content-Type: %s; charset=UTF-8\r\n", part.ctype)
		write("Content-Transfer-Encoding: 8bit\r\n\r\n")
		write("%s\r\n\r\n", part.body)
	}
	write("--%s--\r\n", boundary)
	return msg.Bytes()
}

func (s *smtpMailService) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	tlsCfg := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var conn net.Conn
	var err error
	if s.cfg.UseSSL {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if !s.cfg.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return fmt.Errorf("smtp server %s does not offer STARTTLS", s.cfg.Host)
		}
		if err := c.StartTLS(tlsCfg); err != nil {
			return err
		}
	}

	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(s.message(to, subject, htmlBody, textBody)); err != nil {
		return err
	}
	return w.Close()
}

func (s *smtpMailService) fromHeader() string {
	name := strings.TrimSpace(s.cfg.FromName)
	if name == "" {
		return s.cfg.From
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), s.cfg.From)
}
