package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"
)

// Config holds SMTP settings.
type Config struct {
	Enable bool   `json:"enable"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	User   string `json:"user"`
	Pass   string `json:"pass"`
	From   string `json:"from"`
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender sends emails via SMTP.
type Sender struct {
	cfg Config
}

func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send dispatches an email. No-op when mail is disabled.
func (s *Sender) Send(msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	host := s.cfg.Host
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	body := msg.HTML
	contentType := "text/html; charset=UTF-8"
	if body == "" {
		body = msg.Text
		contentType = "text/plain; charset=UTF-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\nContent-Type: %s\r\n\r\n", contentType)
	b.WriteString(body)

	addr := fmt.Sprintf("%s:%d", host, port)
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, host)
	}
	return smtp.SendMail(addr, auth, from, msg.To, []byte(b.String()))
}

// DefenseReminderData fills the defense reminder template.
type DefenseReminderData struct {
	Name         string
	ProjectTitle string
	Room         string
	ScheduledAt  time.Time
}

var defenseReminderTmpl = template.Must(template.New("defense_reminder").Parse(`
<p>Hi {{.Name}},</p>
<p>This is a reminder that the defense for <b>{{.ProjectTitle}}</b> is scheduled
for {{.ScheduledAt.Format "Mon, 02 Jan 2006 15:04"}} in room {{.Room}}.</p>
<p>— GradFlow</p>
`))

// SendDefenseReminder emails a defense reminder to a participant.
func (s *Sender) SendDefenseReminder(to string, data DefenseReminderData) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := defenseReminderTmpl.Execute(&buf, data); err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Upcoming defense: %s", data.ProjectTitle),
		HTML:    buf.String(),
	})
}
