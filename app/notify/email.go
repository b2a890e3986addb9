package notify

import (
	"time"

	"github.com/go-pkgz/notify"
)

// EmailParams defines smtp connection for reminder e-mails
type EmailParams struct {
	Host      string
	Port      int
	TLS       bool
	StartTLS  bool
	Username  string
	Password  string
	LoginAuth bool // LOGIN auth instead of PLAIN, needed for some providers
	TimeOut   time.Duration
}

// NewEmail makes html e-mail destination, returns nil if the host is not set
func NewEmail(p EmailParams) notify.Notifier {
	if p.Host == "" {
		return nil
	}
	return notify.NewEmail(notify.SMTPParams{
		Host:        p.Host,
		Port:        p.Port,
		TLS:         p.TLS,
		StartTLS:    p.StartTLS,
		ContentType: "text/html",
		Charset:     "UTF-8",
		Username:    p.Username,
		Password:    p.Password,
		LoginAuth:   p.LoginAuth,
		TimeOut:     p.TimeOut,
	})
}
