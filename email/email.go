// Package email provides an interface for plugins and application code to
// send email, such as order receipts. [Gomail](gopkg.in/gomail.v2) is used
// with SMTP as the default.
//
// SMTP can be configured using global configuration, either as ENV or from
// a configuration file.
//
// |-------------------------|---------------------|
// | Env                     | JSON                |
// | ------------------------|---------------------|
// | SF__EMAIL__FROM         | email.from          |
// | SF__EMAIL__SMTP__HOST   | email.smtp.host     |
// | SF__EMAIL__SMTP__PORT   | email.smtp.port     |
// | SF__EMAIL__SMTP__USER   | email.smtp.username |
// | SF__EMAIL__SMTP__PASS   | email.smtp.password |
// |-------------------------|---------------------|
package email

import (
	"context"
	"errors"

	"gopkg.in/gomail.v2"

	"github.com/dpup/storefront"
	"github.com/dpup/storefront/logging"
)

// Constant name for identifying the email plugin.
const PluginName = "email"

func init() {
	storefront.RegisterConfigKeys(
		storefront.ConfigKeyInfo{Key: "email.from", Description: "Default from address for outbound mail", Type: "string"},
		storefront.ConfigKeyInfo{Key: "email.smtp.host", Description: "SMTP server host", Type: "string"},
		storefront.ConfigKeyInfo{Key: "email.smtp.port", Description: "SMTP server port", Type: "int"},
		storefront.ConfigKeyInfo{Key: "email.smtp.username", Description: "SMTP username", Type: "string"},
		storefront.ConfigKeyInfo{Key: "email.smtp.password", Description: "SMTP password", Type: "string"},
	)
}

// Sender is an interface for sending emails. This abstraction allows for
// testing without requiring a real SMTP connection.
type Sender interface {
	DialAndSend(*gomail.Message) error
}

// gomailDialer wraps gomail.Dialer to implement the Sender interface.
type gomailDialer struct {
	dialer *gomail.Dialer
}

func (g *gomailDialer) DialAndSend(msg *gomail.Message) error {
	return g.dialer.DialAndSend(msg)
}

// EmailOption customizes the configuration of the email plugin.
type EmailOption func(*EmailPlugin)

// WithSMTP configures the SMTP server to use.
func WithSMTP(host string, port int, username, password string) EmailOption {
	return func(p *EmailPlugin) {
		p.smtpHost = host
		p.smtpPort = port
		p.smtpUsername = username
		p.smtpPassword = password
	}
}

// WithFrom configures the default from address.
func WithFrom(from string) EmailOption {
	return func(p *EmailPlugin) {
		p.from = from
	}
}

// WithSender configures a custom Sender implementation. This is primarily
// useful for testing, allowing you to inject a mock sender.
func WithSender(sender Sender) EmailOption {
	return func(p *EmailPlugin) {
		p.sender = sender
	}
}

// Plugin returns a new EmailPlugin.
func Plugin(opts ...EmailOption) *EmailPlugin {
	cfg := storefront.Config
	p := &EmailPlugin{
		from:         cfg.String("email.from"),
		smtpHost:     cfg.String("email.smtp.host"),
		smtpPort:     cfg.Int("email.smtp.port"),
		smtpUsername: cfg.String("email.smtp.username"),
		smtpPassword: cfg.String("email.smtp.password"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EmailPlugin exposes the ability to send emails.
type EmailPlugin struct {
	from         string
	smtpHost     string
	smtpPort     int
	smtpUsername string
	smtpPassword string
	sender       Sender
}

// From storefront.Plugin.
func (p *EmailPlugin) Name() string {
	return PluginName
}

// From storefront.InitializablePlugin.
func (p *EmailPlugin) Init(ctx context.Context, r *storefront.Registry) error {
	if p.from == "" {
		return errors.New("email: config missing from address")
	}
	// A custom sender doesn't need SMTP settings.
	if p.sender != nil {
		return nil
	}
	if p.smtpHost == "" {
		return errors.New("email: config missing smtp host")
	}
	if p.smtpPort == 0 {
		return errors.New("email: config missing smtp port")
	}
	if p.smtpUsername == "" {
		return errors.New("email: config missing smtp username")
	}
	if p.smtpPassword == "" {
		return errors.New("email: config missing smtp password")
	}
	return nil
}

// Send an email.
func (p *EmailPlugin) Send(ctx context.Context, msg *gomail.Message) error {
	logging.Infow(ctx, "sending mail", "to", msg.GetHeader("To"))
	if len(msg.GetHeader("From")) == 0 {
		msg.SetHeader("From", p.from)
	}

	sender := p.sender
	if sender == nil {
		sender = &gomailDialer{
			dialer: gomail.NewDialer(p.smtpHost, p.smtpPort, p.smtpUsername, p.smtpPassword),
		}
	}

	return sender.DialAndSend(msg)
}
