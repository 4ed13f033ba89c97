package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(msg *gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestSendAppliesDefaultFrom(t *testing.T) {
	sender := &fakeSender{}
	p := Plugin(WithFrom("store@example.com"), WithSender(sender))

	msg := gomail.NewMessage()
	msg.SetHeader("To", "shopper@example.com")
	msg.SetHeader("Subject", "Your receipt")
	msg.SetBody("text/plain", "Thanks for your order.")

	require.NoError(t, p.Send(context.Background(), msg))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"store@example.com"}, sender.sent[0].GetHeader("From"))
}

func TestSendKeepsExplicitFrom(t *testing.T) {
	sender := &fakeSender{}
	p := Plugin(WithFrom("store@example.com"), WithSender(sender))

	msg := gomail.NewMessage()
	msg.SetHeader("From", "receipts@example.com")
	msg.SetHeader("To", "shopper@example.com")

	require.NoError(t, p.Send(context.Background(), msg))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"receipts@example.com"}, sender.sent[0].GetHeader("From"))
}

func TestInitValidatesConfig(t *testing.T) {
	p := Plugin(WithSMTP("", 0, "", ""))
	p.from = ""
	require.Error(t, p.Init(context.Background(), nil))

	p = Plugin(WithFrom("store@example.com"))
	p.smtpHost = ""
	assert.ErrorContains(t, p.Init(context.Background(), nil), "smtp host")

	p = Plugin(WithFrom("store@example.com"), WithSender(&fakeSender{}))
	assert.NoError(t, p.Init(context.Background(), nil))
}
