package mail

import (
	"bytes"
	"context"
	"testing"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWelcomeMessage(t *testing.T) {
	msg, err := WelcomeMessage("jane@example.com", "Jane <Doe>", "jane")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Contains(t, msg.Text, "jane")
	// names are HTML-escaped in the HTML part
	assert.Contains(t, msg.HTML, "Jane &lt;Doe&gt;")
}

func TestConsoleSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSender("noreply@crm.local", zerolog.New(&buf))
	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.c", Subject: "Hi", Text: "body"}))
	assert.Contains(t, buf.String(), `"to":"a@b.c"`)
	assert.Contains(t, buf.String(), `"subject":"Hi"`)
}

func TestNew_SelectsBackend(t *testing.T) {
	_, ok := New(config.MailConfig{Backend: "console"}, zerolog.Nop()).(*ConsoleSender)
	assert.True(t, ok)
	_, ok = New(config.MailConfig{Backend: "smtp", Host: "localhost", Port: 25}, zerolog.Nop()).(*SMTPSender)
	assert.True(t, ok)
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	s := NewSMTPSender("localhost", 1, "", "", "noreply@crm.local")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "a@b.c"}), context.Canceled)
}
