package mail

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	to, subject, body string
}

type recordingSender struct {
	sent []sent
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.sent = append(r.sent, sent{to, subject, body})
	return nil
}

func TestSendPasswordChanged(t *testing.T) {
	rec := &recordingSender{}
	svc := NewService(rec)

	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.SendPasswordChanged(context.Background(), "ada@example.com", "Ada", at))

	require.Len(t, rec.sent, 1)
	assert.Equal(t, "ada@example.com", rec.sent[0].to)
	assert.Equal(t, "Your password was changed", rec.sent[0].subject)
	assert.Contains(t, rec.sent[0].body, "Hello Ada")
	assert.Contains(t, rec.sent[0].body, "2024-03-10 12:00 UTC")
}

func TestSendPasswordExpired(t *testing.T) {
	rec := &recordingSender{}
	require.NoError(t, NewService(rec).SendPasswordExpired(context.Background(), "ada@example.com", "Ada"))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "Your password has expired", rec.sent[0].subject)
}

func TestSMTPMessageHeaders(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025, From: "no-reply@example.com"})

	var buf bytes.Buffer
	_, err := s.message("ada@example.com", "Subject line", "body text").WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "From: no-reply@example.com")
	assert.Contains(t, out, "To: ada@example.com")
	assert.Contains(t, out, "Subject: Subject line")
	assert.Contains(t, out, "body text")
}

func TestSendHonoursCancelledContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025, From: "no-reply@example.com"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, "ada@example.com", "s", "b"), context.Canceled)
}
