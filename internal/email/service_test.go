package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bomanihosts/backend/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	from string
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, from string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.from = from
	r.sent = append(r.sent, msg)
	return r.err
}

func TestNewService_Disabled(t *testing.T) {
	svc, err := NewService(config.EmailConfig{Enabled: false}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	err = svc.Send(context.Background(), Message{To: "guest@example.com", Subject: "Hi", Text: "body"})
	assert.NoError(t, err)
}

func TestNewService_Providers(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmailConfig
		wantErr bool
	}{
		{"smtp", config.EmailConfig{Enabled: true, Provider: "smtp", From: "a@b.com", SMTPHost: "smtp.b.com", SMTPPort: 587}, false},
		{"resend", config.EmailConfig{Enabled: true, Provider: "resend", From: "a@b.com", ResendAPIKey: "re_123"}, false},
		{"unknown", config.EmailConfig{Enabled: true, Provider: "fax", From: "a@b.com"}, true},
		{"bad sender", config.EmailConfig{Enabled: true, Provider: "smtp", From: "not an address"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.cfg, zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestService_SendValidatesRecipient(t *testing.T) {
	sender := &recordingSender{}
	svc := NewServiceWithSender("BomaniHosts <no-reply@bomanihosts.com>", sender, zerolog.Nop())

	err := svc.Send(context.Background(), Message{To: "victim@example.com\r\nBcc: x@y.com", Subject: "s"})
	require.ErrorIs(t, err, ErrInvalidAddress)

	err = svc.Send(context.Background(), Message{To: "nope", Subject: "s"})
	require.ErrorIs(t, err, ErrInvalidAddress)

	err = svc.Send(context.Background(), Message{To: "ok@example.com", Subject: "a\nb"})
	require.Error(t, err)

	assert.Empty(t, sender.sent)
}

func TestService_SendWrapsTransportError(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection reset")}
	svc := NewServiceWithSender("no-reply@bomanihosts.com", sender, zerolog.Nop())

	err := svc.Send(context.Background(), Message{To: "guest@example.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "no-reply@bomanihosts.com", sender.from)
}

func TestBuildMIME(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := buildMIME("BomaniHosts <no-reply@bomanihosts.com>", Message{
		To:      "guest@example.com",
		Subject: "Karibu – ümlaut test",
		Text:    "Plain body",
		HTML:    "<p>HTML body</p>",
	}, now)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "guest@example.com", parsed.Header.Get("To"))
	assert.Contains(t, parsed.Header.Get("Message-ID"), "@bomanihosts.com>")

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Karibu – ümlaut test", subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	var bodies []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		bodies = append(bodies, string(data))
	}
	require.Len(t, bodies, 2)
	assert.Equal(t, "Plain body", bodies[0])
	assert.Equal(t, "<p>HTML body</p>", bodies[1])
}

func TestSMTPSender_RespectsContext(t *testing.T) {
	// A listener that accepts but never speaks SMTP.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	sender := newSMTPSender(config.EmailConfig{SMTPHost: host, SMTPPort: port})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = sender.Send(ctx, "no-reply@bomanihosts.com", Message{To: "guest@example.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestSMTPSender_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	sender := newSMTPSender(config.EmailConfig{SMTPHost: host, SMTPPort: port})
	err = sender.Send(context.Background(), "no-reply@bomanihosts.com", Message{To: "guest@example.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connect"))
}
