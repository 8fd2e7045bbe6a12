package mailer

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/config"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP accepts one session without TLS or auth and returns the DATA payload.
func fakeSMTP(t *testing.T) (host string, port int, data <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch cmd {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 8BITMIME")
			case "MAIL", "RCPT", "RSET", "NOOP":
				_ = tp.PrintfLine("250 OK")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				body, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				out <- string(body)
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 not implemented")
			}
		}
	}()

	h, p, _ := net.SplitHostPort(ln.Addr().String())
	port, _ = strconv.Atoi(p)
	return h, port, out
}

func TestSMTPMailer_Send(t *testing.T) {
	host, port, data := fakeSMTP(t)

	m := NewSMTPMailer(config.SMTPConfig{Host: host, Port: port, From: "Admin <noreply@example.com>"}, logger.Discard())
	msg, err := PasswordReset("user@example.com", "http://localhost:3000/pt_BR/reset-password?token=abc")
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), msg))

	select {
	case body := <-data:
		r := textproto.NewReader(bufio.NewReader(strings.NewReader(body)))
		hdr, err := r.ReadMIMEHeader()
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", hdr.Get("To"))
		assert.Contains(t, hdr.Get("From"), "noreply@example.com")
		assert.Contains(t, body, "reset-password?token=abc")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestNew_FallsBackToLogMailer(t *testing.T) {
	s := New(config.SMTPConfig{}, logger.Discard())

	_, ok := s.(*LogMailer)
	require.True(t, ok)
	assert.NoError(t, s.Send(context.Background(), Message{To: "a@b.c", Subject: "x"}))
}

func TestTemplates(t *testing.T) {
	msg, err := TwoFactorCode("a@b.c", "123456", 10)
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "123456")
	assert.Contains(t, msg.HTML, "10 minutos")

	msg, err = PasswordReset("a@b.c", `http://x/?token=<script>`)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")

	msg, err = TestMessage("a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", msg.To)
}

func TestBuildMessage(t *testing.T) {
	raw := string(buildMessage("Admin <noreply@example.com>", Message{To: "a@b.c", Subject: "Código", HTML: "<p>x</p>"}, time.Unix(0, 0)))

	assert.True(t, strings.HasPrefix(raw, "From: Admin <noreply@example.com>\r\n"))
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.Contains(t, raw, "\r\n\r\n<p>x</p>")
}
