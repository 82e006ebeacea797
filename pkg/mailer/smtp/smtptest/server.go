// Package smtptest runs an in-process SMTP server that records the messages
// it receives. It implements just enough of RFC 5321 for the smtp sender:
// EHLO, STARTTLS, AUTH PLAIN, MAIL, RCPT, DATA, RSET, NOOP and QUIT.
package smtptest

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Message is one accepted DATA transaction.
type Message struct {
	From string
	To   []string
	Data []byte
	TLS  bool
	User string
}

// Option configures a Server.
type Option func(*Server)

// WithCredentials makes the server require AUTH PLAIN with user and password.
// Wrong credentials are rejected with 535.
func WithCredentials(user, password string) Option {
	return func(s *Server) {
		s.user = user
		s.password = password
		s.authRequired = true
	}
}

// WithSTARTTLS makes the server advertise STARTTLS using a self-signed
// certificate for 127.0.0.1. Use ClientTLSConfig on the client side.
func WithSTARTTLS() Option {
	return func(s *Server) {
		s.startTLS = true
	}
}

// Server is a recording SMTP server listening on 127.0.0.1.
type Server struct {
	ln           net.Listener
	tlsConfig    *tls.Config
	clientTLS    *tls.Config
	user         string
	password     string
	authRequired bool
	startTLS     bool

	mu       sync.Mutex
	messages []Message
	wg       sync.WaitGroup
}

// NewServer starts a server and registers its shutdown with t.Cleanup.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}

	if s.startTLS {
		serverCfg, clientCfg, err := selfSignedTLS()
		if err != nil {
			t.Fatalf("smtptest: generate certificate: %v", err)
		}
		s.tlsConfig = serverCfg
		s.clientTLS = clientCfg
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtptest: listen: %v", err)
	}
	s.ln = ln

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)
	return s
}

// Host returns the listening IP.
func (s *Server) Host() string {
	return "127.0.0.1"
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// ClientTLSConfig returns a client config trusting the server certificate.
// Nil unless WithSTARTTLS was used.
func (s *Server) ClientTLSConfig() *tls.Config {
	if s.clientTLS == nil {
		return nil
	}
	return s.clientTLS.Clone()
}

// Messages returns a copy of the accepted messages.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Close stops the listener and waits for open sessions.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

type session struct {
	conn   net.Conn
	r      *bufio.Reader
	tls    bool
	user   string
	authed bool
	from   string
	to     []string
}

func (ss *session) reply(format string, args ...any) {
	_, _ = fmt.Fprintf(ss.conn, format+"\r\n", args...)
}

func (s *Server) handle(conn net.Conn) {
	ss := &session{conn: conn, r: bufio.NewReader(conn)}
	defer func() { _ = ss.conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	ss.reply("220 127.0.0.1 smtptest ready")

	for {
		line, err := ss.r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb, arg, _ := strings.Cut(line, " ")

		switch strings.ToUpper(verb) {
		case "EHLO", "HELO":
			s.ehlo(ss)
		case "STARTTLS":
			if s.tlsConfig == nil || ss.tls {
				ss.reply("502 5.5.1 STARTTLS not available")
				continue
			}
			ss.reply("220 2.0.0 Ready to start TLS")
			tlsConn := tls.Server(ss.conn, s.tlsConfig)
			if err := tlsConn.Handshake(); err != nil {
				return
			}
			ss.conn = tlsConn
			ss.r = bufio.NewReader(tlsConn)
			ss.tls = true
			ss.authed = false
		case "AUTH":
			s.auth(ss, arg)
		case "MAIL":
			if s.authRequired && !ss.authed {
				ss.reply("530 5.7.0 Authentication required")
				continue
			}
			ss.from = trimPath(arg, "FROM:")
			ss.to = nil
			ss.reply("250 2.1.0 OK")
		case "RCPT":
			if ss.from == "" {
				ss.reply("503 5.5.1 Need MAIL first")
				continue
			}
			ss.to = append(ss.to, trimPath(arg, "TO:"))
			ss.reply("250 2.1.5 OK")
		case "DATA":
			if len(ss.to) == 0 {
				ss.reply("503 5.5.1 Need RCPT first")
				continue
			}
			s.data(ss)
		case "RSET":
			ss.from, ss.to = "", nil
			ss.reply("250 2.0.0 OK")
		case "NOOP":
			ss.reply("250 2.0.0 OK")
		case "QUIT":
			ss.reply("221 2.0.0 Bye")
			return
		default:
			ss.reply("502 5.5.2 Command not recognized")
		}
	}
}

func (s *Server) ehlo(ss *session) {
	exts := []string{"250-127.0.0.1 Hello", "250-8BITMIME"}
	if s.tlsConfig != nil && !ss.tls {
		exts = append(exts, "250-STARTTLS")
	}
	exts = append(exts, "250-AUTH PLAIN", "250 SIZE 10485760")
	for _, e := range exts {
		ss.reply("%s", e)
	}
}

// auth handles "AUTH PLAIN <initial-response>" as sent by net/smtp.
func (s *Server) auth(ss *session, arg string) {
	mech, resp, _ := strings.Cut(arg, " ")
	if !strings.EqualFold(mech, "PLAIN") {
		ss.reply("504 5.5.4 Unrecognized authentication type")
		return
	}
	if resp == "" {
		ss.reply("334 ")
		line, err := ss.r.ReadString('\n')
		if err != nil {
			return
		}
		resp = strings.TrimSpace(line)
	}

	raw, err := base64.StdEncoding.DecodeString(resp)
	if err != nil {
		ss.reply("501 5.5.2 Cannot decode response")
		return
	}
	parts := strings.SplitN(string(raw), "\x00", 3)
	if len(parts) != 3 {
		ss.reply("501 5.5.2 Malformed PLAIN response")
		return
	}
	if s.authRequired && (parts[1] != s.user || parts[2] != s.password) {
		ss.reply("535 5.7.8 Authentication credentials invalid")
		return
	}

	ss.user = parts[1]
	ss.authed = true
	ss.reply("235 2.7.0 Authentication successful")
}

func (s *Server) data(ss *session) {
	ss.reply("354 End data with <CR><LF>.<CR><LF>")

	var b strings.Builder
	for {
		line, err := ss.r.ReadString('\n')
		if err != nil {
			return
		}
		if line == ".\r\n" || line == ".\n" {
			break
		}
		// Undo dot-stuffing.
		line = strings.TrimPrefix(line, ".")
		b.WriteString(line)
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{
		From: ss.from,
		To:   append([]string(nil), ss.to...),
		Data: []byte(b.String()),
		TLS:  ss.tls,
		User: ss.user,
	})
	n := len(s.messages)
	s.mu.Unlock()

	ss.from, ss.to = "", nil
	ss.reply("250 2.0.0 OK: queued as %s", strconv.Itoa(n))
}

// trimPath turns "FROM:<a@b.c> SIZE=10" into "a@b.c".
func trimPath(arg, prefix string) string {
	arg = strings.TrimSpace(arg)
	if len(arg) >= len(prefix) && strings.EqualFold(arg[:len(prefix)], prefix) {
		arg = arg[len(prefix):]
	}
	arg, _, _ = strings.Cut(strings.TrimSpace(arg), " ")
	return strings.TrimSuffix(strings.TrimPrefix(arg, "<"), ">")
}

func selfSignedTLS() (server, client *tls.Config, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "smtptest"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:              []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	server = &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key, Leaf: cert}},
		MinVersion:   tls.VersionTLS12,
	}
	client = &tls.Config{
		RootCAs:    pool,
		ServerName: "127.0.0.1",
		MinVersion: tls.VersionTLS12,
	}
	return server, client, nil
}
