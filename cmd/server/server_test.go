package main

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nickyhof/mydb"
	"github.com/nickyhof/mydb/engine"
	"github.com/nickyhof/mydb/mydbtest"
)

func openTestDB(t *testing.T, opts ...mydb.Option) *mydb.DB {
	t.Helper()
	lib, _ := mydbtest.NewLibrary(t, engine.WithDriver(engine.DriverSQLite))
	db, err := mydb.Open(lib, engine.MemoryPath, opts...)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return db
}

func setupTestServer(t *testing.T) (*Server, func()) {
	db := openTestDB(t)

	server := NewServer(db, nil)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	return server, func() {
		server.Stop()
		db.Close()
	}
}

// session is one client connection speaking the line protocol.
type session struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *session {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &session{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (s *session) send(line string) Response {
	s.t.Helper()
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		s.t.Fatalf("Failed to send query: %v", err)
	}

	s.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	data, err := s.reader.ReadString('\n')
	if err != nil {
		s.t.Fatalf("Failed to read response: %v", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		s.t.Fatalf("Failed to parse response %q: %v", data, err)
	}
	return resp
}

func sendQuery(t *testing.T, addr, query string) Response {
	t.Helper()
	return dial(t, addr).send(query)
}

func containsString(s, substr string) bool {
	return strings.Contains(s, substr)
}

func expectStatus(t *testing.T, resp Response, want int32) {
	t.Helper()
	if resp.Status == nil {
		t.Fatalf("Expected status %d, got none (error: %s)", want, resp.Error)
	}
	if *resp.Status != want {
		t.Errorf("Expected status %d, got %d", want, *resp.Status)
	}
}

func expectResult(t *testing.T, resp Response, want string) {
	t.Helper()
	if string(resp.Result) != want {
		t.Errorf("Expected result %s, got: %s", want, resp.Result)
	}
}

// expectFailure checks a failed response whose error mentions msg.
func expectFailure(t *testing.T, resp Response, msg string) {
	t.Helper()
	if resp.Success {
		t.Errorf("Expected failure containing %q", msg)
	}
	if !containsString(resp.Error, msg) {
		t.Errorf("Expected error containing %q, got: %s", msg, resp.Error)
	}
}

// expectRejected is expectFailure for requests that never reached the engine.
func expectRejected(t *testing.T, resp Response, msg string) {
	t.Helper()
	expectFailure(t, resp, msg)
	if resp.Status != nil {
		t.Errorf("Expected no engine status, got %d", *resp.Status)
	}
}

func TestServerStartStop(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
	if server.TLSEnabled() {
		t.Error("Expected TLS to be disabled")
	}
}

func TestServerCreateTable(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendQuery(t, server.Addr(), "CREATE TABLE users (id INT, name VARCHAR)")
	if !resp.Success {
		t.Fatalf("Query failed: %s", resp.Error)
	}
	expectStatus(t, resp, 0)
	if resp.Type != TypeJSON {
		t.Errorf("Expected 'json' type, got: %s", resp.Type)
	}
	if !containsString(string(resp.Result), `"message":"Executed."`) {
		t.Errorf("Expected acknowledgement, got: %s", resp.Result)
	}
}

func TestServerSelect(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	s := dial(t, server.Addr())
	s.send("CREATE TABLE users (id INT, name VARCHAR)")
	s.send("INSERT INTO users VALUES (1, 'Alice'), (2, 'Bob')")

	resp := s.send("SELECT id, name FROM users ORDER BY id")
	if !resp.Success {
		t.Fatalf("Query failed: %s", resp.Error)
	}
	if resp.Type != TypeRows {
		t.Errorf("Expected 'rows' type, got: %s", resp.Type)
	}
	expectResult(t, resp, `[{"id":1,"name":"Alice"},{"id":2,"name":"Bob"}]`)
}

func TestServerJSONRequest(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendQuery(t, server.Addr(), `{"query":"SELECT 1 AS one"}`)
	if !resp.Success {
		t.Fatalf("Query failed: %s", resp.Error)
	}
	expectResult(t, resp, `[{"one":1}]`)

	resp = sendQuery(t, server.Addr(), `{"query":`)
	expectRejected(t, resp, "invalid request")
}

func TestServerError(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendQuery(t, server.Addr(), "SELECT * FROM nonexistent")
	if resp.Success {
		t.Error("Expected failure for missing table")
	}
	expectStatus(t, resp, int32(engine.StatusPrepareFailed))
	if !containsString(resp.Error, "status -3") {
		t.Errorf("Expected status in error, got: %s", resp.Error)
	}
	if !containsString(string(resp.Result), `"ok":false`) {
		t.Errorf("Expected error payload, got: %s", resp.Result)
	}
}

func TestServerInvalidCommand(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendQuery(t, server.Addr(), "SELECT '\xff'")
	expectRejected(t, resp, "invalid command")
}

func TestServerPersistentConnection(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	s := dial(t, server.Addr())
	queries := []string{
		"CREATE TABLE items (id INT)",
		"INSERT INTO items VALUES (1)",
		"INSERT INTO items VALUES (2)",
		"SELECT COUNT(*) AS n FROM items",
	}

	var last Response
	for _, q := range queries {
		last = s.send(q)
		if !last.Success {
			t.Fatalf("Query %q failed: %s", q, last.Error)
		}
	}
	expectResult(t, last, `[{"n":2}]`)
}

func TestServerSharedDatabase(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	first := dial(t, server.Addr())
	second := dial(t, server.Addr())

	first.send("CREATE TABLE shared (id INT)")
	first.send("INSERT INTO shared VALUES (7)")

	resp := second.send("SELECT id FROM shared")
	if !resp.Success {
		t.Fatalf("Query failed: %s", resp.Error)
	}
	expectResult(t, resp, `[{"id":7}]`)
}

func TestServerQuit(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	s := dial(t, server.Addr())
	_, err := s.conn.Write([]byte("quit\n"))
	if err != nil {
		t.Fatalf("Failed to send quit: %v", err)
	}

	s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err = s.reader.ReadString('\n'); !errors.Is(err, io.EOF) {
		t.Errorf("Expected connection to be closed, got: %v", err)
	}
}

func TestServerStopClosesIdleConnections(t *testing.T) {
	server, cleanup := setupTestServer(t)

	s := dial(t, server.Addr())
	s.send("SELECT 1")

	stopped := make(chan struct{})
	go func() {
		cleanup()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while a client was connected")
	}
}

func TestServerStopTwice(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
	// cleanup stops the server a second time.
}

func TestServerStopWithoutStart(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	server := NewServer(db, nil)
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server again: %v", err)
	}
}

// setupAuthTestServer creates a server with authentication enabled
func setupAuthTestServer(t *testing.T, authConfig *AuthConfig) (*Server, func()) {
	db := openTestDB(t)

	server := NewServerWithAuth(db, authConfig, nil)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	return server, func() {
		server.Stop()
		db.Close()
	}
}

// createTestJWT creates a JWT token for testing
func createTestJWT(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to create test JWT: %v", err)
	}
	return tokenString
}

func userClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"name":  "Test User",
		"email": "test@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestAuthRequired(t *testing.T) {
	server, cleanup := setupAuthTestServer(t, &AuthConfig{Enabled: true, JWTSecret: "test-secret"})
	defer cleanup()

	resp := sendQuery(t, server.Addr(), "CREATE TABLE t (id INT)")
	if resp.Success {
		t.Error("Expected failure when not authenticated")
	}
	if !strings.Contains(resp.Error, "authentication required") {
		t.Errorf("Expected 'authentication required' error, got: %s", resp.Error)
	}
}

func TestAuthWithValidJWT(t *testing.T) {
	secret := "test-secret"
	server, cleanup := setupAuthTestServer(t, &AuthConfig{Enabled: true, JWTSecret: secret})
	defer cleanup()

	s := dial(t, server.Addr())
	resp := s.send("AUTH JWT " + createTestJWT(t, secret, userClaims()))

	if !resp.Success {
		t.Fatalf("Auth failed: %s", resp.Error)
	}
	if resp.Type != TypeAuth {
		t.Errorf("Expected 'auth' type, got: %s", resp.Type)
	}

	var authResp AuthResponse
	if err := json.Unmarshal(resp.Result, &authResp); err != nil {
		t.Fatalf("Failed to parse auth result: %v", err)
	}
	if !authResp.Authenticated {
		t.Error("Expected authenticated=true")
	}
	if authResp.Identity != "Test User <test@example.com>" {
		t.Errorf("Expected identity 'Test User <test@example.com>', got: %s", authResp.Identity)
	}
	if authResp.ExpiresIn <= 0 {
		t.Errorf("Expected positive expires_in, got: %d", authResp.ExpiresIn)
	}

	resp = s.send("CREATE TABLE authtest (id INT)")
	if !resp.Success {
		t.Errorf("Query after auth failed: %s", resp.Error)
	}
}

func TestAuthWithInvalidJWT(t *testing.T) {
	server, cleanup := setupAuthTestServer(t, &AuthConfig{Enabled: true, JWTSecret: "test-secret"})
	defer cleanup()

	s := dial(t, server.Addr())
	resp := s.send("AUTH JWT " + createTestJWT(t, "wrong-secret", userClaims()))
	if resp.Success {
		t.Error("Expected auth to fail with wrong secret")
	}
	if resp.Error == "" {
		t.Error("Expected error message")
	}

	resp = s.send("SELECT 1")
	expectFailure(t, resp, "authentication required")
}

func TestAuthExpiredJWT(t *testing.T) {
	secret := "test-secret"
	server, cleanup := setupAuthTestServer(t, &AuthConfig{Enabled: true, JWTSecret: secret})
	defer cleanup()

	claims := userClaims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()

	resp := sendQuery(t, server.Addr(), "AUTH JWT "+createTestJWT(t, secret, claims))
	expectFailure(t, resp, "expired")
}

func TestAuthIssuerAndAudience(t *testing.T) {
	secret := "test-secret"
	server, cleanup := setupAuthTestServer(t, &AuthConfig{
		Enabled:   true,
		JWTSecret: secret,
		Issuer:    "mydb",
		Audience:  "sql",
	})
	defer cleanup()

	claims := userClaims()
	claims["iss"] = "someone-else"
	claims["aud"] = "sql"
	resp := sendQuery(t, server.Addr(), "AUTH JWT "+createTestJWT(t, secret, claims))
	if resp.Success {
		t.Error("Expected auth to fail with wrong issuer")
	}

	claims["iss"] = "mydb"
	claims["aud"] = "other"
	resp = sendQuery(t, server.Addr(), "AUTH JWT "+createTestJWT(t, secret, claims))
	if resp.Success {
		t.Error("Expected auth to fail with wrong audience")
	}

	claims["aud"] = []string{"other", "sql"}
	resp = sendQuery(t, server.Addr(), "AUTH JWT "+createTestJWT(t, secret, claims))
	if !resp.Success {
		t.Errorf("Auth failed: %s", resp.Error)
	}
}

func TestAuthMissingIdentityClaims(t *testing.T) {
	secret := "test-secret"
	server, cleanup := setupAuthTestServer(t, &AuthConfig{Enabled: true, JWTSecret: secret})
	defer cleanup()

	resp := sendQuery(t, server.Addr(), "AUTH JWT "+createTestJWT(t, secret, jwt.MapClaims{"sub": "x"}))
	expectFailure(t, resp, "missing identity claims")
}

func TestParseAuthCommand(t *testing.T) {
	tests := []struct {
		line    string
		token   string
		wantErr bool
	}{
		{"AUTH JWT abc.def.ghi", "abc.def.ghi", false},
		{"auth jwt abc", "abc", false},
		{"AUTH JWT", "", true},
		{"AUTH BASIC user:pass", "", true},
		{"SELECT 1", "", true},
	}

	for _, tt := range tests {
		authType, token, err := parseAuthCommand(tt.line)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseAuthCommand(%q): expected error", tt.line)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAuthCommand(%q): %v", tt.line, err)
			continue
		}
		if authType != "JWT" || token != tt.token {
			t.Errorf("parseAuthCommand(%q) = %s %s, expected JWT %s", tt.line, authType, token, tt.token)
		}
	}
}

func TestConnectionStateExpiry(t *testing.T) {
	state := &ConnectionState{authenticated: true, tokenExpiry: time.Now().Add(-time.Second)}
	if state.IsAuthenticated() {
		t.Error("Expected expired token to be unauthenticated")
	}

	state.tokenExpiry = time.Time{}
	if !state.IsAuthenticated() {
		t.Error("Expected token without expiry to stay authenticated")
	}
}

// === TLS Tests ===

// setupTLSTestServer creates a server with TLS enabled using test certificates
func setupTLSTestServer(t *testing.T) (*Server, string, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	certFile := tmpDir + "/cert.pem"
	keyFile := tmpDir + "/key.pem"
	generateTestCertificate(t, certFile, keyFile)

	db := openTestDB(t)
	server := NewServer(db, nil)
	if err := server.StartTLS("127.0.0.1:0", certFile, keyFile); err != nil {
		t.Fatalf("Failed to start TLS server: %v", err)
	}

	return server, certFile, func() {
		server.Stop()
		db.Close()
	}
}

// generateTestCertificate creates a self-signed certificate for testing
func generateTestCertificate(t *testing.T, certFile, keyFile string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate private key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore: time.Now().Add(-time.Minute),
		NotAfter:  time.Now().Add(time.Hour),
		KeyUsage:  x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
		DNSNames:    []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatalf("Failed to write cert file: %v", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
}

func tlsQuery(t *testing.T, addr string, tlsConfig *tls.Config, query string) Response {
	t.Helper()
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", addr, tlsConfig)
	if err != nil {
		t.Fatalf("Failed to connect with TLS: %v", err)
	}
	defer conn.Close()

	s := &session{t: t, conn: conn, reader: bufio.NewReader(conn)}
	return s.send(query)
}

func TestTLSServerStartStop(t *testing.T) {
	server, _, cleanup := setupTLSTestServer(t)
	defer cleanup()

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
	if !server.TLSEnabled() {
		t.Error("Expected TLS to be enabled")
	}
}

func TestTLSServerConnection(t *testing.T) {
	server, certFile, cleanup := setupTLSTestServer(t)
	defer cleanup()

	certPool := x509.NewCertPool()
	certData, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("Failed to read cert: %v", err)
	}
	certPool.AppendCertsFromPEM(certData)

	resp := tlsQuery(t, server.Addr(), &tls.Config{RootCAs: certPool, ServerName: "localhost"}, "CREATE TABLE tlstest (id INT)")
	if !resp.Success {
		t.Errorf("Query failed: %s", resp.Error)
	}
}

func TestTLSServerInvalidCert(t *testing.T) {
	server, _, cleanup := setupTLSTestServer(t)
	defer cleanup()

	// System roots do not include the self-signed test certificate
	_, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), &tls.Config{ServerName: "localhost"})
	if err == nil {
		t.Error("Expected TLS connection to fail with invalid certificate")
	}
}

func TestTLSServerWithInsecureSkipVerify(t *testing.T) {
	server, _, cleanup := setupTLSTestServer(t)
	defer cleanup()

	resp := tlsQuery(t, server.Addr(), &tls.Config{InsecureSkipVerify: true}, "SELECT 1 AS one")
	if !resp.Success {
		t.Errorf("Query failed: %s", resp.Error)
	}
}

func TestStartTLSMissingCertificate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	server := NewServer(db, nil)
	err := server.StartTLS("127.0.0.1:0", "missing-cert.pem", "missing-key.pem")
	if err == nil {
		t.Error("Expected error for missing certificate files")
	}
}

func TestNewResultResponse(t *testing.T) {
	lib, _ := mydbtest.NewStub(t,
		mydbtest.Response{Null: true},
		mydbtest.Response{Payload: []byte("Executed.")},
		mydbtest.Response{Payload: []byte(`{"ok":true,"rows":[{"a":1}]}`)},
	)
	db, err := mydb.Open(lib, "test.db")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	resp := NewResultResponse(db.Execute("a"))
	if resp.Type != TypeNone || resp.Result != nil {
		t.Errorf("Expected 'none' with no result, got: %s %s", resp.Type, resp.Result)
	}

	resp = NewResultResponse(db.Execute("b"))
	if resp.Type != TypeText {
		t.Errorf("Expected 'text' type, got: %s", resp.Type)
	}
	expectResult(t, resp, `"Executed."`)

	resp = NewResultResponse(db.Execute("c"))
	if resp.Type != TypeRows || !resp.Success {
		t.Errorf("Expected successful 'rows' response, got: %+v", resp)
	}
}

func TestNewResultResponseInvalidUTF8(t *testing.T) {
	lib, _ := mydbtest.NewStub(t, mydbtest.Response{Payload: []byte("{\"a\":\"\xff\"}")})
	db, err := mydb.Open(lib, "test.db")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	resp := NewResultResponse(db.Execute("SELECT a"))
	if resp.Type != TypeText {
		t.Errorf("Expected 'text' type, got: %s", resp.Type)
	}

	var text string
	if err := json.Unmarshal(resp.Result, &text); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	if text != "{\"a\":\"\uFFFD\"}" {
		t.Errorf("Expected replacement decoding, got: %q", text)
	}

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("Failed to encode response: %v", err)
	}
	if !utf8.Valid(data) {
		t.Errorf("Expected valid UTF-8 on the wire, got: %q", data)
	}
}

func TestEncodeDecode(t *testing.T) {
	data, err := EncodeResponse(Response{Success: true, Type: TypeNone})
	if err != nil {
		t.Fatalf("Failed to encode response: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Errorf("Expected newline-terminated response, got: %q", data)
	}

	req, err := DecodeRequest([]byte(`{"query":"SELECT 1"}`))
	if err != nil {
		t.Fatalf("Failed to decode request: %v", err)
	}
	if req.Query != "SELECT 1" {
		t.Errorf("Expected query 'SELECT 1', got: %s", req.Query)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := mydb.NewMetrics(reg)
	db := openTestDB(t, mydb.WithMetrics(metrics))
	defer db.Close()

	server := NewServer(db, nil)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()

	sendQuery(t, server.Addr(), "SELECT 1")

	ts := httptest.NewServer(newMetricsHandler(reg))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got: %d", resp.StatusCode)
	}
	for _, want := range []string{
		`mydb_executions_total{outcome="ok"} 1`,
		"mydb_open_handles 1",
		"mydb_buffers_released_total 1",
	} {
		if !containsString(string(body), want) {
			t.Errorf("Expected metrics to contain %q", want)
		}
	}
}
