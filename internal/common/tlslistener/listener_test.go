package tlslistener

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
)

// writeCertPair writes a self-signed localhost certificate into dir.
func writeCertPair(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath = filepath.Join(dir, "tls.crt")
	keyPath = filepath.Join(dir, "tls.key")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func serveHandshakes(ln net.Listener) {
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.(*tls.Conn).Handshake()
			conn.Close()
		}
	}()
}

func TestListen_NegotiatesTLS13(t *testing.T) {
	certPath, keyPath := writeCertPair(t, t.TempDir())

	ln, err := Listen(configtypes.TLSConfig{Listen: "127.0.0.1:0", CertFile: certPath, KeyFile: keyPath})
	require.NoError(t, err)
	defer ln.Close()
	serveHandshakes(ln)

	conn, err := tls.Dial("tcp", ln.Addr().String(), &tls.Config{InsecureSkipVerify: true})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, uint16(tls.VersionTLS13), conn.ConnectionState().Version)
}

func TestListen_RejectsTLS12(t *testing.T) {
	certPath, keyPath := writeCertPair(t, t.TempDir())

	ln, err := Listen(configtypes.TLSConfig{Listen: "127.0.0.1:0", CertFile: certPath, KeyFile: keyPath})
	require.NoError(t, err)
	defer ln.Close()
	serveHandshakes(ln)

	_, err = tls.Dial("tcp", ln.Addr().String(), &tls.Config{
		InsecureSkipVerify: true,
		MaxVersion:         tls.VersionTLS12,
	})
	assert.Error(t, err)
}

func TestListen_Errors(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCertPair(t, dir)
	other := filepath.Join(dir, "other")
	require.NoError(t, os.Mkdir(other, 0o755))
	_, otherKey := writeCertPair(t, other)
	garbage := filepath.Join(dir, "garbage.crt")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))

	tests := []struct {
		name    string
		cfg     configtypes.TLSConfig
		wantErr string
	}{
		{name: "incomplete", cfg: configtypes.TLSConfig{Listen: "127.0.0.1:0"}, wantErr: "requires"},
		{name: "missing cert", cfg: configtypes.TLSConfig{Listen: "127.0.0.1:0", CertFile: "/nonexistent.crt", KeyFile: keyPath}, wantErr: "failed to load TLS certificate"},
		{name: "invalid cert", cfg: configtypes.TLSConfig{Listen: "127.0.0.1:0", CertFile: garbage, KeyFile: keyPath}, wantErr: "failed to load TLS certificate"},
		{name: "mismatched pair", cfg: configtypes.TLSConfig{Listen: "127.0.0.1:0", CertFile: certPath, KeyFile: otherKey}, wantErr: "failed to load TLS certificate"},
		{name: "bad address", cfg: configtypes.TLSConfig{Listen: "invalid:address:format", CertFile: certPath, KeyFile: keyPath}, wantErr: "failed to create TCP listener"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln, err := Listen(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, ln)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
