// Package tlslistener opens the HTTPS listener shared by both binaries.
package tlslistener

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
)

// Listen loads the certificate pair and listens on cfg.Listen. TLS 1.3 is the
// minimum accepted version.
func Listen(cfg configtypes.TLSConfig) (net.Listener, error) {
	if cfg.Listen == "" || cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, errors.New("tls requires listen, cert_file and key_file")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP listener: %w", err)
	}

	return tls.NewListener(ln, &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
	}), nil
}
