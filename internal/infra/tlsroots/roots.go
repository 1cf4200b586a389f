package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// ErrNoCertsFound is returned when a PEM file holds no certificate.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// Config locates the cluster TLS material. An empty CertFile disables TLS.
type Config struct {
	CAFile   string `koanf:"ca_file" yaml:"ca_file,omitempty"`
	CertFile string `koanf:"cert_file" yaml:"cert_file,omitempty"`
	KeyFile  string `koanf:"key_file" yaml:"key_file,omitempty"`
}

// Enabled reports whether a keypair is configured.
func (c Config) Enabled() bool {
	return c.CertFile != ""
}

// Validate checks that the files come in usable combinations.
func (c Config) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("tlsroots: cert_file and key_file must be set together")
	}
	if c.CAFile != "" && c.CertFile == "" {
		return errors.New("tlsroots: ca_file requires cert_file and key_file")
	}
	return nil
}

// LoadRoots reads a PEM bundle into a pool. An empty path yields the
// system pool.
func LoadRoots(path string) (*x509.CertPool, error) {
	if path == "" {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return x509.NewCertPool(), nil
		}
		return pool, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: read CA file %s: %w", path, err)
	}
	pool := x509.NewCertPool()
	if err := addPEM(pool, data); err != nil {
		return nil, fmt.Errorf("tlsroots: %s: %w", path, err)
	}
	return pool, nil
}

func addPEM(pool *x509.CertPool, data []byte) error {
	added := 0
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// ServerTLS returns the listener config: kp's certificate, and client
// certificates verified against roots when roots is not nil.
func ServerTLS(kp *Keypair, roots *x509.CertPool) *tls.Config {
	cfg := &tls.Config{
		GetCertificate: kp.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
	if roots != nil {
		cfg.ClientCAs = roots
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg
}

// ClientTLS returns the dialer config presenting kp's certificate.
func ClientTLS(kp *Keypair, roots *x509.CertPool) *tls.Config {
	return &tls.Config{
		RootCAs:              roots,
		GetClientCertificate: kp.GetClientCertificate,
		MinVersion:           tls.VersionTLS12,
	}
}

// NewHTTPClient returns a client dialing members with ClientTLS.
func NewHTTPClient(kp *Keypair, roots *x509.CertPool) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     ClientTLS(kp, roots),
			ForceAttemptHTTP2:   true,
			MaxIdleConnsPerHost: 16,
		},
	}
}
