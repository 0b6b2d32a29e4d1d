// Package tlsconf turns connector TLS options into a *tls.Config.
//
// Recognised options: tls_ca_file, tls_cert_file, tls_key_file,
// tls_server_name, tls_insecure ("true" skips verification).
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"strconv"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/pkg/errors"
)

// FromSpec returns nil when spec.TLS is false.
func FromSpec(spec connector.Spec) (*tls.Config, error) {
	if !spec.TLS {
		return nil, nil
	}

	insecure, _ := strconv.ParseBool(spec.Option("tls_insecure", "false"))
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         spec.Option("tls_server_name", ""),
		InsecureSkipVerify: insecure,
	}

	certFile, keyFile := spec.Option("tls_cert_file", ""), spec.Option("tls_key_file", "")
	if certFile != "" || keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConnectorMisconf, "failed to load tls keypair").WithDetail(spec.Name)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if caFile := spec.Option("tls_ca_file", ""); caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConnectorMisconf, "failed to read ca cert").WithDetail(caFile)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New(errors.ErrCodeConnectorMisconf, "no certificates found in ca file").WithDetail(caFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

//Personal.AI order the ending
