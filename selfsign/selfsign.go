// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package selfsign runs the self-signed certificate generation pipeline: it
// validates the request, generates a key pair, then concurrently exports the
// keys and signs the certificate, and finally renders everything as PEM.
package selfsign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dark-bio/certgen-go/cryptosvc"
	"github.com/dark-bio/certgen-go/pem"
	"github.com/dark-bio/certgen-go/x509"
)

// ErrInvalidInput is returned for requests rejected before any cryptographic
// or encoding work starts.
var ErrInvalidInput = errors.New("selfsign: invalid input")

// SerialSource selects how certificate serial numbers are produced.
type SerialSource int

const (
	SerialRandom SerialSource = iota // 127 random bits
	SerialClock                      // Milliseconds since the Unix epoch, may collide
)

// String implements fmt.Stringer.
func (s SerialSource) String() string {
	switch s {
	case SerialRandom:
		return "random"
	case SerialClock:
		return "clock"
	default:
		return fmt.Sprintf("serial(%d)", int(s))
	}
}

// ParseSerialSource parses the textual form of a serial source.
func ParseSerialSource(s string) (SerialSource, error) {
	switch strings.ToLower(s) {
	case "random", "":
		return SerialRandom, nil
	case "clock":
		return SerialClock, nil
	default:
		return 0, fmt.Errorf("%w: unknown serial source %q", ErrInvalidInput, s)
	}
}

// Request contains the user supplied identity of the certificate.
type Request struct {
	CommonName         string // Required
	Organization       string // Optional
	OrganizationalUnit string // Optional
	Country            string // Two characters, upper-cased during validation

	Serial  SerialSource // Serial number source
	PathLen *int         // pathLenConstraint to encode, omitted if nil
}

// Validate checks the request and normalizes the country code.
func (r *Request) Validate() error {
	if r.CommonName == "" {
		return fmt.Errorf("%w: you must enter a name for the certificate", ErrInvalidInput)
	}
	if len(r.Country) != 2 {
		return fmt.Errorf("%w: country codes must be two characters long", ErrInvalidInput)
	}
	r.Country = strings.ToUpper(r.Country)

	if r.PathLen != nil && *r.PathLen < 0 {
		return fmt.Errorf("%w: negative path length %d", ErrInvalidInput, *r.PathLen)
	}
	if r.Serial != SerialRandom && r.Serial != SerialClock {
		return fmt.Errorf("%w: unknown serial source %v", ErrInvalidInput, r.Serial)
	}
	return nil
}

// Result holds the generated certificate and the three PEM artifacts.
type Result struct {
	Certificate *x509.Certificate

	CertificatePEM *pem.Block
	PublicKeyPEM   *pem.Block
	PrivateKeyPEM  *pem.Block
}

// Generator produces self-signed certificates through a cryptography service.
type Generator struct {
	Service cryptosvc.Service // Key generation, export and signing
	Logger  *slog.Logger      // Optional, discards logs if nil
	Now     func() time.Time  // Optional clock, defaults to time.Now
}

// New creates a generator on top of the given service.
func New(svc cryptosvc.Service, logger *slog.Logger) *Generator {
	return &Generator{Service: svc, Logger: logger}
}

// Generate runs the whole pipeline for one request. Any failure aborts it and
// no partial result is returned.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logger = logger.With("cn", req.CommonName)

	generatedAt := now()
	var serial *big.Int
	if req.Serial == SerialClock {
		serial = x509.ClockSerial(generatedAt)
	}
	logger.Debug("generating key pair", "algorithm", cryptosvc.RSASSAPKCS1v15SHA256)
	pair, err := g.Service.GenerateKeyPair(ctx, cryptosvc.RSASSAPKCS1v15SHA256)
	if err != nil {
		return nil, fmt.Errorf("generating key pair: %w", err)
	}
	// Both branches only depend on the key pair, run them side by side
	var (
		cert   *x509.Certificate
		pubDER []byte
		keyDER []byte
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		spki, err := g.Service.ExportKey(gctx, cryptosvc.FormatSPKI, pair.PublicKey)
		if err != nil {
			return fmt.Errorf("exporting public key: %w", err)
		}
		tbs, err := x509.NewTBSCertificate(&x509.Params{
			Subject: x509.Identity{
				Country:            req.Country,
				Organization:       req.Organization,
				OrganizationalUnit: req.OrganizationalUnit,
				CommonName:         req.CommonName,
			},
			Now:     generatedAt,
			Serial:  serial,
			PathLen: req.PathLen,
		}, spki)
		if err != nil {
			return fmt.Errorf("assembling certificate: %w", err)
		}
		logger.Debug("signing certificate", "serial", tbs.SerialNumber)
		signed, err := x509.Sign(gctx, g.Service, pair.PrivateKey, tbs)
		if err != nil {
			return fmt.Errorf("signing certificate: %w", err)
		}
		cert, pubDER = signed, spki
		return nil
	})
	group.Go(func() error {
		pkcs8, err := g.Service.ExportKey(gctx, cryptosvc.FormatPKCS8, pair.PrivateKey)
		if err != nil {
			return fmt.Errorf("exporting private key: %w", err)
		}
		keyDER = pkcs8
		return nil
	})
	if err := group.Wait(); err != nil {
		logger.Warn("certificate generation failed", "err", err)
		return nil, err
	}
	logger.Info("certificate generated",
		"serial", cert.TBSCertificate.SerialNumber,
		"not_before", cert.TBSCertificate.Validity.NotBefore,
		"not_after", cert.TBSCertificate.Validity.NotAfter,
	)
	return &Result{
		Certificate:    cert,
		CertificatePEM: &pem.Block{Label: pem.LabelCertificate, Bytes: cert.Raw},
		PublicKeyPEM:   &pem.Block{Label: pem.LabelPublicKey, Bytes: pubDER},
		PrivateKeyPEM:  &pem.Block{Label: pem.LabelPrivateKey, Bytes: keyDER},
	}, nil
}

// Generate runs the pipeline with a default generator on top of svc.
func Generate(ctx context.Context, svc cryptosvc.Service, req Request) (*Result, error) {
	return New(svc, nil).Generate(ctx, req)
}
