// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x509

import (
	"context"
	"encoding/asn1"
	"errors"
	"fmt"

	"github.com/dark-bio/certgen-go/cryptosvc"
	"github.com/dark-bio/certgen-go/der"
	"github.com/dark-bio/certgen-go/pem"
)

// Certificate is a signed certificate. Raw is authoritative: it embeds
// RawTBSCertificate byte for byte, which are the exact bytes that were signed.
type Certificate struct {
	TBSCertificate     *TBSCertificate       // Structured body, a copy of the signed one
	SignatureAlgorithm asn1.ObjectIdentifier // Same identifier as inside the body
	SignatureValue     []byte                // Signature over RawTBSCertificate

	Raw               []byte // DER encoding of the whole certificate
	RawTBSCertificate []byte // DER encoding of the signed body
}

// Sign encodes the body once, has the service sign those exact bytes with the
// private key, and wraps body, algorithm and signature into a certificate.
// Service failures are returned as is and no certificate is produced.
func Sign(ctx context.Context, svc cryptosvc.Service, key *cryptosvc.Key, tbs *TBSCertificate) (*Certificate, error) {
	if tbs == nil {
		return nil, errors.New("x509: nil certificate body")
	}
	alg, ok := signatureAlgorithms[tbs.SignatureAlgorithm.String()]
	if !ok {
		return nil, fmt.Errorf("%w: signature algorithm %v", cryptosvc.ErrUnsupportedAlgorithm, tbs.SignatureAlgorithm)
	}
	// Snapshot the body so later changes by the caller cannot desync it
	tbs = tbs.clone()

	tbsDER, err := tbs.Marshal()
	if err != nil {
		return nil, err
	}
	sig, err := svc.Sign(ctx, alg, key, tbsDER)
	if err != nil {
		return nil, err
	}
	// Certificate ::= SEQUENCE { tbsCertificate, signatureAlgorithm, signatureValue BIT STRING }
	certDER, err := der.Marshal(der.Sequence{
		der.Raw(tbsDER),
		algorithmIdentifier(tbs.SignatureAlgorithm),
		der.BitString(sig),
	})
	if err != nil {
		return nil, err
	}
	return &Certificate{
		TBSCertificate:     tbs,
		SignatureAlgorithm: append(asn1.ObjectIdentifier(nil), tbs.SignatureAlgorithm...),
		SignatureValue:     sig,
		Raw:                certDER,
		RawTBSCertificate:  tbsDER,
	}, nil
}

// MarshalPEM serializes the certificate to PEM format.
func (c *Certificate) MarshalPEM() string {
	return string(pem.Encode(pem.LabelCertificate, c.Raw))
}

// Verify checks the certificate's signature against its own embedded public
// key, using the declared signature algorithm.
func (c *Certificate) Verify(ctx context.Context, v cryptosvc.Verifier) error {
	alg, ok := signatureAlgorithms[c.SignatureAlgorithm.String()]
	if !ok {
		return fmt.Errorf("%w: signature algorithm %v", cryptosvc.ErrUnsupportedAlgorithm, c.SignatureAlgorithm)
	}
	if !c.SignatureAlgorithm.Equal(c.TBSCertificate.SignatureAlgorithm) {
		return errors.New("x509: signature algorithm mismatch between body and certificate")
	}
	key, err := v.ImportKey(ctx, cryptosvc.FormatSPKI, c.TBSCertificate.PublicKeyInfo, alg)
	if err != nil {
		return err
	}
	return v.Verify(ctx, alg, key, c.RawTBSCertificate, c.SignatureValue)
}
