// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x509

import (
	"bytes"
	"crypto/rand"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dark-bio/certgen-go/der"
)

// Version3 is the encoded version number of X.509 v3 certificates.
const Version3 = 2

// Validity is the certificate validity period.
type Validity struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// NewValidity returns the validity period of a certificate generated at now:
// starting at midnight (UTC) of that day and lasting ValidityDays.
func NewValidity(now time.Time) Validity {
	y, m, d := now.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	return Validity{
		NotBefore: start,
		NotAfter:  start.AddDate(0, 0, ValidityDays),
	}
}

// RandomSerial returns a random, positive 127 bit serial number.
func RandomSerial() *big.Int {
	serialBytes := make([]byte, 16)
	if _, err := rand.Read(serialBytes); err != nil {
		panic("x509: " + err.Error())
	}
	serialBytes[0] &= 0x7F // Ensure positive (MSB = 0)
	return new(big.Int).SetBytes(serialBytes)
}

// ClockSerial returns the milliseconds elapsed since the Unix epoch at now as
// a serial number. Two certificates generated within the same millisecond get
// the same serial, so this is only meant for reproducing legacy output.
func ClockSerial(now time.Time) *big.Int {
	return big.NewInt(now.UnixMilli())
}

// TBSCertificate is the to-be-signed body of a certificate.
type TBSCertificate struct {
	Version            int // Encoded version number, Version3 when extensions are present
	SerialNumber       *big.Int
	SignatureAlgorithm asn1.ObjectIdentifier
	Issuer             Name
	Validity           Validity
	Subject            Name
	PublicKeyInfo      []byte // DER encoded SubjectPublicKeyInfo
	Extensions         []Extension
}

// NewTBSCertificate assembles the body of a self-signed certificate for the
// given DER encoded SubjectPublicKeyInfo. Nothing is hashed or signed.
func NewTBSCertificate(params *Params, spki []byte) (*TBSCertificate, error) {
	if params == nil {
		return nil, errors.New("x509: nil params")
	}
	if len(spki) == 0 {
		return nil, fmt.Errorf("%w: empty subject public key info", ErrEncoding)
	}
	serial := params.Serial
	if serial == nil {
		serial = RandomSerial()
	}
	// Issuer and subject come from the same identity: self-signed
	name := NewName(params.Subject)

	extensions, err := NewExtensionBuilder().
		BasicConstraints(BasicConstraints{IsCA: false, PathLen: params.PathLen}).
		KeyUsage(KeyUsageDigitalSignature | KeyUsageNonRepudiation | KeyUsageKeyCertSign | KeyUsageCRLSign).
		Extensions()
	if err != nil {
		return nil, err
	}
	return &TBSCertificate{
		Version:            Version3,
		SerialNumber:       new(big.Int).Set(serial),
		SignatureAlgorithm: OIDSHA256WithRSA(),
		Issuer:             name,
		Validity:           NewValidity(params.Now),
		Subject:            name.clone(),
		PublicKeyInfo:      bytes.Clone(spki),
		Extensions:         extensions,
	}, nil
}

// Marshal returns the DER encoding of the certificate body.
func (t *TBSCertificate) Marshal() ([]byte, error) {
	v, err := t.value()
	if err != nil {
		return nil, err
	}
	return der.Marshal(v)
}

// value converts the body into its ASN.1 form:
//
//	TBSCertificate ::= SEQUENCE {
//	    version         [0] EXPLICIT Version DEFAULT v1,
//	    serialNumber        CertificateSerialNumber,
//	    signature           AlgorithmIdentifier,
//	    issuer              Name,
//	    validity            Validity,
//	    subject             Name,
//	    subjectPublicKeyInfo SubjectPublicKeyInfo,
//	    extensions      [3] EXPLICIT Extensions OPTIONAL
//	}
func (t *TBSCertificate) value() (der.Value, error) {
	if t.SerialNumber == nil {
		return nil, fmt.Errorf("%w: missing serial number", ErrEncoding)
	}
	if !t.Validity.NotAfter.After(t.Validity.NotBefore) {
		return nil, fmt.Errorf("%w: validity ends before it starts", ErrEncoding)
	}
	// Extensions are a v3 feature, refuse to emit an implicit v1 carrying them
	if len(t.Extensions) > 0 && t.Version != Version3 {
		return nil, fmt.Errorf("%w: extensions require version v3, have %d", ErrEncoding, t.Version)
	}
	seq := der.Sequence{}
	if t.Version != 0 {
		seq = append(seq, der.Explicit{Tag: 0, Inner: der.Int64(int64(t.Version))})
	}
	seq = append(seq,
		der.Integer{Value: t.SerialNumber},
		algorithmIdentifier(t.SignatureAlgorithm),
		t.Issuer.value(),
		der.Sequence{der.Time(t.Validity.NotBefore), der.Time(t.Validity.NotAfter)},
		t.Subject.value(),
		der.Raw(t.PublicKeyInfo),
	)
	if len(t.Extensions) > 0 {
		exts := make(der.Sequence, 0, len(t.Extensions))
		for _, ext := range t.Extensions {
			exts = append(exts, ext.asn1Value())
		}
		seq = append(seq, der.Explicit{Tag: 3, Inner: exts})
	}
	return seq, nil
}

// clone returns a deep copy of the body.
func (t *TBSCertificate) clone() *TBSCertificate {
	out := *t
	if t.SerialNumber != nil {
		out.SerialNumber = new(big.Int).Set(t.SerialNumber)
	}
	out.SignatureAlgorithm = append(asn1.ObjectIdentifier(nil), t.SignatureAlgorithm...)
	out.Issuer = t.Issuer.clone()
	out.Subject = t.Subject.clone()
	out.PublicKeyInfo = bytes.Clone(t.PublicKeyInfo)
	out.Extensions = append([]Extension(nil), t.Extensions...)
	return &out
}

// algorithmIdentifier returns the AlgorithmIdentifier of a signature OID. The
// RSA PKCS#1 algorithms carry explicit NULL parameters (RFC 4055 §5).
func algorithmIdentifier(oid asn1.ObjectIdentifier) der.Value {
	return der.Typed{Type: oid, Value: der.Null{}}
}
