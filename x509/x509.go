// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package x509 assembles and signs self-signed X.509 v3 certificates.
//
// https://datatracker.ietf.org/doc/html/rfc5280
package x509

import (
	"encoding/asn1"
	"math/big"
	"time"

	"github.com/dark-bio/certgen-go/cryptosvc"
	"github.com/dark-bio/certgen-go/der"
)

// ErrEncoding is returned when a certificate field cannot be DER encoded, for
// example a name attribute with characters outside PrintableString.
var ErrEncoding = der.ErrEncoding

var (
	// oidSHA256WithRSA is the ASN.1 object identifier for sha256WithRSAEncryption.
	oidSHA256WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}

	// Attribute types of the distinguished name, in encoding order.
	oidCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}

	oidBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidKeyUsage         = asn1.ObjectIdentifier{2, 5, 29, 15}
)

// OIDSHA256WithRSA returns the sha256WithRSAEncryption object identifier.
func OIDSHA256WithRSA() asn1.ObjectIdentifier {
	return append(asn1.ObjectIdentifier(nil), oidSHA256WithRSA...)
}

// signatureAlgorithms maps the signature algorithm identifiers the signer
// knows to the service algorithm producing them.
var signatureAlgorithms = map[string]cryptosvc.Algorithm{
	oidSHA256WithRSA.String(): cryptosvc.RSASSAPKCS1v15SHA256,
}

// ValidityDays is the lifetime of a generated certificate.
const ValidityDays = 730

// Identity contains the naming attributes of the certificate subject. Empty
// fields are left out of the encoded name.
type Identity struct {
	Country            string // Two letter upper-case country code
	Organization       string // Organization name
	OrganizationalUnit string // Organizational unit name
	CommonName         string // Common name
}

// Params contains parameters for assembling a self-signed certificate.
type Params struct {
	Subject Identity  // Subject's name, also used as the issuer's name
	Now     time.Time // Generation time, validity starts at its UTC midnight
	Serial  *big.Int  // Serial number, a random one is drawn if nil
	PathLen *int      // pathLenConstraint of the Basic Constraints, omitted if nil
}
