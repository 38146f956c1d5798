// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x509

import (
	"encoding/asn1"

	"github.com/dark-bio/certgen-go/der"
)

// AttributeTypeAndValue is a single naming attribute.
type AttributeTypeAndValue struct {
	Type  asn1.ObjectIdentifier
	Value string // PrintableString content
}

// Name is an ordered distinguished name. Every attribute is encoded as its
// own relative distinguished name, in slice order.
type Name []AttributeTypeAndValue

// NewName builds the distinguished name of an identity: country, organization,
// organizational unit and common name, in that order, skipping empty fields.
func NewName(id Identity) Name {
	fields := []struct {
		oid   asn1.ObjectIdentifier
		value string
	}{
		{oidCountry, id.Country},
		{oidOrganization, id.Organization},
		{oidOrganizationalUnit, id.OrganizationalUnit},
		{oidCommonName, id.CommonName},
	}
	var name Name
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		name = append(name, AttributeTypeAndValue{Type: f.oid, Value: f.value})
	}
	return name
}

// Marshal returns the DER encoding of the name.
func (n Name) Marshal() ([]byte, error) {
	return der.Marshal(n.value())
}

// Equal reports whether two names hold the same attributes in the same order.
func (n Name) Equal(other Name) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if !n[i].Type.Equal(other[i].Type) || n[i].Value != other[i].Value {
			return false
		}
	}
	return true
}

// clone returns a deep copy of the name.
func (n Name) clone() Name {
	if n == nil {
		return nil
	}
	out := make(Name, len(n))
	for i, attr := range n {
		out[i] = AttributeTypeAndValue{
			Type:  append(asn1.ObjectIdentifier(nil), attr.Type...),
			Value: attr.Value,
		}
	}
	return out
}

// value converts the name into its ASN.1 form:
//
//	Name ::= SEQUENCE OF RelativeDistinguishedName
//	RelativeDistinguishedName ::= SET OF AttributeTypeAndValue
//	AttributeTypeAndValue ::= SEQUENCE { type OID, value PrintableString }
func (n Name) value() der.Value {
	rdns := make(der.Sequence, 0, len(n))
	for _, attr := range n {
		rdns = append(rdns, der.Set{
			der.Typed{Type: attr.Type, Value: der.PrintableString(attr.Value)},
		})
	}
	return rdns
}
