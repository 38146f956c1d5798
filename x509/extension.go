// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x509

import (
	"bytes"
	"encoding/asn1"
	"fmt"

	"github.com/dark-bio/certgen-go/der"
)

// KeyUsage is the set of key usage bits, laid out as the single byte of the
// encoded BIT STRING (bit 0 is the most significant bit).
type KeyUsage uint8

const (
	KeyUsageDigitalSignature KeyUsage = 0x80 // bit 0
	KeyUsageNonRepudiation   KeyUsage = 0x40 // bit 1
	KeyUsageKeyEncipherment  KeyUsage = 0x20 // bit 2
	KeyUsageDataEncipherment KeyUsage = 0x10 // bit 3
	KeyUsageKeyAgreement     KeyUsage = 0x08 // bit 4
	KeyUsageKeyCertSign      KeyUsage = 0x04 // bit 5
	KeyUsageCRLSign          KeyUsage = 0x02 // bit 6

	keyUsageMask = 0xfe
)

// Has reports whether all bits of usage are set.
func (k KeyUsage) Has(usage KeyUsage) bool {
	return k&usage == usage
}

// BasicConstraints is the value of the Basic Constraints extension.
type BasicConstraints struct {
	IsCA    bool // Whether the subject is a certificate authority
	PathLen *int // Max intermediate CAs below this one, omitted if nil
}

// clone returns a copy that shares no memory with bc.
func (bc BasicConstraints) clone() BasicConstraints {
	if bc.PathLen != nil {
		pathLen := *bc.PathLen
		bc.PathLen = &pathLen
	}
	return bc
}

// Extension is a certificate extension. The encoded value is always derived
// from the structured one by the ExtensionBuilder, so the two cannot drift.
type Extension struct {
	id       asn1.ObjectIdentifier
	critical bool
	value    []byte
	parsed   any
}

// ID returns the extension's object identifier.
func (e Extension) ID() asn1.ObjectIdentifier {
	return append(asn1.ObjectIdentifier(nil), e.id...)
}

// Critical reports whether the extension is marked critical.
func (e Extension) Critical() bool { return e.critical }

// Value returns the DER encoding of the extension value.
func (e Extension) Value() []byte { return bytes.Clone(e.value) }

// Parsed returns a copy of the structured extension value, a BasicConstraints
// or a KeyUsage.
func (e Extension) Parsed() any {
	if bc, ok := e.parsed.(BasicConstraints); ok {
		return bc.clone()
	}
	return e.parsed
}

// asn1Value converts the extension into its ASN.1 form:
//
//	Extension ::= SEQUENCE {
//	    extnID    OBJECT IDENTIFIER,
//	    critical  BOOLEAN DEFAULT FALSE,
//	    extnValue OCTET STRING
//	}
func (e Extension) asn1Value() der.Value {
	seq := der.Sequence{der.ObjectIdentifier(e.id)}
	if e.critical {
		seq = append(seq, der.Boolean(true))
	}
	return append(seq, der.OctetString(e.value))
}

// ExtensionBuilder collects extensions in append order. The first failure
// sticks and is reported by Extensions.
type ExtensionBuilder struct {
	exts []Extension
	err  error
}

// NewExtensionBuilder creates an empty extension builder.
func NewExtensionBuilder() *ExtensionBuilder {
	return new(ExtensionBuilder)
}

// BasicConstraints appends a non-critical Basic Constraints extension.
//
// The cA flag is DEFAULT FALSE, so it is only encoded when set. The path
// length is encoded whenever given.
func (b *ExtensionBuilder) BasicConstraints(bc BasicConstraints) *ExtensionBuilder {
	// BasicConstraints ::= SEQUENCE { cA BOOLEAN DEFAULT FALSE, pathLenConstraint INTEGER (0..MAX) OPTIONAL }
	seq := der.Sequence{}
	if bc.IsCA {
		seq = append(seq, der.Boolean(true))
	}
	if bc.PathLen != nil {
		seq = append(seq, der.Int64(int64(*bc.PathLen)))
	}
	return b.add(oidBasicConstraints, false, seq, bc.clone())
}

// KeyUsage appends a non-critical Key Usage extension with exactly the given
// bits set.
func (b *ExtensionBuilder) KeyUsage(usage KeyUsage) *ExtensionBuilder {
	if usage&^keyUsageMask != 0 {
		if b.err == nil {
			b.err = fmt.Errorf("%w: unsupported key usage bits %#02x", ErrEncoding, uint8(usage&^keyUsageMask))
		}
		return b
	}
	// KeyUsage ::= BIT STRING, written as one whole byte (zero unused bits)
	return b.add(oidKeyUsage, false, der.BitString{byte(usage)}, usage)
}

// Extensions returns a copy of the collected extensions, or the first error
// hit while building them.
func (b *ExtensionBuilder) Extensions() ([]Extension, error) {
	if b.err != nil {
		return nil, b.err
	}
	return append([]Extension(nil), b.exts...), nil
}

func (b *ExtensionBuilder) add(id asn1.ObjectIdentifier, critical bool, value der.Value, parsed any) *ExtensionBuilder {
	if b.err != nil {
		return b
	}
	for _, ext := range b.exts {
		if ext.id.Equal(id) {
			b.err = fmt.Errorf("%w: duplicate extension %v", ErrEncoding, id)
			return b
		}
	}
	blob, err := der.Marshal(value)
	if err != nil {
		b.err = err
		return b
	}
	b.exts = append(b.exts, Extension{id: id, critical: critical, value: blob, parsed: parsed})
	return b
}
