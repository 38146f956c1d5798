// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package der provides a small, closed set of ASN.1 values and their
// Distinguished Encoding Rules serialization.
//
// https://www.itu.int/rec/T-REC-X.690
package der

import (
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ErrEncoding is returned when a value violates the constraints of its ASN.1
// type. Nothing is emitted for a tree containing such a value.
var ErrEncoding = errors.New("der: encoding error")

// Value is an ASN.1 value that can be DER encoded. The set of implementations
// is closed, only the types of this package satisfy it.
type Value interface {
	// check validates the value (and its children) without emitting anything.
	check() error

	// encode appends the DER encoding of an already checked value.
	encode(b *cryptobyte.Builder)
}

// Marshal returns the DER encoding of v. The whole tree is validated before
// any output is produced.
func Marshal(v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrEncoding)
	}
	if err := v.check(); err != nil {
		return nil, err
	}
	b := cryptobyte.NewBuilder(nil)
	v.encode(b)

	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return out, nil
}

// Integer is an ASN.1 INTEGER. Only non-negative values are accepted.
type Integer struct {
	Value *big.Int
}

// Int64 returns an INTEGER holding n.
func Int64(n int64) Integer {
	return Integer{Value: big.NewInt(n)}
}

func (v Integer) check() error {
	if v.Value == nil {
		return fmt.Errorf("%w: nil integer", ErrEncoding)
	}
	if v.Value.Sign() < 0 {
		return fmt.Errorf("%w: negative integer %v", ErrEncoding, v.Value)
	}
	return nil
}

func (v Integer) encode(b *cryptobyte.Builder) {
	b.AddASN1BigInt(v.Value)
}

// Boolean is an ASN.1 BOOLEAN.
type Boolean bool

func (v Boolean) check() error { return nil }

func (v Boolean) encode(b *cryptobyte.Builder) {
	b.AddASN1Boolean(bool(v))
}

// Null is the ASN.1 NULL value.
type Null struct{}

func (Null) check() error { return nil }

func (Null) encode(b *cryptobyte.Builder) {
	b.AddASN1NULL()
}

// ObjectIdentifier is an ASN.1 OBJECT IDENTIFIER.
type ObjectIdentifier asn1.ObjectIdentifier

func (v ObjectIdentifier) check() error {
	if len(v) < 2 || v[0] > 2 || (v[0] < 2 && v[1] >= 40) {
		return fmt.Errorf("%w: invalid object identifier %v", ErrEncoding, asn1.ObjectIdentifier(v))
	}
	for _, arc := range v {
		if arc < 0 {
			return fmt.Errorf("%w: invalid object identifier %v", ErrEncoding, asn1.ObjectIdentifier(v))
		}
	}
	return nil
}

func (v ObjectIdentifier) encode(b *cryptobyte.Builder) {
	b.AddASN1ObjectIdentifier(asn1.ObjectIdentifier(v))
}

// PrintableString is an ASN.1 PrintableString. The bytes are emitted
// verbatim, characters outside the PrintableString alphabet are rejected.
type PrintableString string

func (v PrintableString) check() error {
	for i := 0; i < len(v); i++ {
		if !isPrintable(v[i]) {
			return fmt.Errorf("%w: character %q at offset %d not allowed in PrintableString", ErrEncoding, v[i], i)
		}
	}
	return nil
}

func (v PrintableString) encode(b *cryptobyte.Builder) {
	b.AddASN1(cbasn1.PrintableString, func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(v))
	})
}

// isPrintable reports whether c is in the PrintableString alphabet of X.680.
func isPrintable(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case ' ', '\'', '(', ')', '+', ',', '-', '.', '/', ':', '=', '?':
		return true
	}
	return false
}

// OctetString is an ASN.1 OCTET STRING.
type OctetString []byte

func (OctetString) check() error { return nil }

func (v OctetString) encode(b *cryptobyte.Builder) {
	b.AddASN1OctetString(v)
}

// BitString is an ASN.1 BIT STRING made of whole bytes: the leading
// unused-bits octet is always zero.
type BitString []byte

func (BitString) check() error { return nil }

func (v BitString) encode(b *cryptobyte.Builder) {
	b.AddASN1BitString(v)
}

// Time is an X.509 Time: UTCTime for years 1950 through 2049, GeneralizedTime
// otherwise. Sub-second precision is dropped.
//
// https://datatracker.ietf.org/doc/html/rfc5280#section-4.1.2.5
type Time time.Time

func (v Time) check() error {
	if y := time.Time(v).UTC().Year(); y < 0 || y > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrEncoding, y)
	}
	return nil
}

func (v Time) encode(b *cryptobyte.Builder) {
	t := time.Time(v).UTC().Truncate(time.Second)
	if y := t.Year(); y >= 1950 && y < 2050 {
		b.AddASN1UTCTime(t)
	} else {
		b.AddASN1GeneralizedTime(t)
	}
}

// Sequence is an ASN.1 SEQUENCE whose children are encoded in order.
type Sequence []Value

func (v Sequence) check() error {
	return checkAll(v)
}

func (v Sequence) encode(b *cryptobyte.Builder) {
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, child := range v {
			child.encode(b)
		}
	})
}

// Set is an ASN.1 SET. Children are encoded in the order given; callers
// needing SET OF canonical ordering must sort them beforehand.
type Set []Value

func (v Set) check() error {
	return checkAll(v)
}

func (v Set) encode(b *cryptobyte.Builder) {
	b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
		for _, child := range v {
			child.encode(b)
		}
	})
}

// Explicit wraps a value in a context-specific, constructed [Tag] tag.
type Explicit struct {
	Tag   uint8
	Inner Value
}

func (v Explicit) check() error {
	if v.Tag > 30 {
		return fmt.Errorf("%w: explicit tag %d needs high-tag-number form", ErrEncoding, v.Tag)
	}
	if v.Inner == nil {
		return fmt.Errorf("%w: nil explicit value", ErrEncoding)
	}
	return v.Inner.check()
}

func (v Explicit) encode(b *cryptobyte.Builder) {
	b.AddASN1(cbasn1.Tag(v.Tag).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
		v.Inner.encode(b)
	})
}

// Typed is an OID-tagged value: SEQUENCE { type OBJECT IDENTIFIER, value }.
// It covers AttributeTypeAndValue and AlgorithmIdentifier. A nil Value is
// omitted entirely.
type Typed struct {
	Type  asn1.ObjectIdentifier
	Value Value
}

func (v Typed) check() error {
	if err := ObjectIdentifier(v.Type).check(); err != nil {
		return err
	}
	if v.Value == nil {
		return nil
	}
	return v.Value.check()
}

func (v Typed) encode(b *cryptobyte.Builder) {
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(v.Type)
		if v.Value != nil {
			v.Value.encode(b)
		}
	})
}

// Raw is an already DER encoded element that is emitted byte for byte. It
// must hold exactly one well-formed element.
type Raw []byte

func (v Raw) check() error {
	input := cryptobyte.String(v)

	var elem cryptobyte.String
	var tag cbasn1.Tag
	if !input.ReadAnyASN1Element(&elem, &tag) || !input.Empty() {
		return fmt.Errorf("%w: raw value is not a single DER element", ErrEncoding)
	}
	return nil
}

func (v Raw) encode(b *cryptobyte.Builder) {
	b.AddBytes(v)
}

func checkAll(children []Value) error {
	for i, child := range children {
		if child == nil {
			return fmt.Errorf("%w: nil child at index %d", ErrEncoding, i)
		}
		if err := child.check(); err != nil {
			return err
		}
	}
	return nil
}
