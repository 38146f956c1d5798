// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pem provides PEM encoding with CRLF line endings and strict decoding.
//
// https://datatracker.ietf.org/doc/html/rfc7468
package pem

import (
	"bytes"
	"encoding/base64"
	"errors"
)

// LineLength is the number of base64 characters per encoded line.
const LineLength = 64

// Labels of the artifacts produced by the generator.
const (
	LabelCertificate = "CERTIFICATE"
	LabelPublicKey   = "PUBLIC KEY"
	LabelPrivateKey  = "PRIVATE KEY"
)

var (
	pemHeader = []byte("-----BEGIN ")
	pemFooter = []byte("-----END ")
	pemEnding = []byte("-----")
	pemCRLF   = []byte("\r\n")
)

// Block is a labeled binary blob, the textual projection of a certificate or
// a key.
type Block struct {
	Label string
	Bytes []byte
}

// Encode renders the block as PEM text.
func (b *Block) Encode() []byte {
	return Encode(b.Label, b.Bytes)
}

// String renders the block as PEM text.
func (b *Block) String() string {
	return string(b.Encode())
}

// Encode encodes data as a PEM block with the given label. Lines are 64
// characters (the last one may be shorter), every line ends in \r\n.
func Encode(label string, blob []byte) []byte {
	b64 := base64.StdEncoding.EncodeToString(blob)

	var buf bytes.Buffer
	buf.Grow(len(b64) + len(b64)/LineLength*2 + 2*len(label) + 40)

	buf.Write(pemHeader)
	buf.WriteString(label)
	buf.Write(pemEnding)
	buf.Write(pemCRLF)

	for len(b64) > 0 {
		line := b64
		if len(line) > LineLength {
			line = b64[:LineLength]
		}
		buf.WriteString(line)
		buf.Write(pemCRLF)
		b64 = b64[len(line):]
	}
	buf.Write(pemFooter)
	buf.WriteString(label)
	buf.Write(pemEnding)
	buf.Write(pemCRLF)

	return buf.Bytes()
}

// Decode decodes a single PEM block with strict validation.
//
// Rules:
//   - Header must start at byte 0 (no leading whitespace)
//   - Footer must end the data (only optional line ending after)
//   - Line endings must be consistent (\n or \r\n throughout)
//   - Base64 lines contain only base64 characters
//   - Strict base64 decoding (no padding errors, etc.)
//   - No trailing data after the PEM block
func Decode(data []byte) (label string, blob []byte, err error) {
	if !bytes.HasPrefix(data, pemHeader) {
		return "", nil, errors.New("pem: missing PEM header")
	}
	headerEnd := bytes.IndexByte(data, '\n')
	if headerEnd < 0 {
		return "", nil, errors.New("pem: incomplete PEM header")
	}
	// The header line decides the line ending style of the whole block
	lineEnding := []byte("\n")
	if headerEnd > 0 && data[headerEnd-1] == '\r' {
		lineEnding = pemCRLF
	}
	header := data[:headerEnd+1-len(lineEnding)]
	if !bytes.HasSuffix(header, pemEnding) || len(header) < len(pemHeader)+len(pemEnding) {
		return "", nil, errors.New("pem: malformed PEM header")
	}
	label = string(header[len(pemHeader) : len(header)-len(pemEnding)])
	if len(label) == 0 {
		return "", nil, errors.New("pem: empty PEM label")
	}
	footer := append(append(append([]byte(nil), pemFooter...), label...), pemEnding...)

	footerIdx := bytes.Index(data[headerEnd+1:], footer)
	if footerIdx < 0 {
		return "", nil, errors.New("pem: missing PEM footer")
	}
	footerStart := headerEnd + 1 + footerIdx
	footerEnd := footerStart + len(footer)

	if rest := data[footerEnd:]; len(rest) > 0 && !bytes.Equal(rest, lineEnding) {
		return "", nil, errors.New("pem: trailing data after PEM block")
	}
	body := data[headerEnd+1 : footerStart]
	if len(body) == 0 {
		return label, []byte{}, nil // empty payload encodes to no body lines
	}
	if !bytes.HasSuffix(body, lineEnding) {
		return "", nil, errors.New("pem: body must end with newline before footer")
	}
	body = body[:len(body)-len(lineEnding)]

	// A lone \r or \n left after stripping means mixed line endings
	b64 := bytes.ReplaceAll(body, lineEnding, nil)
	if bytes.ContainsAny(b64, "\r\n") {
		return "", nil, errors.New("pem: inconsistent line endings")
	}
	decoded, err := base64.StdEncoding.Strict().DecodeString(string(b64))
	if err != nil {
		return "", nil, errors.New("pem: invalid base64 encoding")
	}
	return label, decoded, nil
}

// DecodeBlock decodes a single PEM block and checks its label.
func DecodeBlock(data []byte, label string) (*Block, error) {
	kind, blob, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if kind != label {
		return nil, errors.New("pem: unexpected PEM label: " + kind)
	}
	return &Block{Label: kind, Bytes: blob}, nil
}
