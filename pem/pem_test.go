// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pem

import (
	"bytes"
	"crypto/rand"
	stdpem "encoding/pem"
	"strings"
	"testing"
)

// Tests the exact textual layout of an encoded block.
func TestEncodeLayout(t *testing.T) {
	blob := bytes.Repeat([]byte{0x00}, 60) // 80 base64 characters

	want := "-----BEGIN TEST-----\r\n" +
		strings.Repeat("A", 64) + "\r\n" +
		strings.Repeat("A", 16) + "\r\n" +
		"-----END TEST-----\r\n"

	if have := string(Encode("TEST", blob)); have != want {
		t.Errorf("encoding mismatch:\nhave %q\nwant %q", have, want)
	}
}

// Tests that every body line is exactly 64 characters, bar the last one.
func TestEncodeLineWidth(t *testing.T) {
	for _, size := range []int{1, 47, 48, 49, 96, 1000, 1218} {
		blob := make([]byte, size)
		rand.Read(blob)

		lines := strings.Split(strings.TrimSuffix(string(Encode(LabelCertificate, blob)), "\r\n"), "\r\n")
		body := lines[1 : len(lines)-1]
		for i, line := range body {
			if i < len(body)-1 && len(line) != LineLength {
				t.Errorf("size %d: line %d has %d characters, want %d", size, i, len(line), LineLength)
			}
			if len(line) == 0 || len(line) > LineLength {
				t.Errorf("size %d: line %d has invalid length %d", size, i, len(line))
			}
		}
	}
}

// Tests that decoding an encoded block reproduces the original binary.
func TestRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 2, 3, 63, 64, 65, 256, 1191, 4096} {
		blob := make([]byte, size)
		rand.Read(blob)

		for _, label := range []string{LabelCertificate, LabelPublicKey, LabelPrivateKey} {
			kind, have, err := Decode(Encode(label, blob))
			if err != nil {
				t.Fatalf("size %d, label %s: failed to decode: %v", size, label, err)
			}
			if kind != label {
				t.Errorf("label mismatch: have %s, want %s", kind, label)
			}
			if !bytes.Equal(have, blob) {
				t.Errorf("size %d, label %s: payload mismatch", size, label)
			}
		}
	}
}

// Tests that the standard library decoder accepts our CRLF output.
func TestStdlibCompat(t *testing.T) {
	blob := make([]byte, 300)
	rand.Read(blob)

	block, rest := stdpem.Decode(Encode(LabelPublicKey, blob))
	if block == nil {
		t.Fatalf("stdlib failed to decode block")
	}
	if len(rest) != 0 {
		t.Errorf("unexpected trailing data: %q", rest)
	}
	if block.Type != LabelPublicKey || !bytes.Equal(block.Bytes, blob) {
		t.Errorf("block mismatch: have %s/%x", block.Type, block.Bytes)
	}
}

// Tests that the block helpers wrap the raw functions.
func TestBlock(t *testing.T) {
	b := &Block{Label: LabelPrivateKey, Bytes: []byte("secret material")}
	if !bytes.Equal(b.Encode(), Encode(b.Label, b.Bytes)) {
		t.Errorf("block encoding differs from raw encoding")
	}
	have, err := DecodeBlock([]byte(b.String()), LabelPrivateKey)
	if err != nil {
		t.Fatalf("failed to decode block: %v", err)
	}
	if have.Label != b.Label || !bytes.Equal(have.Bytes, b.Bytes) {
		t.Errorf("block mismatch: have %v, want %v", have, b)
	}
	if _, err := DecodeBlock([]byte(b.String()), LabelCertificate); err == nil {
		t.Errorf("decoded block with the wrong label")
	}
}

// Tests that malformed inputs are rejected.
func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"leading-space", " -----BEGIN X-----\nAAAA\n-----END X-----\n"},
		{"no-newline", "-----BEGIN X-----"},
		{"bad-header", "-----BEGIN X----\nAAAA\n-----END X-----\n"},
		{"empty-label", "-----BEGIN -----\nAAAA\n-----END -----\n"},
		{"no-footer", "-----BEGIN X-----\nAAAA\n"},
		{"wrong-footer", "-----BEGIN X-----\nAAAA\n-----END Y-----\n"},
		{"trailing", "-----BEGIN X-----\nAAAA\n-----END X-----\ngarbage"},
		{"mixed-endings", "-----BEGIN X-----\r\nAAAA\nAAAA\r\n-----END X-----\r\n"},
		{"bad-base64", "-----BEGIN X-----\nAA*A\n-----END X-----\n"},
		{"bad-padding", "-----BEGIN X-----\nAAA\n-----END X-----\n"},
		{"footer-same-line", "-----BEGIN X-----\nAAAA-----END X-----\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode([]byte(tt.input)); err == nil {
				t.Errorf("decoded malformed input %q", tt.input)
			}
		})
	}
}
