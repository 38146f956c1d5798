// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/dark-bio/certgen-go/cryptosvc"
	"github.com/dark-bio/certgen-go/pem"
	"github.com/dark-bio/certgen-go/selfsign"
	"github.com/dark-bio/certgen-go/x509"
)

// Tests that the configuration is mapped onto the request.
func TestRequestFromConfig(t *testing.T) {
	v := viper.New()
	v.Set(flagCommonName, "Example Org")
	v.Set(flagOrganization, "Dark Bio AG")
	v.Set(flagCountry, "ch")
	v.Set(flagSerial, "clock")
	v.Set(flagPathLen, 3)

	req, err := requestFromConfig(v)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if req.CommonName != "Example Org" || req.Organization != "Dark Bio AG" || req.Country != "ch" {
		t.Errorf("identity mismatch: have %+v", req)
	}
	if req.Serial != selfsign.SerialClock {
		t.Errorf("serial source mismatch: have %v, want %v", req.Serial, selfsign.SerialClock)
	}
	if req.PathLen == nil || *req.PathLen != 3 {
		t.Errorf("path length mismatch: have %v, want 3", req.PathLen)
	}
	v.Set(flagPathLen, -1)
	if req, _ = requestFromConfig(v); req.PathLen != nil {
		t.Errorf("negative path length not omitted: have %d", *req.PathLen)
	}
	v.Set(flagSerial, "sequential")
	if _, err := requestFromConfig(v); !errors.Is(err, selfsign.ErrInvalidInput) {
		t.Errorf("error mismatch: have %v, want %v", err, selfsign.ErrInvalidInput)
	}
}

// Tests that the artifacts are written as separate files or to a stream.
func TestWriteArtifacts(t *testing.T) {
	res, err := selfsign.Generate(context.Background(), cryptosvc.NewLocal(), selfsign.Request{
		CommonName: "Example Org",
		Country:    "US",
	})
	if err != nil {
		t.Fatalf("failed to generate certificate: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := filepath.Join(t.TempDir(), "out")
	if err := writeArtifacts(dir, res, nil, logger); err != nil {
		t.Fatalf("failed to write artifacts: %v", err)
	}
	for _, a := range artifacts(res) {
		path := filepath.Join(dir, a.name)
		blob, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read %s: %v", path, err)
		}
		block, err := pem.DecodeBlock(blob, a.block.Label)
		if err != nil {
			t.Fatalf("failed to decode %s: %v", path, err)
		}
		if !bytes.Equal(block.Bytes, a.block.Bytes) {
			t.Errorf("%s: payload mismatch", path)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat %s: %v", path, err)
		}
		if perm := info.Mode().Perm(); perm&^a.mode != 0 {
			t.Errorf("%s: permissions %v wider than %v", path, perm, a.mode)
		}
	}
	var buf bytes.Buffer
	if err := writeArtifacts("", res, &buf, logger); err != nil {
		t.Fatalf("failed to write artifacts: %v", err)
	}
	out := buf.String()
	for _, label := range []string{pem.LabelCertificate, pem.LabelPublicKey, pem.LabelPrivateKey} {
		if !strings.Contains(out, "-----BEGIN "+label+"-----\r\n") {
			t.Errorf("stdout missing %s block", label)
		}
	}
}

// Tests that every failure kind gets its own message.
func TestDescribe(t *testing.T) {
	tests := []struct {
		err    error
		prefix string
	}{
		{fmt.Errorf("%w: empty name", selfsign.ErrInvalidInput), "invalid input: "},
		{fmt.Errorf("signing: %w", cryptosvc.ErrInvalidKeyUsage), "cryptography service failed: "},
		{fmt.Errorf("signing: %w", x509.ErrEncoding), "certificate encoding failed: "},
		{errors.New("disk full"), "disk full"},
	}
	for _, tt := range tests {
		if have := describe(tt.err); !strings.HasPrefix(have, tt.prefix) {
			t.Errorf("message mismatch: have %q, want prefix %q", have, tt.prefix)
		}
	}
}
