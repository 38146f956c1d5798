// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dark-bio/certgen-go/pem"
	"github.com/dark-bio/certgen-go/selfsign"
)

// artifact is one PEM output file.
type artifact struct {
	name  string
	block *pem.Block
	mode  os.FileMode
}

func artifacts(res *selfsign.Result) []artifact {
	return []artifact{
		{"certificate.pem", res.CertificatePEM, 0o644},
		{"public_key.pem", res.PublicKeyPEM, 0o644},
		{"private_key.pem", res.PrivateKeyPEM, 0o600},
	}
}

// writeArtifacts stores every PEM block in its own file inside dir, or prints
// them one after the other to w if dir is empty.
func writeArtifacts(dir string, res *selfsign.Result, w io.Writer, logger *slog.Logger) error {
	if dir == "" {
		for _, a := range artifacts(res) {
			if _, err := w.Write(a.block.Encode()); err != nil {
				return fmt.Errorf("writing %s: %w", a.block.Label, err)
			}
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, a := range artifacts(res) {
		path := filepath.Join(dir, a.name)
		if err := os.WriteFile(path, a.block.Encode(), a.mode); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info("wrote PEM file", "label", a.block.Label, "path", path)
	}
	return nil
}
