// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cryptosvc defines the cryptography service boundary the certificate
// generator relies on (key generation, key export, signing) and provides an
// in-process RSASSA-PKCS1-v1_5 implementation of it.
//
// https://datatracker.ietf.org/doc/html/rfc8017
package cryptosvc

import (
	"context"
	"crypto"
	"errors"
	"fmt"
)

// ErrCryptoService is the root of every failure reported by the service.
// Callers surface it unchanged, no retries or fallbacks are attempted.
var ErrCryptoService = errors.New("cryptosvc: service error")

var (
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported algorithm", ErrCryptoService)
	ErrUnsupportedFormat    = fmt.Errorf("%w: unsupported key format", ErrCryptoService)
	ErrInvalidKeyUsage      = fmt.Errorf("%w: invalid key usage", ErrCryptoService)
	ErrAlgorithmMismatch    = fmt.Errorf("%w: key algorithm mismatch", ErrCryptoService)
	ErrInvalidKey           = fmt.Errorf("%w: invalid key", ErrCryptoService)
	ErrInvalidSignature     = fmt.Errorf("%w: signature verification failed", ErrCryptoService)
)

// NameRSASSAPKCS1v15 is the algorithm name of RSA PKCS#1 v1.5 signatures.
const NameRSASSAPKCS1v15 = "RSASSA-PKCS1-v1_5"

// Algorithm describes a key generation and signing algorithm.
type Algorithm struct {
	Name           string      // Algorithm family, only RSASSA-PKCS1-v1_5 is supported
	ModulusLength  int         // RSA modulus size in bits
	PublicExponent int         // RSA public exponent
	Hash           crypto.Hash // Digest applied to the message before signing
}

// RSASSAPKCS1v15SHA256 is RSA-2048 with exponent 65537 signing SHA-256 digests.
var RSASSAPKCS1v15SHA256 = Algorithm{
	Name:           NameRSASSAPKCS1v15,
	ModulusLength:  2048,
	PublicExponent: 65537,
	Hash:           crypto.SHA256,
}

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	return fmt.Sprintf("%s/%d/%s", a.Name, a.ModulusLength, a.Hash)
}

// Format is a binary key export format.
type Format int

const (
	FormatSPKI  Format = iota + 1 // SubjectPublicKeyInfo, public keys only
	FormatPKCS8                   // PKCS#8 PrivateKeyInfo, private keys only
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatSPKI:
		return "spki"
	case FormatPKCS8:
		return "pkcs8"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// KeyType tells public and private key handles apart.
type KeyType int

const (
	KeyTypePublic KeyType = iota + 1
	KeyTypePrivate
)

// Key is an opaque handle to key material owned by the service.
type Key struct {
	typ   KeyType
	alg   Algorithm
	inner any
}

// Type returns whether the handle refers to a public or a private key.
func (k *Key) Type() KeyType { return k.typ }

// Algorithm returns the algorithm the key was created for.
func (k *Key) Algorithm() Algorithm { return k.alg }

// KeyPair is a freshly generated public/private key pair.
type KeyPair struct {
	PublicKey  *Key
	PrivateKey *Key
}

// Service is the cryptography service consumed by the certificate generator.
// Every call may block and every failure wraps ErrCryptoService.
type Service interface {
	// GenerateKeyPair creates a new key pair for the given algorithm.
	GenerateKeyPair(ctx context.Context, alg Algorithm) (*KeyPair, error)

	// ExportKey serializes a key handle into the requested binary format.
	ExportKey(ctx context.Context, format Format, key *Key) ([]byte, error)

	// Sign signs the exact message bytes with a private key.
	Sign(ctx context.Context, alg Algorithm, key *Key, message []byte) ([]byte, error)
}

// Verifier imports exported public keys and checks signatures made by them.
type Verifier interface {
	// ImportKey parses a key previously exported in the given format.
	ImportKey(ctx context.Context, format Format, der []byte, alg Algorithm) (*Key, error)

	// Verify checks a signature over message using a public key.
	Verify(ctx context.Context, alg Algorithm, key *Key, message, signature []byte) error
}
