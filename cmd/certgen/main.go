// certgen-go: self-signed certificate generation
// Copyright 2025 Dark Bio AG. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package main is the command line front-end of the certificate generator.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dark-bio/certgen-go/cryptosvc"
	"github.com/dark-bio/certgen-go/selfsign"
	"github.com/dark-bio/certgen-go/x509"
)

const (
	flagConfig             = "config"
	flagCommonName         = "common-name"
	flagOrganization       = "organization"
	flagOrganizationalUnit = "organizational-unit"
	flagCountry            = "country"
	flagOutDir             = "out-dir"
	flagSerial             = "serial"
	flagPathLen            = "path-len"
	flagLogLevel           = "log-level"
)

var rootCmd = &cobra.Command{
	Use:           "certgen",
	Short:         "generate a self-signed X.509 certificate",
	Long:          "certgen creates an RSA-2048 key pair and a self-signed certificate, and writes all three as PEM",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PreRunE:       setup,
	RunE:          run,
}

var logger *slog.Logger

func setup(cmd *cobra.Command, _ []string) error {
	if path := viper.GetString(flagConfig); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString(flagLogLevel))); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	// Logs go to stderr, stdout may carry the PEM output
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("command", cmd.Name())
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	req, err := requestFromConfig(viper.GetViper())
	if err != nil {
		return err
	}
	gen := selfsign.New(cryptosvc.NewLocal(), logger.With("module", "selfsign"))

	res, err := gen.Generate(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeArtifacts(viper.GetString(flagOutDir), res, cmd.OutOrStdout(), logger)
}

// requestFromConfig collects the generation request from flags, environment
// and config file.
func requestFromConfig(v *viper.Viper) (selfsign.Request, error) {
	serial, err := selfsign.ParseSerialSource(v.GetString(flagSerial))
	if err != nil {
		return selfsign.Request{}, err
	}
	req := selfsign.Request{
		CommonName:         v.GetString(flagCommonName),
		Organization:       v.GetString(flagOrganization),
		OrganizationalUnit: v.GetString(flagOrganizationalUnit),
		Country:            v.GetString(flagCountry),
		Serial:             serial,
	}
	if pathLen := v.GetInt(flagPathLen); pathLen >= 0 {
		req.PathLen = &pathLen
	}
	return req, nil
}

func init() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`-`, `_`))
	viper.SetEnvPrefix("certgen")

	pf := rootCmd.Flags()
	pf.String(flagConfig, "", "path to a config file holding any of the flags below")
	pf.String(flagCommonName, "", "common name of the certificate (required)")
	pf.String(flagOrganization, "", "organization name")
	pf.String(flagOrganizationalUnit, "", "organizational unit name")
	pf.String(flagCountry, "", "two letter country code (required)")
	pf.String(flagOutDir, "", "directory to write the PEM files into, stdout if empty")
	pf.String(flagSerial, "random", "serial number source (random, clock)")
	pf.Int(flagPathLen, -1, "pathLenConstraint to encode in Basic Constraints, omitted if negative (set 3 for the legacy fixed layout)")
	pf.String(flagLogLevel, "info", "log level (error, warn, info, debug)")

	if err := viper.BindPFlags(pf); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error creating certificate:", describe(err))
		os.Exit(1)
	}
}

// describe turns a failure into the single human-readable message shown to
// the user, naming which kind of failure it was.
func describe(err error) string {
	switch {
	case errors.Is(err, selfsign.ErrInvalidInput):
		return "invalid input: " + err.Error()
	case errors.Is(err, cryptosvc.ErrCryptoService):
		return "cryptography service failed: " + err.Error()
	case errors.Is(err, x509.ErrEncoding):
		return "certificate encoding failed: " + err.Error()
	default:
		return err.Error()
	}
}
