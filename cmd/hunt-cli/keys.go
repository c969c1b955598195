package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"treasurehunt/cmd/internal/passphrase"
	"treasurehunt/crypto"
)

const authorityPassEnv = "HUNT_AUTHORITY_PASSPHRASE"

// keystoreParams is lowered in tests.
var keystoreParams = crypto.StandardScrypt

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var out string
	var force bool
	fs.StringVar(&out, "out", "hunt.key", "keystore file to write")
	fs.BoolVar(&force, "force", false, "overwrite an existing keystore")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	out = strings.TrimSpace(out)
	if out == "" {
		fmt.Fprintln(stderr, "Error: --out is required")
		return 1
	}
	if _, err := os.Stat(out); err == nil && !force {
		fmt.Fprintf(stderr, "Error: %s already exists; pass --force to overwrite\n", out)
		return 1
	}

	pass, err := passphrase.NewSource(passphrase.EnvVar, passphrase.WithConfirm()).Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: generate key: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystoreWithParams(out, key, pass, keystoreParams); err != nil {
		fmt.Fprintf(stderr, "Error: write keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Address: %s\nKeystore: %s\n", key.PubKey().Address(), out)
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keyFile string
	fs.StringVar(&keyFile, "key", "hunt.key", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(keyFile, passphrase.NewSource(passphrase.EnvVar))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address())
	return 0
}

func loadKey(path string, src *passphrase.Source) (*crypto.PrivateKey, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("keystore path required")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("keystore %s not found. run hunt-cli generate-key first", path)
		}
		return nil, err
	}
	pass, err := src.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", path, err)
	}
	return key, nil
}
