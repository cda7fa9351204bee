package main

import (
	"fmt"
	"os"
	"strings"

	"contractus/cmd/internal/passphrase"
	"contractus/crypto"
	"contractus/sdk/contract"
	"contractus/sdk/metadata"
)

func (a *app) runKeystore(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: keystore <new|import|address> [flags]")
		return errUsage
	}
	sub := args[0]
	fs := a.flagSet("keystore " + sub)
	var out, keyHex string
	switch sub {
	case "new":
		fs.StringVar(&out, "out", "", "Keystore file to write")
	case "import":
		fs.StringVar(&out, "out", "", "Keystore file to write")
		fs.StringVar(&keyHex, "key-file", "", "File holding the hex encoded private key")
	case "address":
	default:
		fmt.Fprintf(a.stderr, "Unknown keystore subcommand: %s\n", sub)
		return errUsage
	}
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	source := passphrase.NewSource(a.cfg.PassphraseEnv, a.cfg.PassphraseFile)

	if sub == "address" {
		if a.cfg.KeystorePath == "" {
			return fmt.Errorf("a keystore is required; set KeystorePath or -keystore")
		}
		pass, err := source.Get()
		if err != nil {
			return err
		}
		key, err := crypto.LoadFromKeystore(a.cfg.KeystorePath, pass)
		if err != nil {
			return fmt.Errorf("unlock keystore: %w", err)
		}
		return a.print(map[string]string{"address": contract.Lower(key.Address())})
	}

	if strings.TrimSpace(out) == "" {
		return fmt.Errorf("--out is required")
	}
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("%s already exists", out)
	}
	var (
		key *crypto.PrivateKey
		err error
	)
	if sub == "import" {
		if strings.TrimSpace(keyHex) == "" {
			return fmt.Errorf("--key-file is required")
		}
		raw, readErr := os.ReadFile(keyHex)
		if readErr != nil {
			return readErr
		}
		key, err = crypto.PrivateKeyFromHex(strings.TrimSpace(string(raw)))
	} else {
		key, err = crypto.GeneratePrivateKey()
	}
	if err != nil {
		return err
	}
	pass, err := source.Get()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(out, key, pass); err != nil {
		return err
	}
	return a.print(map[string]string{"address": contract.Lower(key.Address()), "keystore": out})
}

func (a *app) runMetadata(args []string) error {
	if len(args) != 2 || args[0] != "decode" {
		fmt.Fprintln(a.stderr, "Usage: metadata decode <data-uri>")
		return errUsage
	}
	decoded, err := metadata.DecodeMap(args[1])
	if err != nil {
		return err
	}
	return a.print(decoded)
}
