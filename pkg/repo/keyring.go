package repo

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// KeyringFromTrustedKey loads the keyring a TrustedKey references.
func KeyringFromTrustedKey(key TrustedKey) (openpgp.EntityList, error) {
	slog.Debug("reading keyring", slog.String("path", key.Path), slog.Bool("raw", key.Raw))
	f, err := os.Open(key.Path)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	defer f.Close()

	return KeyringFromReader(f, key.Raw)
}

// KeyringFromReader reads an OpenPGP keyring, ASCII-armored unless raw.
func KeyringFromReader(in io.Reader, raw bool) (openpgp.EntityList, error) {
	var keyRing openpgp.EntityList
	var err error
	if raw {
		keyRing, err = openpgp.ReadKeyRing(in)
	} else {
		keyRing, err = openpgp.ReadArmoredKeyRing(in)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding keyring: %w", err)
	}
	if len(keyRing) == 0 {
		return nil, fmt.Errorf("keyring contains no keys")
	}
	return keyRing, nil
}
