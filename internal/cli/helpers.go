package cli

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/tonycody/library/internal/validation"
)

// parseHexArg decodes a hex argument. Odd lengths get a leading zero
// nibble. Unless normalOrder is set the bytes are reversed, matching the
// tool's wire byte order for keys and values.
func parseHexArg(input string, normalOrder bool) ([]byte, error) {
	input = strings.TrimSpace(input)
	if err := validation.ValidateHex(input); err != nil {
		return nil, err
	}
	if len(input)%2 != 0 {
		input = "0" + input
	}

	data, err := hex.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex: %w", err)
	}

	if !normalOrder {
		reverseBytes(data)
	}
	return data, nil
}

// formatHex prints lowercase hex, reversed unless normalOrder is set.
func formatHex(data []byte, normalOrder bool) string {
	if normalOrder {
		return hex.EncodeToString(data)
	}

	reversed := bytes.Clone(data)
	reverseBytes(reversed)
	return hex.EncodeToString(reversed)
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// readPassphrase reads a passphrase from the terminal without echo, with
// a plain-read fallback for pipes.
func readPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		pass, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, err
		}
		return pass, nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimSpace(line)), nil
}

// promptNewPassphrase asks twice and requires the entries to match.
func promptNewPassphrase() ([]byte, error) {
	pass, err := readPassphrase("Enter passphrase: ")
	if err != nil {
		return nil, err
	}
	if len(pass) == 0 {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}

	confirm, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pass, confirm) {
		return nil, fmt.Errorf("passphrases do not match")
	}

	return pass, nil
}
