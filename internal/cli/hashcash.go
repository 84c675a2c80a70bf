package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/tonycody/library/internal/validation"
	"github.com/tonycody/library/pkg/hashcash"
)

// NewHashcashCommand wires the hashcash1 token tool.
func NewHashcashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hashcash1",
		Short: "Create and verify hashcash proof-of-work keys",
		Long: `hashcash1 searches for proof-of-work keys over a challenge value and
verifies them. The value length selects the core: a 32-byte value uses
the SHA-256 short form (difficulty limit supported), any other length
uses the 256 KiB memory-hard SHA-512 long form.

Hex arguments and printed keys use the tool's wire byte order, which is
byte-reversed; pass --normal-order for natural order on both.`,
	}

	cmd.AddCommand(
		newHashcashCreateCommand(),
		newHashcashVerifyCommand(),
	)

	return cmd
}

func newHashcashCreateCommand() *cobra.Command {
	var (
		normalOrder bool
		asMnemonic  bool
	)

	cmd := &cobra.Command{
		Use:   "create <value-hex> [limit] <timeout-seconds>",
		Short: "Search for a proof-of-work key for a value",
		Long: `Search for a key for the given value and print it as lowercase hex.

With three arguments the middle one is the difficulty limit in leading
zero bits; the search returns as soon as a key meets it. A limit of -1
(or omitting it) disables the gate. A timeout of -1 disables the clock
for the short form; the long form then returns its first candidate.
Interrupting with Ctrl-C returns the best key found so far.`,
		Example: `  # 22 leading zero bits over a 32-byte value, give up after 60s
  library hashcash1 create 0101...01 22 60

  # memory-hard long form over a 128-byte value for 30 seconds
  library hashcash1 create <value-hex> 30`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseHexArg(args[0], normalOrder)
			if err != nil {
				return fmt.Errorf("invalid value: %w", err)
			}

			limit := -1
			if len(args) == 3 {
				limit, err = strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid limit: %w", err)
				}
				if err := validation.ValidateLimit(limit); err != nil {
					return err
				}
			}

			seconds, err := strconv.Atoi(args[len(args)-1])
			if err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}
			if err := validation.ValidateTimeout(seconds); err != nil {
				return err
			}

			timeout := time.Duration(0)
			if seconds > 0 {
				timeout = time.Duration(seconds) * time.Second
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var key []byte
			if len(value) == hashcash.ValueSize32 {
				key, err = hashcash.Create32(ctx, value, limit, timeout)
			} else {
				if limit >= 0 {
					return fmt.Errorf("limit is only supported for %d-byte values", hashcash.ValueSize32)
				}
				key, err = hashcash.Create64(ctx, value, timeout)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatHex(key, normalOrder))

			if asMnemonic {
				if len(key) != hashcash.KeySize32 {
					return fmt.Errorf("mnemonic form is only available for %d-byte keys", hashcash.KeySize32)
				}
				words, err := bip39.NewMnemonic(key)
				if err != nil {
					return fmt.Errorf("failed to encode mnemonic: %w", err)
				}
				color.New(color.FgCyan).Fprintln(cmd.ErrOrStderr(), words)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&normalOrder, "normal-order", false, "Parse and print hex in natural byte order")
	cmd.Flags().BoolVar(&asMnemonic, "mnemonic", false, "Also print a BIP-39 mnemonic form of 32-byte keys")
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func newHashcashVerifyCommand() *cobra.Command {
	var normalOrder bool

	cmd := &cobra.Command{
		Use:   "verify <key-hex|key-mnemonic> <value-hex>",
		Short: "Print the difficulty of a proof-of-work key",
		Long: `Recompute the digest for key and value and print its number of leading
zero bits as decimal. The key length selects the core: 32 bytes is the
SHA-256 short form, 64 bytes the memory-hard long form. A quoted BIP-39
mnemonic is accepted in place of a 32-byte hex key.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKeyArg(args[0], normalOrder)
			if err != nil {
				return fmt.Errorf("invalid key: %w", err)
			}

			value, err := parseHexArg(args[1], normalOrder)
			if err != nil {
				return fmt.Errorf("invalid value: %w", err)
			}

			var count int
			switch len(key) {
			case hashcash.KeySize32:
				count, err = hashcash.Verify32(key, value)
			case hashcash.KeySize64:
				count, err = hashcash.Verify64(key, value)
			default:
				return fmt.Errorf("key must be %d or %d bytes, got %d", hashcash.KeySize32, hashcash.KeySize64, len(key))
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&normalOrder, "normal-order", false, "Parse hex in natural byte order")

	return cmd
}

// parseKeyArg accepts a hex key or, when the argument contains spaces, a
// BIP-39 mnemonic encoding of a 32-byte key.
func parseKeyArg(input string, normalOrder bool) ([]byte, error) {
	if strings.ContainsRune(strings.TrimSpace(input), ' ') {
		key, err := bip39.EntropyFromMnemonic(input)
		if err != nil {
			return nil, fmt.Errorf("failed to decode mnemonic: %w", err)
		}
		return key, nil
	}

	return parseHexArg(input, normalOrder)
}
