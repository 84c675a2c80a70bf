package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tonycody/library/internal/validation"
	"github.com/tonycody/library/pkg/fec"
	"github.com/tonycody/library/pkg/secure"
	"github.com/tonycody/library/pkg/shardset"
)

// NewSplitCommand splits a file into an erasure-coded shard set.
func NewSplitCommand() *cobra.Command {
	var (
		dataShards  int
		totalShards int
		outDir      string
		encrypt     bool
	)

	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "Split a file into erasure-coded shards",
		Long: `Split pads the file into k equal data shards, computes n-k parity
shards, and writes all n shard files plus a JSON manifest. Any k
surviving shards reconstruct the file with 'combine'.

With --encrypt every shard is sealed with a passphrase before it is
written.`,
		Example: `  # 4 data shards plus 2 parity shards
  library split --data 4 --total 6 backup.tar

  # encrypted shards in a separate directory
  library split --data 3 --total 5 --encrypt --out-dir shards/ secrets.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateShardParams(dataShards, totalShards); err != nil {
				return err
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			defer secure.Zero(data)

			var passphrase []byte
			if encrypt {
				if passphrase, err = promptNewPassphrase(); err != nil {
					return err
				}
				defer secure.Zero(passphrase)
			}

			codec, err := fec.New(dataShards, totalShards)
			if err != nil {
				return err
			}

			shardLen := (len(data) + dataShards - 1) / dataShards
			padded := make([]byte, dataShards*shardLen)
			copy(padded, data)
			defer secure.Zero(padded)

			src := make([][]byte, dataShards)
			for i := range src {
				src[i] = padded[i*shardLen : (i+1)*shardLen]
			}

			repair := make([][]byte, totalShards-dataShards)
			index := make([]int, totalShards-dataShards)
			for i := range repair {
				repair[i] = make([]byte, shardLen)
				index[i] = dataShards + i
			}

			slog.Debug("encoding shards",
				"file", path, "k", dataShards, "n", totalShards, "shard_len", shardLen)

			if err := codec.Encode(src, repair, index); err != nil {
				return fmt.Errorf("failed to encode: %w", err)
			}

			shards := make([]shardset.Shard, 0, totalShards)
			for i, s := range src {
				shards = append(shards, shardset.Shard{Index: i, Data: s})
			}
			for i, s := range repair {
				shards = append(shards, shardset.Shard{Index: dataShards + i, Data: s})
			}

			if outDir == "" {
				outDir = filepath.Dir(path)
			}

			manifest := shardset.Manifest{
				Name:        filepath.Base(path),
				Created:     time.Now().UTC(),
				DataShards:  dataShards,
				TotalShards: totalShards,
				ShardLen:    shardLen,
				FileSize:    int64(len(data)),
				Checksum:    shardset.Checksum(data),
			}

			manifestPath, err := shardset.Write(outDir, manifest, shards, passphrase)
			if err != nil {
				return err
			}

			green := color.New(color.FgGreen)
			green.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d shards (%d data + %d parity)\n",
				totalShards, dataShards, totalShards-dataShards)
			fmt.Fprintf(cmd.OutOrStdout(), "Manifest: %s\n", manifestPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Any %d shards reconstruct the file.\n", dataShards)

			return nil
		},
	}

	cmd.Flags().IntVarP(&dataShards, "data", "k", 3, "Number of data shards")
	cmd.Flags().IntVarP(&totalShards, "total", "n", 5, "Total number of shards including parity")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Directory for shards and manifest (default: alongside the input)")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "Seal each shard with a passphrase")

	return cmd
}
