// DSN archival tool - archive record files into self-verifying pieces and
// reconstruct them back.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/colorfulnotion/dsn/archiver"
	"github.com/colorfulnotion/dsn/erasurecoding"
	"github.com/colorfulnotion/dsn/kzg"
	log "github.com/colorfulnotion/dsn/log"
	"github.com/colorfulnotion/dsn/storage"
	"github.com/colorfulnotion/dsn/types"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "dsn",
		Short: "DSN archival engine",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		paramsPath string
		dbPath     string
		logLevel   string
		debug      string
		shardCount int
	)
	rootCmd.PersistentFlags().StringVar(&paramsPath, "params", "params.bin", "Public parameter blob")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "dsn-data", "Piece store path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "info", "Log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&debug, "debug", "", "Comma-separated modules with trace/debug logging, or 'all'")
	rootCmd.PersistentFlags().IntVar(&shardCount, "shards", types.NumSourceShards, "Source shards per segment (power of two)")

	var (
		paramsSize   int
		paramsSecret int64
	)
	var paramsCmd = &cobra.Command{
		Use:   "params",
		Short: "Generate an insecure test parameter blob",
		Run: func(cmd *cobra.Command, args []string) {
			initLogging(logLevel, debug)
			fmt.Printf("Generating TEST parameters (size %d) - the secret is known, do not use in production\n", paramsSize)
			params, err := kzg.GenerateTestParams(paramsSize, paramsSecret)
			if err != nil {
				fatal("Failed to generate parameters: %v\n", err)
			}
			if err := os.WriteFile(paramsPath, params.Bytes(), 0o644); err != nil {
				fatal("Failed to write %s: %v\n", paramsPath, err)
			}
			fmt.Printf("✓ Wrote %s (id %s)\n", paramsPath, params.ID().Hex())
		},
	}
	paramsCmd.Flags().IntVar(&paramsSize, "size", types.NumSourceShards, "Supported coefficient count")
	paramsCmd.Flags().Int64Var(&paramsSecret, "secret", 1337, "Trapdoor for the test setup")

	var archiveCmd = &cobra.Command{
		Use:   "archive [files...]",
		Short: "Archive record files into pieces and store them",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			initLogging(logLevel, debug)
			codec := mustCodec(paramsPath, shardCount)
			store := mustStore(dbPath)
			defer store.Close()

			records := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					fatal("Failed to read %s: %v\n", path, err)
				}
				records = append(records, data)
			}
			fmt.Printf("Archiving %d records (%d source shards, %d byte segments)\n", len(records), codec.N(), codec.Capacity())

			arch := archiver.NewArchiver(codec)
			sealed := make([]archiver.ArchivedSegment, 0, 1)
			for i, record := range records {
				segments, err := arch.AddRecord(record)
				if err != nil {
					fatal("Failed to archive %s: %v\n", args[i], err)
				}
				sealed = append(sealed, segments...)
			}
			flushed, err := arch.Flush()
			if err != nil {
				fatal("Failed to flush: %v\n", err)
			}
			if flushed != nil {
				sealed = append(sealed, *flushed)
			}

			for _, segment := range sealed {
				if err := store.PutPieces(segment.Pieces); err != nil {
					fatal("Failed to store pieces: %v\n", err)
				}
				if err := store.PutSegmentHeader(&segment.Header); err != nil {
					fatal("Failed to store header: %v\n", err)
				}
				fmt.Printf("✓ Segment %d: %d pieces, commitment %s\n", segment.Header.SegmentIndex, len(segment.Pieces), segment.Header.SegmentCommitment.String())
			}
		},
	}

	var (
		segmentIndex uint64
		outDir       string
		strategyName string
	)
	var reconstructCmd = &cobra.Command{
		Use:   "reconstruct",
		Short: "Reconstruct a segment's records from stored pieces",
		Run: func(cmd *cobra.Command, args []string) {
			initLogging(logLevel, debug)
			codec := mustCodec(paramsPath, shardCount)
			store := mustStore(dbPath)
			defer store.Close()

			strategy := archiver.StrategyParallel
			if strategyName == "sequential" {
				strategy = archiver.StrategySequential
			} else if strategyName != "parallel" {
				fatal("Unknown strategy %q (want parallel or sequential)\n", strategyName)
			}

			pieces, err := store.GetSegmentPieces(types.SegmentIndex(segmentIndex))
			if err != nil {
				fatal("Failed to load pieces: %v\n", err)
			}
			fmt.Printf("Reconstructing segment %d from %d stored pieces (%s)\n", segmentIndex, len(pieces), strategy)

			records, err := archiver.NewReconstructor(codec).Reconstruct(pieces, strategy)
			if err != nil {
				fatal("Reconstruction failed: %v\n", err)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				fatal("Failed to create %s: %v\n", outDir, err)
			}
			for i, record := range records {
				path := filepath.Join(outDir, fmt.Sprintf("segment-%d-record-%d", segmentIndex, i))
				if err := os.WriteFile(path, record, 0o644); err != nil {
					fatal("Failed to write %s: %v\n", path, err)
				}
				fmt.Printf("✓ %s (%d bytes)\n", path, len(record))
			}
		},
	}
	reconstructCmd.Flags().Uint64Var(&segmentIndex, "segment", 0, "Segment index")
	reconstructCmd.Flags().StringVar(&outDir, "out", "records", "Output directory")
	reconstructCmd.Flags().StringVar(&strategyName, "strategy", "parallel", "Verification strategy (parallel|sequential)")

	var verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify every stored piece of a segment",
		Run: func(cmd *cobra.Command, args []string) {
			initLogging(logLevel, debug)
			codec := mustCodec(paramsPath, shardCount)
			store := mustStore(dbPath)
			defer store.Close()

			pieces, err := store.GetSegmentPieces(types.SegmentIndex(segmentIndex))
			if err != nil {
				fatal("Failed to load pieces: %v\n", err)
			}
			if len(pieces) == 0 {
				fatal("No pieces stored for segment %d\n", segmentIndex)
			}
			bad := 0
			for i := range pieces {
				if err := codec.VerifyPiece(&pieces[i]); err != nil {
					fmt.Printf("✗ shard %d: %v\n", pieces[i].ShardIndex, err)
					bad++
				}
			}
			fmt.Printf("Segment %d: %d/%d pieces valid\n", segmentIndex, len(pieces)-bad, len(pieces))
			if bad > 0 {
				os.Exit(1)
			}
		},
	}
	verifyCmd.Flags().Uint64Var(&segmentIndex, "segment", 0, "Segment index")

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dsn %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}

	rootCmd.AddCommand(paramsCmd, archiveCmd, reconstructCmd, verifyCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogging(logLevel, debug string) {
	log.InitLogger(logLevel)
	log.EnableModules(debug)
}

func mustCodec(paramsPath string, shardCount int) *erasurecoding.Codec {
	blob, err := os.ReadFile(paramsPath)
	if err != nil {
		fatal("Failed to read parameters %s: %v (run 'dsn params' first)\n", paramsPath, err)
	}
	params, err := kzg.ParamsFromBytes(blob)
	if err != nil {
		fatal("Failed to parse parameters: %v\n", err)
	}
	codec, err := erasurecoding.New(shardCount, kzg.NewScheme(params))
	if err != nil {
		fatal("Failed to build codec: %v\n", err)
	}
	return codec
}

func mustStore(dbPath string) *storage.PieceStore {
	store, err := storage.NewPieceStore(dbPath)
	if err != nil {
		fatal("Failed to open piece store: %v\n", err)
	}
	return store
}

func fatal(format string, args ...interface{}) {
	fmt.Printf(format, args...)
	os.Exit(1)
}
