package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdulachik/threadsmith/internal/thread"
)

var (
	splitHardLimit int
	splitSoftLimit int
)

var splitCmd = &cobra.Command{
	Use:   "split [file]",
	Short: "Split text into a thread",
	Long: `Split text into posts the same way generated posts are split. Reads the
file argument, or stdin when it is missing or "-". Runs locally.

Examples:
  threadsmith split draft.txt
  pbpaste | threadsmith split --hard 300 --soft 300`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().IntVar(&splitHardLimit, "hard", thread.DefaultHardLimit, "Maximum characters per post")
	splitCmd.Flags().IntVar(&splitSoftLimit, "soft", thread.DefaultSoftLimit, "Keep text up to this length as a single post")
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	th := thread.Split(strings.TrimSpace(string(data)), thread.Policy{
		HardLimit: splitHardLimit,
		SoftLimit: splitSoftLimit,
	})
	printThread(th)
	return nil
}
