package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prepit/audioproc/internal/transcript"
)

var segmentCmd = &cobra.Command{
	Use:   "segment <metadata.json>",
	Short: "Print the per-message transcript spans without touching audio",
	Args:  cobra.ExactArgs(1),
	RunE:  runSegment,
}

func init() {
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if errors.Is(err, transcript.ErrNothingToProcess) {
		fmt.Fprintln(cmd.OutOrStdout(), "{}")
		return nil
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
