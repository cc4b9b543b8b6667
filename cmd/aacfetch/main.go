package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "aacfetch",
		Short: "Download online media as broadly compatible MP4/AAC or MP3 files",
		Long: "aacfetch picks the best download strategy for a media URL, falls back through " +
			"less specific strategies when one fails, and re-encodes the audio to AAC when the " +
			"downloaded file would not play on common devices.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newDownloadCommand(),
		newAnalyzeCommand(),
		newInfoCommand(),
		newProbeCommand(),
		newDoctorCommand(),
	)

	return root
}
