package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/services/ffmpeg"
	"github.com/amaumene/aacfetch/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const lookupTimeout = 2 * time.Minute

func newAnalyzeCommand() *cobra.Command {
	var quality string

	cmd := &cobra.Command{
		Use:   "analyze URL",
		Short: "Show the format catalog and the strategy that would be used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
			defer cancel()

			// A media item without a usable catalog still gets a strategy
			media, analysis, err := a.analysisCtrl.AnalyzeURL(ctx, args[0])
			if media == nil {
				return err
			}

			strategy := a.strategyCtrl.Select(analysis, models.ParseQuality(quality))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Title:\t%s\n", media.Title)
			if analysis == nil {
				fmt.Fprintf(w, "Formats:\tnone listed\n")
			} else {
				fmt.Fprintf(w, "Max height:\t%dp\n", analysis.MaxHeight)
				fmt.Fprintf(w, "H.264:\t%s\n", yesNo(analysis.HasH264))
				fmt.Fprintf(w, "AAC:\t%s\n", yesNo(analysis.HasAAC))
				if v := analysis.BestVideo; v != nil {
					fmt.Fprintf(w, "Best video:\t%s %s %dx%d\n", v.FormatID, v.VCodec, v.Width, v.Height)
				}
				if au := analysis.BestAudioAAC; au != nil {
					fmt.Fprintf(w, "Best AAC audio:\t%s %s %.0fk\n", au.FormatID, au.ACodec, au.ABR)
				}
			}
			fmt.Fprintf(w, "Strategy:\t%s\n", strategy.Name)
			fmt.Fprintf(w, "\t%s\n", strategy.Description)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&quality, "quality", "best", "requested quality: best, 1080p, 720p, 480p")
	return cmd
}

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info URL",
		Short: "Show media metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
			defer cancel()

			media, err := a.analysisCtrl.FetchInfo(ctx, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Title:\t%s\n", media.Title)
			fmt.Fprintf(w, "Uploader:\t%s\n", media.Uploader)
			fmt.Fprintf(w, "Duration:\t%s\n", utils.FormatDuration(int(media.Duration)))
			fmt.Fprintf(w, "Views:\t%s\n", humanize.Comma(media.ViewCount))
			fmt.Fprintf(w, "Page:\t%s\n", media.WebpageURL)
			return w.Flush()
		},
	}
}

func newProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE",
		Short: "Describe the streams of a local media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.ffmpeg.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(info.Summary())
			if audio := info.AudioStream(); audio != nil {
				fmt.Printf("AAC audio: %s\n", yesNo(utils.IsAACFamily(audio.CodecName)))
			}
			return nil
		},
	}
}

func newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the external tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			tools := []struct{ name, path string }{
				{"yt-dlp", a.ytdlp.Path()},
				{"ffmpeg", a.ffmpeg.FFmpegPath()},
				{"ffprobe", ffmpeg.ProbeBinary},
			}

			var missing []string
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, tool := range tools {
				resolved, err := exec.LookPath(tool.path)
				if err != nil {
					missing = append(missing, tool.name)
					fmt.Fprintf(w, "%s:\tmissing (%s)\n", tool.name, tool.path)
					continue
				}
				fmt.Fprintf(w, "%s:\t%s\n", tool.name, resolved)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(missing) > 0 {
				return fmt.Errorf("missing tools: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
