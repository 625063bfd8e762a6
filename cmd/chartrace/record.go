package main

import (
	"fmt"
	"os"
	"path/filepath"

	"chartrace/internal/race"
	"chartrace/internal/recording"

	"github.com/spf13/cobra"
)

func newRecordCmd(g *globalOptions) *cobra.Command {
	var (
		rf     raceFlags
		output string
		ffmpeg string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Export a chart race to a video file",
		Example: `  chartrace record --symbols AAPL,MSFT,NVDA --start 2023-01-01 --end 2024-01-01 -o race.mp4
  chartrace record --preset bigtech.yaml --format gif -o bigtech`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := g.logger(cmd)
			p, err := g.marketData(nil)
			if err != nil {
				return err
			}
			cfg, list, err := rf.load(cmd.Context(), cmd, p, log)
			if err != nil {
				return err
			}
			enc, err := recording.NewEncoder(cfg.Format, recording.EncoderOptions{FPS: cfg.FPS, FFmpegPath: ffmpeg})
			if err != nil {
				return err
			}

			out := cmd.ErrOrStderr()
			res, err := race.Export(cmd.Context(), cfg, list, enc, race.ExportOptions{
				Logger: log,
				Progress: func(frame, total int) {
					if frame == total || frame%cfg.FPS == 0 {
						fmt.Fprintf(out, "\rrecording %d/%d frames", frame, total)
					}
				},
			})
			fmt.Fprintln(out)
			if err != nil {
				return err
			}

			path := output
			if filepath.Ext(path) == "" {
				path += res.Extension
			}
			if err := os.WriteFile(path, res.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			log.Info("recording saved", "file", path, "frames", res.Frames, "bytes", len(res.Data))
			return nil
		},
	}
	rf.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "chartrace", "output file; the format's extension is added when missing")
	cmd.Flags().StringVar(&ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary used for mp4 output")
	return cmd
}
