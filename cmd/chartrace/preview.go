package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"chartrace/internal/live"
	"chartrace/internal/platform/metrics"
	"chartrace/internal/race"
	"chartrace/internal/recording"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newPreviewCmd(g *globalOptions) *cobra.Command {
	var (
		rf        raceFlags
		listen    string
		outputDir string
		ffmpeg    string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Play a chart race and control it over a websocket",
		Long: `preview serves the race on a local HTTP server:

  GET /ws          state updates; accepts play, pause, reset, scrub, record and cancel
  GET /frame.png   the current frame
  GET /metrics     Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := g.logger(cmd)
			met := metrics.New()

			p, err := g.marketData(met)
			if err != nil {
				return err
			}
			cfg, list, err := rf.load(ctx, cmd, p, log)
			if err != nil {
				return err
			}
			player, err := race.NewPlayer(cfg, list, nil)
			if err != nil {
				return err
			}

			record := func(ctx context.Context, progress func(frame, total int)) (string, error) {
				enc, err := recording.NewEncoder(cfg.Format, recording.EncoderOptions{FPS: cfg.FPS, FFmpegPath: ffmpeg})
				if err != nil {
					return "", err
				}
				res, err := race.Export(ctx, cfg, player.Race().Series(), enc, race.ExportOptions{
					Logger:   log,
					Observer: met,
					Progress: progress,
				})
				if err != nil {
					return "", err
				}
				path := filepath.Join(outputDir, fmt.Sprintf("chartrace-%s%s", time.Now().Format("20060102-150405"), res.Extension))
				if err := os.WriteFile(path, res.Data, 0o644); err != nil {
					return "", fmt.Errorf("write %s: %w", path, err)
				}
				return path, nil
			}

			s := live.NewServer(player, record, log, met)
			srv := &http.Server{Addr: listen, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			log.Info("preview listening", "addr", listen, "symbols", len(player.Race().Series()))

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				select {
				case err := <-errCh:
					log.Error("preview server error", "error", err)
					cancel()
				case <-runCtx.Done():
				}
			}()

			_ = s.Run(runCtx)

			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			log.Info("preview stopped")
			return nil
		},
	}
	rf.register(cmd.Flags())
	cmd.Flags().StringVar(&listen, "listen", ":8090", "address of the preview server")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "directory recordings are written to")
	cmd.Flags().StringVar(&ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary used for mp4 output")
	return cmd
}
