package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/not-right-now/video-to-webp/internal/converter"
	"github.com/not-right-now/video-to-webp/pkg/logger"
)

var command = &cli.Command{
	Name:      "vid2webp",
	Usage:     "Convert a video (WebM, MP4, GIF, MOV, MKV) to an animated WebP",
	ArgsUsage: "<input_file> <output_file>",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "width",
			Usage: "Output width in pixels (0 keeps the source width)",
		},
		&cli.IntFlag{
			Name:  "height",
			Usage: "Output height in pixels (0 keeps the source height)",
		},
		&cli.IntFlag{
			Name:  "quality",
			Usage: "WebP quality, 0-100",
			Value: converter.DefaultQuality,
		},
		&cli.FloatFlag{
			Name:  "fps",
			Usage: "Output frame rate; only used with --no-preserve-timing",
			Value: converter.DefaultFPS,
		},
		&cli.BoolFlag{
			Name:  "no-preserve-timing",
			Usage: "Use the fixed --fps instead of matching the source playback length",
		},
		&cli.IntFlag{
			Name:  "max-frames",
			Usage: "Output frame ceiling",
			Value: converter.DefaultMaxFrames,
		},
		&cli.BoolFlag{
			Name:  "no-frame-limit",
			Usage: "Keep every decoded frame (can use a lot of memory)",
		},
		&cli.IntFlag{
			Name:  "max-size-kb",
			Usage: "Search quality/frame count until the output fits this many KiB (0 disables)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "warn",
		},
	},
	Action: run,
}

func run(ctx context.Context, c *cli.Command) error {
	args := c.Args().Slice()
	if len(args) != 2 {
		cli.ShowAppHelpAndExit(c, 1)
	}
	input, output := args[0], args[1]

	log, err := logger.New(c.String("log-level"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer log.Sync()

	cfg := converter.Config{
		Width:           int(c.Int("width")),
		Height:          int(c.Int("height")),
		Quality:         int(c.Int("quality")),
		FPS:             c.Float("fps"),
		PreserveTiming:  !c.Bool("no-preserve-timing"),
		MaxFrames:       int(c.Int("max-frames")),
		SizeTargetBytes: int64(c.Int("max-size-kb")) * 1024,
	}
	if c.Bool("no-frame-limit") {
		cfg.MaxFrames = converter.NoFrameLimit
	}

	result, err := converter.ConvertFile(ctx, input, output, cfg, log)
	if err != nil {
		if result != nil && !result.Success {
			fmt.Fprintf(os.Stderr, "smallest achievable: %d frames at quality %d\n",
				result.FramesUsed, result.AchievedQuality)
		}
		return cli.Exit(fmt.Sprintf("conversion failed: %v", err), 1)
	}

	fmt.Printf("wrote %s: %d frames, quality %d, %d bytes, %.2fs playback\n",
		result.OutputPath, result.FramesUsed, result.AchievedQuality,
		result.BytesWritten, result.OutputDuration.Seconds())
	return nil
}

func main() {
	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
