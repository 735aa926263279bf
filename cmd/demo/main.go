package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/not-right-now/video-to-webp/internal/converter"
	"github.com/not-right-now/video-to-webp/pkg/logger"
)

// supportedExtensions lists the container formats the demo picks up from the
// input directory.
var supportedExtensions = []string{".webm", ".mp4", ".mov", ".gif", ".mkv"}

type pass struct {
	name string
	cfg  converter.Config
}

func main() {
	inDir := flag.String("in", "demo_inp", "Directory with sample videos")
	outDir := flag.String("out", "demo_out", "Directory for converted WebP files")
	sizeKB := flag.Int("size-kb", 500, "Byte budget (KiB) for the size-restricted pass")
	flag.Parse()

	log, err := logger.New("warn")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	inputs, err := findVideos(*inDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(inputs) == 0 {
		fmt.Fprintf(os.Stderr, "no video files (%s) found in %s\n",
			strings.Join(supportedExtensions, ", "), *inDir)
		os.Exit(1)
	}

	passes := []pass{
		{name: "basic", cfg: converter.DefaultConfig()},
		{name: "fixed_fps", cfg: converter.Config{
			Quality:        converter.DefaultQuality,
			FPS:            10,
			PreserveTiming: false,
			MaxFrames:      converter.DefaultMaxFrames,
		}},
		{name: "size_capped", cfg: converter.Config{
			Quality:         converter.DefaultQuality,
			PreserveTiming:  true,
			MaxFrames:       converter.DefaultMaxFrames,
			SizeTargetBytes: int64(*sizeKB) * 1024,
		}},
	}

	bar := progressbar.Default(int64(len(inputs) * len(passes)))

	type outcome struct {
		input   string
		pass    string
		result  *converter.Result
		err     error
		elapsed time.Duration
	}
	var outcomes []outcome

	ctx := context.Background()
	for _, input := range inputs {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		for _, p := range passes {
			output := filepath.Join(*outDir, fmt.Sprintf("%s_%s.webp", base, p.name))

			start := time.Now()
			// One failed file must not stop the batch.
			result, err := converter.ConvertFile(ctx, input, output, p.cfg, log)
			outcomes = append(outcomes, outcome{
				input:   input,
				pass:    p.name,
				result:  result,
				err:     err,
				elapsed: time.Since(start),
			})
			bar.Add(1)
		}
	}

	fmt.Println()
	failures := 0
	for _, o := range outcomes {
		if o.err != nil {
			failures++
			fmt.Printf("FAIL  %-12s %-24s %v\n", o.pass, filepath.Base(o.input), o.err)
			continue
		}
		fmt.Printf("ok    %-12s %-24s %3d frames  q=%-3d %8d bytes  %6.2fs playback  (%.2fs)\n",
			o.pass, filepath.Base(o.input),
			o.result.FramesUsed, o.result.AchievedQuality, o.result.BytesWritten,
			o.result.OutputDuration.Seconds(), o.elapsed.Seconds())
	}

	fmt.Printf("\n%d/%d conversions succeeded\n", len(outcomes)-failures, len(outcomes))
	if failures > 0 {
		os.Exit(1)
	}
}

func findVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var inputs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, s := range supportedExtensions {
			if ext == s {
				inputs = append(inputs, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	return inputs, nil
}
