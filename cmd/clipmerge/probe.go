package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/maauso/clipmerge-api/internal/bootstrap"
	"github.com/maauso/clipmerge-api/internal/composition"
)

func probeAction(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit(errNoClips, 2)
	}

	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	loader := bootstrap.NewLoader(cfg, logger)

	for _, path := range paths {
		clip, err := loader.Load(c.Context, path)
		if err != nil {
			return fmt.Errorf("probe %s: %w", path, err)
		}
		printClip(c.App.Writer, clip)
	}
	return nil
}

func printClip(w io.Writer, clip *composition.Clip) {
	fmt.Fprintf(w, "%s\n  duration: %s\n", clip.Source, clip.Duration)
	if clip.HasVideo() {
		v := clip.Video
		orientation, portrait := composition.Classify(v.PreferredTransform)
		shape := "landscape"
		if portrait {
			shape = "portrait"
		}
		fmt.Fprintf(w, "  video:    %gx%g %s (%s)\n", v.NaturalSize.Width, v.NaturalSize.Height, orientation, shape)
	} else {
		fmt.Fprintln(w, "  video:    none")
	}
	if clip.HasAudio() {
		fmt.Fprintf(w, "  audio:    %d Hz, %d channels\n", clip.Audio.SampleRate, clip.Audio.Channels)
	} else {
		fmt.Fprintln(w, "  audio:    none")
	}
}
