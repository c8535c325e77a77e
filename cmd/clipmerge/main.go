// Package main provides the clipmerge command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "clipmerge",
		Usage: "merge video clips into a single portrait or landscape video",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log at debug level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "merge",
				Usage:     "Merge clips in order into one video",
				ArgsUsage: "CLIP...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory", Value: "."},
					&cli.StringFlag{Name: "audio", Usage: "audio file replacing the clips' audio"},
					&cli.Float64Flag{Name: "fade", Usage: "audio fade in/out in seconds"},
					&cli.Float64Flag{Name: "audio-offset", Usage: "seconds of video before --audio starts"},
					&cli.IntFlag{Name: "width", Usage: "render width"},
					&cli.IntFlag{Name: "height", Usage: "render height"},
					&cli.StringFlag{Name: "fps", Usage: "frame rate, e.g. 30 or 30000/1001"},
					&cli.StringFlag{Name: "layout", Usage: "clip layout: reference or fit"},
				},
				Action: mergeAction,
			},
			{
				Name:      "probe",
				Usage:     "Print the metadata clipmerge loads for each clip",
				ArgsUsage: "CLIP...",
				Action:    probeAction,
			},
		},
	}
}
