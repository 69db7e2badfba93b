package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"

	get "github.com/hashicorp/go-getter"
	"github.com/urfave/cli/v2"

	"github.com/F1rsi/Minecraft-World-Analyzer/anvil"
)

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "report format: text, json or yaml",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write the report to `FILE` instead of stdout, compressed when it ends in .zst",
		},
	}
}

func main() {
	app := &cli.App{
		Name:  "world-analyzer",
		Usage: "inspects Minecraft worlds stored in the Anvil format",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log at debug level",
			},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			regionCommand(),
			worldCommand(),
			chunkCommand(),
			fetchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func regionCommand() *cli.Command {
	return &cli.Command{
		Name:      "region",
		Usage:     "sweep a single region file and summarize it",
		ArgsUsage: "FILE.mca",
		Flags:     reportFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("region wants one file, got %d arguments", c.NArg())
			}
			path := c.Args().Get(0)

			region, err := anvil.OpenRegion(path)
			if err != nil {
				return err
			}
			pos, err := parseRegionName(path)
			if err != nil {
				slog.Warn("grid position unknown, using (0,0)", "err", err)
			}
			_, summary := readRegion(pos, region)

			return writeOutput(c.String("output"), func(out io.Writer) error {
				return renderAs(c.String("format"), out, &summary, func(out io.Writer) error {
					if err := summary.writeText(out); err != nil {
						return err
					}
					return summary.writeGrid(out)
				})
			})
		},
	}
}

func worldCommand() *cli.Command {
	return &cli.Command{
		Name:      "world",
		Usage:     "aggregate every region file in a world directory",
		ArgsUsage: "DIR",
		Flags:     reportFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("world wants one directory, got %d arguments", c.NArg())
			}

			world, err := OpenWorld(c.Args().Get(0))
			if err != nil {
				return err
			}
			summary := world.Summarize()

			return writeOutput(c.String("output"), func(out io.Writer) error {
				return renderAs(c.String("format"), out, summary, summary.writeText)
			})
		},
	}
}

func chunkCommand() *cli.Command {
	return &cli.Command{
		Name:      "chunk",
		Usage:     "look up a single chunk, by region local or absolute coordinates",
		ArgsUsage: "FILE.mca X Z",
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return fmt.Errorf("chunk wants FILE X Z, got %d arguments", c.NArg())
			}
			x, err := strconv.Atoi(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("chunk x: %w", err)
			}
			z, err := strconv.Atoi(c.Args().Get(2))
			if err != nil {
				return fmt.Errorf("chunk z: %w", err)
			}

			region, err := anvil.OpenRegion(c.Args().Get(0))
			if err != nil {
				return err
			}

			chunk, ok, err := region.Chunk(x, z)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("chunk (%d,%d): not generated\n", x, z)
				return nil
			}

			sectorOffset, sectorCount := region.ChunkLocation(x, z)
			fmt.Printf("chunk (%d,%d) in %s\n", x, z, region.Name)
			fmt.Printf("  stored: sector %d, %d sectors\n", sectorOffset, sectorCount)
			fmt.Printf("  written: %s\n", formatWrite(region.Timestamp(x, z)))
			fmt.Printf("  data version: %d\n", chunk.DataVersion)
			cx, cz := chunk.Coords()
			fmt.Printf("  recorded coordinates: (%d,%d)\n", cx, cz)
			if status := chunk.GenerationStatus(); status != "" {
				fmt.Printf("  status: %s\n", status)
			}
			fmt.Printf("  sections: %d, %d populated\n", chunk.SectionCount(), len(chunk.PopulatedSections()))
			if n := len(chunk.Level.Entities); n > 0 {
				fmt.Printf("  entities: %d\n", n)
			}
			if n := len(chunk.Level.TileEntities) + len(chunk.BlockEntities); n > 0 {
				fmt.Printf("  block entities: %d\n", n)
			}
			return nil
		},
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "download a world directory before analyzing it",
		ArgsUsage: "SRC [DIR]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("fetch wants a source URL")
			}
			src := c.Args().Get(0)
			dst := c.Args().Get(1)
			if dst == "" {
				dst = "world"
			}

			slog.Info("fetching world", "src", src, "dst", dst)
			if err := get.Get(dst, src); err != nil {
				return err
			}
			slog.Info("world fetched", "dst", dst)
			return nil
		},
	}
}
