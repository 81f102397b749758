package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/umdpack/cmd/umdpack/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build   commands.BuildCmd `cmd:"" default:"withargs" help:"Bundle the library as a UMD module"`
		Serve   commands.ServeCmd `cmd:"" help:"Rebuild on change and serve the output directory"`
		Debug   bool              `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("umdpack"),
		kong.Description("Bundle a TypeScript library into a UMD module."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
