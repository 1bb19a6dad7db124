// Command adminctl issues authenticated requests against the admin backend
// and manages the stored session.
package main

import (
	"os"

	"github.com/alecthomas/kong"
)

func main() {
	var cli CLI
	kctx := kong.Parse(
		&cli,
		kong.Name("adminctl"),
		kong.Description("Authenticated admin backend client."),
		kong.UsageOnError(),
	)
	app := NewApp(&cli.Globals, os.Stdout, os.Stderr)
	err := kctx.Run(app)
	app.Close()
	kctx.FatalIfErrorf(err)
}
