package cli

import (
	"context"
	"fmt"

	"github.com/photosafe/photosafe/internal/flagx"
)

// valueFlags lists every value-taking flag the binary understands, so
// positional command arguments can be told apart from flag values.
var valueFlags = []string{"-a", "-t", "-d", "-w", "-c", "-config", "-collection", "-name", "-strategy"}

const usage = `Usage: photosafe [flags] <command>

Commands:
  upload <dir> [-collection NAME]            encrypt and upload a folder
  watch add <dir> [-name NAME] [-strategy single|folder]
  watch remove <dir>
  watch list
  watch run                                  follow watched folders until interrupted
  export <collection> <dir>                  download and decrypt a collection
  collections                                list known collections

Flags:
  -a URL     backend API endpoint
  -t FILE    session token file
  -d FILE    local database path
  -w N       upload workers
  -c FILE    JSON config file`

// Run dispatches one command invocation. args is os.Args[1:].
func (a *App) Run(ctx context.Context, args []string) error {
	pos := flagx.PositionalArgs(args, valueFlags)
	if len(pos) == 0 {
		fmt.Println(usage)
		return nil
	}

	cmd := pos[0]
	rest := pos[1:]

	switch cmd {
	case "help":
		fmt.Println(usage)
		return nil
	case "upload":
		return a.cmdUpload(ctx, args, rest)
	case "watch":
		return a.cmdWatch(ctx, args, rest)
	case "export":
		return a.cmdExport(ctx, rest)
	case "collections":
		return a.cmdCollections(ctx)
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}
