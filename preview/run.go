package preview

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scrolly/state"
)

// Run implements the preview subcommand: serve the narrative with live
// reload until interrupted.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return fmt.Errorf("no narrative source directory specified")
	}
	src := cmd.Args().Get(0)
	if fi, er := os.Stat(src); er != nil || !fi.IsDir() {
		return fmt.Errorf("narrative source %s is not a directory", src)
	}

	store, err := OpenStore(env.Cfg.Preview.SessionDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if er := store.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close session store: %w", er))
		}
	}()
	if store != nil {
		env.Log.Info("Recording viewer sessions", zap.String("db", env.Cfg.Preview.SessionDBPath))
	}

	srv, err := NewServer(src, env.Cfg, store, env.Log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
