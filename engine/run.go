package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"scrolly/bundle"
	"scrolly/config"
	"scrolly/state"
	"scrolly/story"
)

// RunRender implements the render subcommand: walk the timeline and write
// one file per frame.
func RunRender(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	src, dst, err := renderArgs(cmd)
	if err != nil {
		return err
	}

	format, err := config.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		return fmt.Errorf("unsupported output format: %w", err)
	}
	env.Format = format
	env.Overwrite = cmd.Bool("overwrite")
	if n := cmd.Int("frames"); n > 0 {
		env.FramesPerStep = int(n)
	}

	session, err := New(ctx, src, env.Cfg, env.Log)
	if err != nil {
		return err
	}
	return session.Walk(ctx, WalkOptions{
		OutDir:        dst,
		Format:        env.Format,
		FramesPerStep: env.FramesPerStep,
		Overwrite:     env.Overwrite,
		ViewportW:     cmd.Float("width"),
		ViewportH:     cmd.Float("height"),
	})
}

// RunExport implements the export subcommand: render the whole timeline and
// pack the frames into a single bundle.
func RunExport(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	src, dst, err := renderArgs(cmd)
	if err != nil {
		return err
	}
	if filepath.Ext(dst) == "" {
		dst = dst + ".zip"
	}

	format, err := config.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		return fmt.Errorf("unsupported output format: %w", err)
	}
	env.Format = format
	env.Overwrite = cmd.Bool("overwrite")
	if n := cmd.Int("frames"); n > 0 {
		env.FramesPerStep = int(n)
	}

	session, err := New(ctx, src, env.Cfg, env.Log)
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", "scrolly-export-")
	if err != nil {
		return fmt.Errorf("unable to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := session.Walk(ctx, WalkOptions{
		OutDir:        tmp,
		Format:        env.Format,
		FramesPerStep: env.FramesPerStep,
		Overwrite:     true,
	}); err != nil {
		return err
	}

	return bundle.Write(dst, tmp, bundle.Options{
		Narrative: narrativeName(src),
		Steps:     len(session.Steps()),
		Format:    env.Format.String(),
		Overwrite: env.Overwrite,
	}, env.Log)
}

func renderArgs(cmd *cli.Command) (src, dst string, err error) {
	if cmd.Args().Len() == 0 {
		return "", "", fmt.Errorf("no narrative source directory specified")
	}
	if cmd.Args().Len() > 2 {
		return "", "", fmt.Errorf("too many arguments: %s", strings.Join(cmd.Args().Slice()[2:], " "))
	}
	src = cmd.Args().Get(0)
	if fi, err := os.Stat(src); err != nil || !fi.IsDir() {
		return "", "", fmt.Errorf("narrative source %s is not a directory", src)
	}
	dst = cmd.Args().Get(1)
	if dst == "" {
		if dst, err = os.Getwd(); err != nil {
			return "", "", err
		}
	}
	return src, dst, nil
}

func narrativeName(src string) string {
	abs, err := filepath.Abs(src)
	if err != nil {
		return filepath.Base(src)
	}
	return filepath.Base(abs)
}

// DumpTimeline implements the dumptimeline debug helper: load the narrative
// and print the built steps without rendering anything.
func DumpTimeline(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	src, _, err := renderArgs(cmd)
	if err != nil {
		return err
	}
	session, err := New(ctx, src, env.Cfg, env.Log)
	if err != nil {
		return err
	}

	dump := story.DumpTimeline(session.Steps())
	env.Rpt.StoreData("timeline.txt", dump)
	env.Log.Info("Timeline built", zap.Int("steps", len(session.Steps())))

	_, err = os.Stdout.Write(dump)
	return err
}
