package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/mirage/internal/config"
	"git.home.luguber.info/inful/mirage/internal/deploy"
)

// DeployCmd compiles the site and uploads it to the configured service.
type DeployCmd struct {
	Root      string `short:"r" help:"Project root (overrides config root)"`
	NoCompile bool   `name:"no-compile" help:"Upload the existing output tree without compiling first"`
}

func (d *DeployCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if d.Root != "" {
		cfg.Root = d.Root
	}
	if err := config.ValidateDeploy(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunDeploy(ctx, cfg, !d.NoCompile)
}

// RunDeploy optionally compiles cfg's project and publishes the output tree.
func RunDeploy(ctx context.Context, cfg *config.Config, compile bool) error {
	output := cfg.Paths().Output
	if compile {
		res, err := RunCompile(ctx, cfg, "", "deploy")
		if err != nil {
			return err
		}
		output = res.OutputPath
	}

	sink, err := deploy.New(ctx, cfg)
	if err != nil {
		return err
	}
	res, err := deploy.Publish(ctx, output, sink, deploy.WithRetry(deploy.PolicyFor(cfg.Deploy)))
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %d files to %s (%s)\n", res.Uploaded, cfg.Deploy.ContainerName, res.Provider)
	return nil
}
