package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/nickbeth/wsl-usb-manager/internal/config"
	"github.com/nickbeth/wsl-usb-manager/internal/logging"
	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

// Root command.
type cmdRoot struct {
	args *Args

	flagConfig string
	flagDebug  bool

	cfg    *config.Config
	client *usbipd.Client
}

func (c *cmdRoot) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "wsl-usb-manager"
	cmd.Short = "Manage USB devices shared with WSL"
	cmd.Long = cli.FormatSection("Description",
		"Manage USB devices shared with WSL\n\nThis tool drives usbipd-win to bind, attach and keep USB devices attached to WSL.")
	cmd.SilenceUsage = true
	cmd.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}

	cmd.PersistentFlags().StringVarP(&c.flagConfig, "config", "c", "", "Path to the settings file``")
	cmd.PersistentFlags().BoolVarP(&c.flagDebug, "debug", "d", false, "Show all debug messages")

	cmd.PersistentPreRunE = c.setup

	// Attach.
	attachCmd := cmdDeviceOperation{
		root:        c,
		name:        "attach",
		description: "Attach a device to WSL, sharing it first if needed",
		skip:        usbipd.Attached,
		wait:        usbipd.Attached,
		action:      c.attach,
	}
	cmd.AddCommand(attachCmd.command())

	// Auto-attach.
	autoAttachCmd := cmdAutoAttach{root: c}
	cmd.AddCommand(autoAttachCmd.command())

	// Bind.
	bindCmd := cmdBind{root: c}
	cmd.AddCommand(bindCmd.command())

	// Detach.
	detachCmd := cmdDeviceOperation{
		root:        c,
		name:        "detach",
		description: "Detach a device from WSL",
		skip:        usbipd.Detached,
		wait:        usbipd.Detached,
		action:      c.detach,
	}
	cmd.AddCommand(detachCmd.command())

	// List.
	listCmd := cmdList{root: c}
	cmd.AddCommand(listCmd.command())

	// Unbind.
	unbindCmd := cmdDeviceOperation{
		root:        c,
		name:        "unbind",
		description: "Stop sharing a device, by bus ID or persisted GUID",
		byGUID:      true,
		skip:        notShared,
		wait:        usbipd.Unbound,
		action:      c.unbind,
	}
	cmd.AddCommand(unbindCmd.command())

	// Watch.
	watchCmd := cmdWatch{root: c}
	cmd.AddCommand(watchCmd.command())

	// Version.
	versionCmd := cmdVersion{root: c}
	cmd.AddCommand(versionCmd.command())

	// Help handling.
	cmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	// Workaround for subcommand usage errors. See: https://github.com/spf13/cobra/issues/706.
	cmd.Args = cobra.NoArgs
	cmd.Run = func(cmd *cobra.Command, _ []string) { _ = cmd.Usage() }

	return cmd
}

// setup loads the settings and prepares logging and the usbipd client.
func (c *cmdRoot) setup(_ *cobra.Command, _ []string) error {
	path := c.flagConfig
	if path == "" {
		var err error

		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}

	if c.flagDebug {
		level = slog.LevelDebug
	}

	out := c.args.LogOutput
	if out == nil {
		out = os.Stderr
	}

	logging.Setup(out, level)

	c.cfg = cfg

	if c.args.Executor != nil {
		c.client = usbipd.NewClient(c.args.Executor)
		c.client.WaitTimeout = cfg.WaitTimeout
		c.client.PollInterval = cfg.PollInterval
	} else {
		c.client = cfg.NewClient()
	}

	return nil
}

// checkTool makes sure usbipd can be run and warns about untested versions.
func (c *cmdRoot) checkTool(ctx context.Context) (usbipd.Version, error) {
	v, err := c.client.Version(ctx)
	if err != nil {
		return usbipd.Version{}, fmt.Errorf("usbipd couldn't be run, is usbipd-win installed? %w", err)
	}

	if v.IsLegacy() {
		slog.WarnContext(ctx, "Untested usbipd version, please upgrade to 4.0.0 or newer", "version", v.String())
	}

	return v, nil
}

func (c *cmdRoot) attach(ctx context.Context, d usbipd.Device) error {
	return c.client.Attach(ctx, d)
}

func (c *cmdRoot) detach(ctx context.Context, d usbipd.Device) error {
	return c.client.Detach(ctx, d)
}

func (c *cmdRoot) unbind(ctx context.Context, d usbipd.Device) error {
	return c.client.Unbind(ctx, d)
}
