package cli

import (
	"fmt"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"
)

// Version command.
type cmdVersion struct {
	root *cmdRoot
}

func (c *cmdVersion) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("version")
	cmd.Short = "Show the client and usbipd versions"
	cmd.Long = cli.FormatSection("Description", "Show the client and usbipd versions")

	cmd.RunE = c.run

	return cmd
}

func (c *cmdVersion) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(out, "Client version: %s\n", c.root.args.Version)

	v, err := c.root.client.Version(cmd.Context())
	if err != nil {
		_, _ = fmt.Fprintln(out, "usbipd version: not installed")

		return nil
	}

	legacy := ""
	if v.IsLegacy() {
		legacy = " (untested, please upgrade to 4.0.0 or newer)"
	}

	_, _ = fmt.Fprintf(out, "usbipd version: %s%s\n", v.String(), legacy)

	return nil
}
