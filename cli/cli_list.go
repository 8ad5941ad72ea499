package cli

import (
	"sort"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/nickbeth/wsl-usb-manager/api"
)

// List command.
type cmdList struct {
	root *cmdRoot

	flagFormat string
	flagAll    bool
}

func (c *cmdList) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("list")
	cmd.Aliases = []string{"ls"}
	cmd.Short = "List USB devices"
	cmd.Long = cli.FormatSection("Description", "List connected USB devices, and with --all the persisted ones")
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", c.root.args.DefaultListFormat, "Format (csv|json|table|yaml|compact|markdown), use suffix \",noheader\" to disable headers and \",header\" to enable it if missing, e.g. csv,header``")
	cmd.Flags().BoolVarP(&c.flagAll, "all", "a", false, "Include disconnected devices that are still shared")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return cli.ValidateFlagFormatForListOutput(cmd.Flag("format").Value.String())
	}

	cmd.RunE = c.run

	return cmd
}

func (c *cmdList) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	ctx := cmd.Context()

	_, err = c.root.checkTool(ctx)
	if err != nil {
		return err
	}

	devices, err := c.root.client.ListDevices(ctx)
	if err != nil {
		return err
	}

	entries := []api.Device{}
	data := [][]string{}

	for _, d := range devices {
		if !d.IsConnected() && !c.flagAll {
			continue
		}

		entry := toAPIDevice(d)
		entries = append(entries, entry)

		row := []string{entry.BusID, entry.VIDPID, entry.Description, d.State().String()}
		if c.flagAll {
			row = append(row, entry.GUID)
		}

		data = append(data, row)
	}

	data, entries = sortRows(data, entries)

	header := []string{
		"BUSID",
		"VID:PID",
		"DESCRIPTION",
		"STATE",
	}

	if c.flagAll {
		header = append(header, "GUID")
	}

	return cli.RenderTable(cmd.OutOrStdout(), c.flagFormat, header, data, entries)
}

// sortRows orders the table rows naturally and the raw entries to match, so
// every output format lists devices the same way.
func sortRows(data [][]string, entries []api.Device) ([][]string, []api.Device) {
	rows := cli.SortColumnsNaturally(data)

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a int, b int) bool {
		return rows.Less(order[a], order[b])
	})

	sortedData := make([][]string, 0, len(order))
	sortedEntries := make([]api.Device, 0, len(order))

	for _, i := range order {
		sortedData = append(sortedData, data[i])
		sortedEntries = append(sortedEntries, entries[i])
	}

	return sortedData, sortedEntries
}
