package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cwbudde/clintro/internal/cl"
	"github.com/cwbudde/clintro/internal/config"
)

func newDevicesCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List OpenCL platforms and their devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if root.configPath != "" && !cmd.Flags().Changed("format") {
				cfg, err := config.Load(root.configPath)
				if err != nil {
					return err
				}
				format = cfg.Format
			}
			return listDevices(cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().StringVar(&format, "format", config.DefaultFormat, "Output format: text, json")
	return cmd
}

func listDevices(w io.Writer, format string) error {
	if format != config.FormatText && format != config.FormatJSON {
		return fmt.Errorf("unknown format %q", format)
	}

	api, err := openAPI()
	if err != nil {
		return err
	}

	platforms, err := cl.Enumerate(api)
	if err != nil {
		return fmt.Errorf("failed to enumerate OpenCL platforms: %w", err)
	}

	if format == config.FormatJSON {
		if platforms == nil {
			platforms = []cl.PlatformInfo{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(platforms)
	}

	if len(platforms) == 0 {
		fmt.Fprintln(w, "No OpenCL platforms found")
		return nil
	}

	var data [][]string
	for i, platform := range platforms {
		if len(platform.Devices) == 0 {
			data = append(data, []string{strconv.Itoa(i), platform.Name, "-", "", "", "", "", ""})
			continue
		}
		for j, device := range platform.Devices {
			data = append(data, []string{
				strconv.Itoa(i),
				platform.Name,
				strconv.Itoa(j),
				device.Name,
				string(device.Type),
				device.Vendor,
				device.Version,
				strconv.FormatUint(uint64(device.MaxComputeUnits), 10),
			})
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "PLATFORM", "#", "DEVICE", "TYPE", "VENDOR", "VERSION", "UNITS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()

	return nil
}
