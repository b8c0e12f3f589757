package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cwbudde/clintro/internal/cl"
	"github.com/cwbudde/clintro/internal/config"
	"github.com/cwbudde/clintro/internal/session"
)

type runOptions struct {
	platform     int
	device       int
	deviceType   string
	a            float32
	b            float32
	buildOptions string
	format       string
}

func newRunCmd(root *rootOptions, opts *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the add_floats kernel once",
		Long: `Selects the first GPU of the first OpenCL platform, builds add_floats,
runs it on one work-item and prints the device name and the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, root, opts)
		},
	}

	cmd.Flags().IntVar(&opts.platform, "platform", 0, "Platform index")
	cmd.Flags().IntVar(&opts.device, "device", 0, "Device index among devices of the selected type")
	cmd.Flags().StringVar(&opts.deviceType, "device-type", config.DefaultDeviceType, "Device type: gpu, cpu, accelerator, default, all")
	cmd.Flags().Float32Var(&opts.a, "a", config.DefaultA, "First operand")
	cmd.Flags().Float32Var(&opts.b, "b", config.DefaultB, "Second operand")
	cmd.Flags().StringVar(&opts.buildOptions, "build-options", "", "Options passed to the OpenCL compiler")
	cmd.Flags().StringVar(&opts.format, "format", config.DefaultFormat, "Output format: text, json")

	return cmd
}

// resolveConfig layers explicitly set flags over the config file over the
// defaults.
func resolveConfig(flags *pflag.FlagSet, root *rootOptions, opts *runOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if root.configPath != "" {
		loaded, err := config.Load(root.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Changed("platform") {
		cfg.PlatformIndex = opts.platform
	}
	if flags.Changed("device") {
		cfg.DeviceIndex = opts.device
	}
	if flags.Changed("device-type") {
		cfg.DeviceType = opts.deviceType
	}
	if flags.Changed("a") {
		cfg.A = opts.a
	}
	if flags.Changed("b") {
		cfg.B = opts.b
	}
	if flags.Changed("build-options") {
		cfg.BuildOptions = opts.buildOptions
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runDemo(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	cfg, err := resolveConfig(cmd.Flags(), root, opts)
	if err != nil {
		return err
	}

	logger := slog.Default().With("run_id", uuid.NewString())
	logger.Info("Starting kernel run",
		"platform_index", cfg.PlatformIndex,
		"device_index", cfg.DeviceIndex,
		"device_type", cfg.Kind(),
		"a", cfg.A,
		"b", cfg.B,
	)

	api, err := openAPI()
	if err != nil {
		return err
	}

	s, err := session.Open(api, session.Options{
		PlatformIndex: cfg.PlatformIndex,
		DeviceIndex:   cfg.DeviceIndex,
		DeviceType:    cfg.Kind(),
		BuildOptions:  cfg.BuildOptions,
		A:             cfg.A,
		B:             cfg.B,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	res, runErr := s.Run()
	if err := s.Close(); err != nil {
		if runErr != nil {
			logger.Warn("Release failed", "err", err)
		} else {
			return fmt.Errorf("release OpenCL objects: %w", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("Kernel run complete", "device", s.Device.Name, "result", res.Sum)

	out := cmd.OutOrStdout()
	if cfg.Format == config.FormatJSON {
		return writeRunJSON(out, s.Platform, s.Device, res)
	}

	fmt.Fprintf(out, "Device name: %s\n", s.Device.Name)
	fmt.Fprintf(out, "Result is :%s\n", formatFloat(res.Sum))
	return nil
}

type runReport struct {
	Platform string  `json:"platform"`
	Device   string  `json:"device"`
	A        float32 `json:"a"`
	B        float32 `json:"b"`
	Result   float32 `json:"result"`
}

func writeRunJSON(w io.Writer, platform cl.PlatformInfo, device cl.DeviceInfo, res session.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runReport{
		Platform: platform.Name,
		Device:   device.Name,
		A:        res.A,
		B:        res.B,
		Result:   res.Sum,
	})
}

// formatFloat prints v the way a default-configured C++ ostream does:
// shortest of fixed or exponent notation with six significant digits.
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', 6, 32)
}
