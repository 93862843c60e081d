package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tya/samsungctl/internal/discovery"
	"github.com/tya/samsungctl/internal/tv"
	"github.com/tya/samsungctl/internal/ui"
)

// Command flags
var (
	rootDevice  bool
	scanTimeout time.Duration
	keyDelay    time.Duration
	renameTo    string
)

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(muteCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(actionsCmd)

	discoverCmd.Flags().BoolVar(&rootDevice, "root", false, "Search for any UPnP root device instead of Samsung services")
	scanCmd.Flags().DurationVar(&scanTimeout, "duration", discovery.DefaultScanTimeout, "How long to listen for mDNS advertisements")
	keyCmd.Flags().DurationVar(&keyDelay, "delay", 0, "Pause between keys")
	sourceCmd.Flags().StringVar(&renameTo, "rename", "", "Set the label of the given source instead of switching to it")
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find TVs with SSDP",
	Long: `Search every local interface for Samsung TVs over SSDP.

A TV is listed once it has answered for the remote control receiver, the
media renderer and the main TV server.`,
	Example: `  samsungctl discover
  samsungctl discover --discover-timeout 10s
  samsungctl discover --root --host 192.168.1.20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		engine := discovery.NewEngine(logger)
		engine.Target = cfg.Host
		if rootDevice {
			engine.Mode = discovery.ModeRootDevice
		}

		if ui.IsTerminal() {
			fmt.Printf("Searching for TVs (timeout: %s)...\n\n", discoverTimeout)
		}
		found, err := engine.DiscoverAll(ctx, discoverTimeout)
		if err != nil {
			return report("Discovery failed", err)
		}
		if len(found) == 0 {
			fmt.Println(ui.NewWarningResult("No TVs found",
				ui.Field{Key: "Hint", Value: "check the TV is on and try a longer --discover-timeout"}).Render())
			return nil
		}

		for i, loc := range found {
			fmt.Printf("%d. %s\n", i+1, loc.Address)
			types := make([]string, 0, len(loc.Services))
			for st := range loc.Services {
				types = append(types, st)
			}
			sort.Strings(types)
			for _, st := range types {
				fmt.Printf("   %s\n     %s\n", st, loc.Services[st])
			}
			fmt.Println()
		}
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find TVs with mDNS",
	Long: `Browse for the Smart View service (_samsungmsf._tcp) that 2016 and
later TVs advertise. Results are hints: use the address with --host.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		scanner := discovery.NewMDNSScanner(logger)
		scanner.Timeout = scanTimeout

		if ui.IsTerminal() {
			fmt.Printf("Scanning for TVs (timeout: %s)...\n\n", scanTimeout)
		}
		candidates, err := scanner.Scan(ctx)
		if err != nil {
			return report("Scan failed", err)
		}
		if len(candidates) == 0 {
			fmt.Println("No TVs found.")
			return nil
		}

		table := ui.NewTable("ADDRESS", "PORT", "NAME")
		for _, c := range candidates {
			table.AddRow(c.IP, strconv.Itoa(c.Port), c.Name)
		}
		fmt.Println(table.Render())
		return nil
	},
}

var keyCmd = &cobra.Command{
	Use:   "key KEY [KEY...]",
	Short: "Send remote control keys",
	Example: `  samsungctl key KEY_VOLUP
  samsungctl --host 192.168.1.20 key KEY_HOME KEY_RIGHT KEY_ENTER --delay 500ms`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		s, err := openRemote(ctx)
		if err != nil {
			return report("Connection failed", err)
		}
		defer s.Close()

		if ui.IsTerminal() {
			fmt.Println(ui.NewHeader("Remote", "samsungctl key "+strings.Join(args, " "),
				ui.Field{Key: "TV", Value: s.Host()},
				ui.Field{Key: "Method", Value: s.Method()},
			).Render())
		}

		for i, key := range args {
			if i > 0 && keyDelay > 0 {
				select {
				case <-time.After(keyDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if err := s.SendKey(ctx, normalizeKey(key)); err != nil {
				return report("Sending "+key+" failed", err)
			}
		}
		fmt.Println(ui.NewSuccessResult("Keys sent", ui.Field{Key: "Count", Value: strconv.Itoa(len(args))}).Render())
		return nil
	},
}

// normalizeKey accepts "volup" as well as "KEY_VOLUP".
func normalizeKey(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	if !strings.HasPrefix(key, "KEY_") {
		key = "KEY_" + key
	}
	return key
}

var volumeCmd = &cobra.Command{
	Use:   "volume [LEVEL]",
	Short: "Show or set the volume",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withControl("Volume", func(ctx context.Context, s *tv.Session) (*ui.Result, error) {
			if len(args) == 1 {
				level, err := strconv.Atoi(args[0])
				if err != nil {
					return nil, fmt.Errorf("invalid volume %q", args[0])
				}
				if err := s.SetVolume(ctx, level); err != nil {
					return nil, err
				}
			}
			level, err := s.Volume(ctx)
			if err != nil {
				return nil, err
			}
			return ui.NewSuccessResult("Volume", ui.Field{Key: "Level", Value: strconv.Itoa(level)}), nil
		})
	},
}

var muteCmd = &cobra.Command{
	Use:       "mute [on|off]",
	Short:     "Show or set the mute state",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withControl("Mute", func(ctx context.Context, s *tv.Session) (*ui.Result, error) {
			if len(args) == 1 {
				on, err := parseOnOff(args[0])
				if err != nil {
					return nil, err
				}
				if err := s.SetMute(ctx, on); err != nil {
					return nil, err
				}
			}
			muted, err := s.Mute(ctx)
			if err != nil {
				return nil, err
			}
			return ui.NewSuccessResult("Mute", ui.Field{Key: "Muted", Value: onOff(muted)}), nil
		})
	},
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

var sourceCmd = &cobra.Command{
	Use:   "source [ID|NAME]",
	Short: "List input sources or switch to one",
	Example: `  samsungctl source
  samsungctl source HDMI1
  samsungctl source 55
  samsungctl source HDMI1 --rename Console`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && renameTo != "" {
			return fmt.Errorf("--rename needs a source")
		}
		return withControl("Source", func(ctx context.Context, s *tv.Session) (*ui.Result, error) {
			switch {
			case len(args) == 1 && renameTo != "":
				if err := s.EditSourceName(ctx, args[0], renameTo); err != nil {
					return nil, err
				}
				return ui.NewSuccessResult("Source renamed", ui.Field{Key: args[0], Value: renameTo}), nil
			case len(args) == 1:
				if err := s.SetSource(ctx, args[0]); err != nil {
					return nil, err
				}
				cur, err := s.CurrentSource(ctx)
				if err != nil {
					return nil, err
				}
				return ui.NewSuccessResult("Source changed", ui.Field{Key: "Current", Value: cur.String()}), nil
			}

			sources, current, err := s.Sources(ctx)
			if err != nil {
				return nil, err
			}
			fmt.Println(sourceTable(sources, current).Render())
			return nil, nil
		})
	},
}

func sourceTable(sources []tv.Source, current int) *ui.Table {
	table := ui.NewTable("ID", "NAME", "LABEL", "CONNECTED", "DEVICE")
	for _, src := range sources {
		row := []string{strconv.Itoa(src.ID), src.Name, src.Label, yesNo(src.Connected), src.DeviceName}
		if src.ID == current {
			table.AddMarkedRow(row...)
		} else {
			table.AddRow(row...)
		}
	}
	return table
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show what the TV reports about itself",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withControl("Info", func(ctx context.Context, s *tv.Session) (*ui.Result, error) {
			r := ui.NewSuccessResult("TV information")
			r.AddDetail("Address", s.Host())
			r.AddDetail("Device ID", s.DeviceID())

			model := s.ModelName()
			if model != "" {
				r.AddDetail("Model", model)
				r.AddDetail("Panel", tv.PanelTechnology(model))
				if size, ok := tv.ScreenSize(model); ok {
					r.AddDetail("Screen size", strconv.Itoa(size)+`"`)
				}
			}

			if dtv, err := s.DTVInformation(ctx); err == nil {
				r.AddDetail("Year", strconv.Itoa(dtv.Year))
				r.AddDetail("Region", dtv.Region)
				r.AddDetail("Protocol", tv.SelectProtocol(cfg, dtv.Year))
				if model != "" {
					r.AddDetail("Panel type", tv.PanelType(model, dtv.Year))
				}
			} else {
				logger.Debug("no DTV information", zap.Error(err))
			}

			if info, err := s.DeviceInfo(ctx); err == nil {
				r.AddDetail("OS", info.OS)
				r.AddDetail("Firmware", info.FirmwareVersion)
				r.AddDetail("Token auth", yesNo(info.TokenAuthSupported()))
			}

			if ch, err := s.CurrentChannel(ctx); err == nil {
				r.AddDetail("Channel", ch.String())
			}
			return r, nil
		})
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions [SERVICE]",
	Short: "List the UPnP services and actions the TV exposes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withControl("Actions", func(ctx context.Context, s *tv.Session) (*ui.Result, error) {
			found := false
			for _, dev := range s.Devices().All() {
				for _, name := range dev.ServiceNames() {
					if len(args) == 1 && !strings.EqualFold(args[0], name) {
						continue
					}
					svc, _ := dev.Service(name)
					fmt.Println(svc.String())
					found = true
				}
			}
			if !found {
				if len(args) == 1 {
					return nil, fmt.Errorf("service %s: %w", args[0], tv.ErrNotSupported)
				}
				return nil, tv.ErrNotSupported
			}
			return nil, nil
		})
	},
}

// withControl opens a UPnP-only session, runs fn and prints its result.
// fn may return a nil result when it printed its own output.
func withControl(title string, fn func(context.Context, *tv.Session) (*ui.Result, error)) error {
	ctx, cancel := commandContext()
	defer cancel()

	s, err := openControl(ctx)
	if err != nil {
		return report(title+" failed", err)
	}
	defer s.Close()

	result, err := fn(ctx, s)
	if err != nil {
		return report(title+" failed", err)
	}
	if result != nil {
		fmt.Println(result.Render())
	}
	return nil
}
