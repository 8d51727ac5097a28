// Command smartglass is a small console remote-control client: discover
// consoles on the local network, wake them, and drive a connected
// session (launch titles, media transport, TV remote keys).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/openxbox/smartglass/pkg/console"
	"github.com/openxbox/smartglass/pkg/discovery"
	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/stump"
	"github.com/openxbox/smartglass/pkg/transport"
)

var (
	configPath string
	config     *Config
	loggerFac  *logging.DefaultLoggerFactory
)

func main() {
	root := &cobra.Command{
		Use:           "smartglass",
		Short:         "Xbox One SmartGlass remote control client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			config, err = LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			loggerFac = logging.NewDefaultLoggerFactory()
			loggerFac.DefaultLogLevel = logLevel(config.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", DefaultConfigPath(),
		"path to the configuration file")

	root.AddCommand(discoverCmd(), powerOnCmd(), powerOffCmd(), launchCmd(), mediaCmd(), tvCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func logLevel(name string) logging.LogLevel {
	switch name {
	case "trace":
		return logging.LogLevelTrace
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func unicastAddr() net.Addr {
	if config.Address == "" {
		return nil
	}
	if ip := net.ParseIP(config.Address); ip != nil {
		return &net.UDPAddr{IP: ip, Port: transport.Port}
	}
	return nil
}

func discoverCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover consoles on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			service, err := discovery.NewService(discovery.Config{LoggerFactory: loggerFac})
			if err != nil {
				return err
			}
			defer service.Close()

			consoles, err := service.Discover(ctx, discovery.DiscoverOptions{
				Address: unicastAddr(),
				Timeout: timeout,
			})
			if err != nil {
				return err
			}

			if len(consoles) == 0 {
				fmt.Println("no consoles found")
				return nil
			}
			for _, c := range consoles {
				anon := "no"
				if c.AllowsAnonymous() {
					anon = "yes"
				}
				fmt.Printf("%-20s %-16s %s (anonymous: %s)\n",
					c.Name, c.Address.IP, c.LiveID, anon)
			}
			return discovery.SaveConsoleList(config.consolesFile(), consoles)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultDiscoverTimeout,
		"how long to wait for responses")
	return cmd
}

func powerOnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poweron [liveid]",
		Short: "Wake a console from standby",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			liveID := config.LiveID
			if len(args) == 1 {
				liveID = args[0]
			}
			if liveID == "" {
				return fmt.Errorf("no live id given (argument or config)")
			}

			service, err := discovery.NewService(discovery.Config{LoggerFactory: loggerFac})
			if err != nil {
				return err
			}
			defer service.Close()

			if err := service.PowerOn(ctx, liveID, discovery.PowerOnOptions{
				Address: unicastAddr(),
				Tries:   5,
			}); err != nil {
				return err
			}
			fmt.Println("power-on request sent; the console should appear in discovery shortly")
			return nil
		},
	}
}

// withConsole discovers the target console, connects a session and runs
// fn against it.
func withConsole(ctx context.Context, fn func(context.Context, *console.Console) error) error {
	service, err := discovery.NewService(discovery.Config{LoggerFactory: loggerFac})
	if err != nil {
		return err
	}
	consoles, err := service.Discover(ctx, discovery.DiscoverOptions{
		Address: unicastAddr(),
		Timeout: 3 * time.Second,
	})
	service.Close()
	if err != nil {
		return err
	}
	if len(consoles) == 0 {
		return fmt.Errorf("no console found")
	}

	target := consoles[0]
	c, err := console.New(target, console.Config{LoggerFactory: loggerFac})
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.Connect(ctx, config.Userhash, config.Token); err != nil {
		return fmt.Errorf("connecting to %s: %w", target.Name, err)
	}
	defer c.Disconnect()

	return fn(ctx, c)
}

func powerOffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poweroff",
		Short: "Shut the console down",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withConsole(ctx, func(ctx context.Context, c *console.Console) error {
				return c.PowerOff(ctx)
			})
		},
	}
}

func launchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch <uri>",
		Short: "Launch a title by URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withConsole(ctx, func(ctx context.Context, c *console.Console) error {
				_, err := c.LaunchTitle(ctx, args[0], packet.ActiveTitleLocationFull)
				return err
			})
		},
	}
}

func mediaCmd() *cobra.Command {
	commands := map[string]packet.MediaControlCommand{
		"play":        packet.MediaControlPlay,
		"pause":       packet.MediaControlPause,
		"playpause":   packet.MediaControlPlayPauseToggle,
		"stop":        packet.MediaControlStop,
		"next":        packet.MediaControlNextTrack,
		"prev":        packet.MediaControlPreviousTrack,
		"rewind":      packet.MediaControlRewind,
		"forward":     packet.MediaControlFastForward,
		"channelup":   packet.MediaControlChannelUp,
		"channeldown": packet.MediaControlChannelDown,
	}

	return &cobra.Command{
		Use:   "media <command>",
		Short: "Send a media transport command (play, pause, stop, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, ok := commands[args[0]]
			if !ok {
				return fmt.Errorf("unknown media command %q", args[0])
			}
			ctx, cancel := signalContext()
			defer cancel()
			return withConsole(ctx, func(ctx context.Context, c *console.Console) error {
				// Give the console a moment to push the media state.
				time.Sleep(time.Second)
				return c.Media.Command(ctx, c.Media.TitleID(), command, 0)
			})
		},
	}
}

func tvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tv <button>",
		Short: "Send a TV remote key via the IR blaster (e.g. btn.vol_up)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withConsole(ctx, func(ctx context.Context, c *console.Console) error {
				// The SystemInputTVRemote channel opens asynchronously
				// after connect.
				time.Sleep(time.Second)
				_, err := c.Stump.SendKey(ctx, stump.SendKeyParams{ButtonID: args[0]})
				return err
			})
		},
	}
}
