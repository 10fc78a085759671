package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/waybridge/internal/bridge"
	"github.com/bnema/waybridge/internal/config"
	"github.com/bnema/waybridge/internal/host"
	"github.com/bnema/waybridge/internal/logger"
	"github.com/bnema/waybridge/internal/remote"
	"github.com/bnema/waybridge/internal/wm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	hostSocket    string
	remoteDisplay string
	remoteOutput  string
	remoteSeat    string
	wmSocket      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Attach to the player and bridge input to the remote session",
	Long: `Connect to the media player's JSON IPC socket and to the remote Wayland
session, then forward pointer motion, synchronize clipboards, and mirror
the remote fullscreen window's title until the player quits.`,
	RunE: runBridge,
}

func init() {
	runCmd.Flags().StringVar(&hostSocket, "host-socket", "", "Player JSON IPC socket path")
	runCmd.Flags().StringVar(&remoteDisplay, "display", "", "Remote WAYLAND_DISPLAY name")
	runCmd.Flags().StringVar(&remoteOutput, "output", "", "Remote output name to forward onto")
	runCmd.Flags().StringVar(&remoteSeat, "seat", "", "Remote seat name to bind devices to")
	runCmd.Flags().StringVar(&wmSocket, "wm-socket", "", "Remote window manager IPC socket (optional)")

	// Bind flags to viper
	viper.BindPFlag("host.socket", runCmd.Flags().Lookup("host-socket"))
	viper.BindPFlag("remote.display", runCmd.Flags().Lookup("display"))
	viper.BindPFlag("remote.output", runCmd.Flags().Lookup("output"))
	viper.BindPFlag("remote.seat", runCmd.Flags().Lookup("seat"))
	viper.BindPFlag("remote.wm_socket", runCmd.Flags().Lookup("wm-socket"))
}

func runBridge(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg := config.Get()
	if cfg.Logging.LogLevel != "" {
		logger.SetLevel(cfg.Logging.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	bus, err := host.Dial(cfg.Host.Socket)
	if err != nil {
		return fmt.Errorf("failed to attach to the player: %w", err)
	}
	defer bus.Close()
	logger.Infof("attached to player at %s", cfg.Host.Socket)

	session, err := remote.Dial(cfg.Remote.Display)
	if err != nil {
		return fmt.Errorf("failed to connect to the remote session: %w", err)
	}
	defer session.Close()
	logger.Infof("connected to remote display %s", cfg.Remote.Display)

	var wmClient bridge.WindowManager
	if cfg.Remote.WMSocket != "" {
		if client := connectWindowManager(cfg.Remote.WMSocket); client != nil {
			defer client.Close()
			wmClient = client
		}
	}

	b := bridge.New(bus, session, wmClient, cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("received %s, shutting down", sig)
		b.Stop()
	}()

	return b.Run()
}

// connectWindowManager attaches to the window manager socket. The
// window manager is an optional collaborator: any failure here, dialing
// or subscribing, degrades to nil and the bridge runs without cursor
// warp relay.
func connectWindowManager(socketPath string) *wm.Client {
	client, err := wm.Dial(socketPath)
	if err != nil {
		logger.Warnf("window manager unavailable, cursor warp relay disabled: %v", err)
		return nil
	}
	if err := client.Subscribe("output", "shutdown"); err != nil {
		logger.Warnf("window manager refused our subscription, cursor warp relay disabled: %v", err)
		client.Close()
		return nil
	}
	// cursor_warp is a compositor extension; plain compositors reject
	// it and the relay just stays one-directional.
	if err := client.Subscribe("cursor_warp"); err != nil {
		logger.Warnf("cursor warp events unavailable: %v", err)
	}
	return client
}
