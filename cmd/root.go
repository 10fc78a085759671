package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string

	rootCmd = &cobra.Command{
		Use:   "waybridge",
		Short: "Waybridge - remote desktop input bridge",
		Long: `Waybridge attaches to a media player showing a remote Wayland desktop
and bridges input between the two sides: pointer motion over the video is
forwarded to the remote session, clipboards are kept in sync, and the
remote fullscreen window's title is mirrored into the player.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(runCmd)
}
