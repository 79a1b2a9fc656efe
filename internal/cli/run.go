package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coolercontrol-go/coolercontrold/internal/config"
	"github.com/coolercontrol-go/coolercontrold/internal/daemon"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the cooling control daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLayeredLoader()
			cfg, err := loader.Load(configPath)
			if err != nil {
				return err
			}

			// Vendor device repositories (hwmon, liquidctl, CPU/GPU drivers)
			// are external collaborators; none are wired into this binary.
			repos := []device.Repository{}

			d, err := daemon.Build(cfg, repos)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
			defer cancel()

			return d.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the coolercontrold bootstrap config file")
	return cmd
}
