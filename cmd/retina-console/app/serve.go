package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/owl-os/retina-console/pkg/api"
	"github.com/owl-os/retina-console/pkg/document"
	"github.com/owl-os/retina-console/pkg/logger"
	"github.com/owl-os/retina-console/pkg/mender"
	"github.com/owl-os/retina-console/pkg/pipeline"
	"github.com/owl-os/retina-console/pkg/schema"
	"github.com/owl-os/retina-console/pkg/settings"
	"github.com/owl-os/retina-console/pkg/sshkeys"
	"github.com/owl-os/retina-console/pkg/systemd"
)

var (
	host             string
	port             int
	documentPath     string
	authorizedKeys   string
	applyCommand     []string
	applyTimeout     time.Duration
	cloudUnit        string
	menderServer     string
	menderRelease    string
	menderDeviceType string
	installTimeout   time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console API server",
	Long:  `Starts the retina-console API server and listens for HTTP requests.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Ensure the server is shut down gracefully on SIGINT/SIGTERM.
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// A broken schema is a static configuration error; refuse to start.
		root := schema.Builtin()
		if err := schema.Validate(root); err != nil {
			return fmt.Errorf("settings schema is invalid: %w", err)
		}

		store, err := document.NewLocalStore(documentPath)
		if err != nil {
			return err
		}
		logger.Infof("settings document: %s", store.Path())

		keys, err := sshkeys.NewManager(authorizedKeys)
		if err != nil {
			return err
		}

		deps := api.Deps{
			Settings: settings.NewService(store, root, pipeline.NewExecApplier(applyCommand, applyTimeout)),
			SSHKeys:  keys,
			Cloud:    systemd.NewUnitToggle(cloudUnit),
			OTA: mender.NewClient(
				mender.WithServerURL(menderServer),
				mender.WithRelease(menderRelease),
				mender.WithDeviceType(menderDeviceType),
				mender.WithInstallTimeout(installTimeout),
			),
		}

		address := fmt.Sprintf("%s:%d", host, port)
		return api.Serve(ctx, address, deps)
	},
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "Host address to bind the server to")
	serveCmd.Flags().IntVar(&port, "port", 8080, "Port to bind the server to")
	serveCmd.Flags().StringVar(&documentPath, "document", "", "Path to user.yml (default: appliance location)")
	serveCmd.Flags().StringVar(&authorizedKeys, "authorized-keys", "", "Path to the managed authorized_keys file")
	serveCmd.Flags().StringSliceVar(&applyCommand, "apply-cmd", nil, "Command that runs the merge/restart pipeline")
	serveCmd.Flags().DurationVar(&applyTimeout, "apply-timeout", 2*time.Minute, "Bound on the apply pipeline")
	serveCmd.Flags().StringVar(&cloudUnit, "cloud-unit", systemd.DefaultCloudUnit, "Systemd unit providing cloud connectivity")
	serveCmd.Flags().StringVar(&menderServer, "mender-server", mender.DefaultServerURL, "Mender server URL")
	serveCmd.Flags().StringVar(&menderRelease, "mender-release", mender.DefaultRelease, "Mender release name")
	serveCmd.Flags().StringVar(&menderDeviceType, "mender-device-type", mender.DefaultDeviceType, "Mender device type")
	serveCmd.Flags().DurationVar(&installTimeout, "install-timeout", mender.DefaultInstallTimeout, "Bound on OTA installation")
}
