package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/resqlink/resqlink/app"
	"github.com/resqlink/resqlink/config"
	"github.com/resqlink/resqlink/core/coordinator"
	"github.com/resqlink/resqlink/core/model"
	"github.com/resqlink/resqlink/infra/logger"
)

var (
	triggerLat          float64
	triggerLon          float64
	triggerType         string
	triggerMessage      string
	triggerContactsOnly bool
	triggerPhone        string
	contactName         string
	contactPhone        string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Inject a test emergency alert",
	RunE:  triggerAlert,
}

func init() {
	triggerCmd.Flags().Float64Var(&triggerLat, "lat", 0, "requester latitude")
	triggerCmd.Flags().Float64Var(&triggerLon, "lon", 0, "requester longitude")
	triggerCmd.Flags().StringVar(&triggerType, "type", "EMERGENCY", "alert type (MEDICAL, EMERGENCY, ACCIDENT, OTHER)")
	triggerCmd.Flags().StringVar(&triggerMessage, "message", "", "optional alert message")
	triggerCmd.Flags().BoolVar(&triggerContactsOnly, "contacts-only", false, "skip the nearby-helper ping")
	triggerCmd.Flags().StringVar(&triggerPhone, "phone", "+10000000000", "requester phone")
	triggerCmd.Flags().StringVar(&contactName, "contact-name", "Test Contact", "emergency contact name")
	triggerCmd.Flags().StringVar(&contactPhone, "contact-phone", "+10000000001", "emergency contact phone")
	rootCmd.AddCommand(triggerCmd)
}

func triggerAlert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	logg := logger.New("trigger-command")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	svc.Locations.Set(model.Location{Latitude: triggerLat, Longitude: triggerLon})
	if _, err := svc.Contacts.Put(ctx, model.EmergencyContact{
		OwnerID:     "test-requester",
		Name:        contactName,
		Phone:       contactPhone,
		IsPrimary:   true,
		NotifyBySMS: true,
	}); err != nil {
		return fmt.Errorf("register contact: %w", err)
	}

	req := coordinator.Requester{ID: "test-requester", Name: "Test Requester", Phone: triggerPhone}
	proc, alert, err := svc.Manager.Trigger(ctx, req, coordinator.TriggerOptions{
		Type:         model.ParseAlertType(triggerType),
		Message:      triggerMessage,
		ContactsOnly: triggerContactsOnly,
	})
	if err != nil {
		return fmt.Errorf("trigger alert: %w", err)
	}
	logg.Infof("alert %s is %s", alert.ID, alert.Status)

	<-ctx.Done()
	if err := proc.Cancel(context.Background()); err != nil {
		logg.Warnf("cancel on shutdown: %v", err)
	}
	return nil
}
