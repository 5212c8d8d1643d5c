// Package main implements galleryctl, the operator CLI for event face galleries.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/checkin-kiosk-go/internal/biometric"
	"github.com/openclaw/checkin-kiosk-go/internal/database"
	"github.com/openclaw/checkin-kiosk-go/internal/repository"
	"github.com/openclaw/checkin-kiosk-go/internal/service"
	"github.com/openclaw/checkin-kiosk-go/internal/util"
)

var (
	biometricURL string
	biometricKey string
	databaseURL  string
	timeout      time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "galleryctl",
	Short: "Manage biometric galleries for check-in events",
	Long: `galleryctl talks to the biometric gateway on behalf of event staff.
Each event has one gallery named after the event id; guests are enrolled
under their guest id.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&biometricURL, "biometric-url", os.Getenv("BIOMETRIC_BASE_URL"), "biometric gateway base URL")
	rootCmd.PersistentFlags().StringVar(&biometricKey, "biometric-key", os.Getenv("BIOMETRIC_API_KEY"), "biometric gateway API key")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-call timeout")

	removeFaceCmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres URL holding guests")

	rootCmd.AddCommand(ensureCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(removeFaceCmd)
	rootCmd.AddCommand(healthCmd)
}

var ensureCmd = &cobra.Command{
	Use:   "ensure <eventID>",
	Short: "Create the event gallery if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnsure,
}

var dropCmd = &cobra.Command{
	Use:   "drop <eventID>",
	Short: "Delete the event gallery and every enrolled face",
	Args:  cobra.ExactArgs(1),
	RunE:  runDrop,
}

var removeFaceCmd = &cobra.Command{
	Use:   "remove-face <guestID>",
	Short: "Remove a guest's face from their event gallery",
	Long: `Remove a guest's enrolled face and clear the stored template.

Examples:
  galleryctl remove-face 3f1c2e4a-8f0e-4b7a-9a53-2c1d5e6f7a8b --database-url=postgres://localhost/kiosk`,
	Args: cobra.ExactArgs(1),
	RunE: runRemoveFace,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the biometric gateway",
	RunE:  runHealth,
}

func gateway() (*biometric.Client, error) {
	if biometricURL == "" {
		return nil, fmt.Errorf("--biometric-url or BIOMETRIC_BASE_URL is required")
	}
	return biometric.NewClient(biometricURL, biometricKey, timeout), nil
}

func eventArg(args []string) (string, error) {
	if !util.IsValidUUID(args[0]) {
		return "", fmt.Errorf("event id %q is not a UUID", args[0])
	}
	return util.NormalizeUUID(args[0]), nil
}

func runEnsure(cmd *cobra.Command, args []string) error {
	eventID, err := eventArg(args)
	if err != nil {
		return err
	}
	client, err := gateway()
	if err != nil {
		return err
	}

	svc := service.NewEnrollmentService(client, nil, nil, nil)
	if err := svc.EnsureGallery(cmd.Context(), eventID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "gallery %s ready\n", eventID)
	return nil
}

func runDrop(cmd *cobra.Command, args []string) error {
	eventID, err := eventArg(args)
	if err != nil {
		return err
	}
	client, err := gateway()
	if err != nil {
		return err
	}

	svc := service.NewEnrollmentService(client, nil, nil, nil)
	if err := svc.DropGallery(cmd.Context(), eventID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "gallery %s dropped\n", eventID)
	return nil
}

func runRemoveFace(cmd *cobra.Command, args []string) error {
	guestID := args[0]
	if !util.IsValidUUID(guestID) {
		return fmt.Errorf("guest id %q is not a UUID", guestID)
	}
	if databaseURL == "" {
		return fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	client, err := gateway()
	if err != nil {
		return err
	}

	db, err := database.Connect(cmd.Context(), databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	svc := service.NewEnrollmentService(
		client, db,
		repository.NewGuestRepository(db.DB),
		repository.NewActivityLogRepository(db.DB),
	)
	if err := svc.RemoveFace(cmd.Context(), guestID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "face removed for guest %s\n", guestID)
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	client, err := gateway()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("biometric gateway unhealthy: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "biometric gateway ok")
	return nil
}
