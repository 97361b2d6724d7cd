package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/licensestore/internal/cache"
	"github.com/frahmantamala/licensestore/internal/realtime"
	"github.com/frahmantamala/licensestore/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Realtime event commands",
	Long:  `Push frames to connected websocket clients through the redis backplane`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [frame-type]",
	Short: "Publish a frame to a hub group",
	Long:  `Broadcast a frame to every server instance; clients in the target group receive it`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishFrame(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	},
}

var (
	eventData    string
	eventUserID  int64
	eventSession int64
	eventQueue   bool
)

func publishFrame(frameType string) error {
	cfg, err := loadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	if !cfg.Redis.Enabled {
		return fmt.Errorf("redis is disabled; frames can only reach other processes through the backplane")
	}
	client, err := cache.NewClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer client.Close()

	var data interface{}
	if err := json.Unmarshal([]byte(eventData), &data); err != nil {
		data = map[string]string{"message": eventData}
	}

	hubs := realtime.NewHubs(client, lg)
	hub, group := hubs.Notifications, realtime.UserGroup(eventUserID)
	switch {
	case eventQueue:
		hub, group = hubs.Queue, realtime.QueueGroup
	case eventSession > 0:
		hub, group = hubs.Chat, realtime.SessionGroup(eventSession)
	case eventUserID <= 0:
		return fmt.Errorf("one of --user, --session or --queue is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lg.Info("publishing frame", "hub", hub.Name(), "group", group, "type", frameType)
	if err := hub.Broadcast(ctx, group, realtime.NewFrame(frameType, data)); err != nil {
		return fmt.Errorf("failed to publish frame: %w", err)
	}
	lg.Info("frame published")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "{}", "Frame data, JSON or plain text")
	publishEventCmd.Flags().Int64Var(&eventUserID, "user", 0, "Target user id on the notifications hub")
	publishEventCmd.Flags().Int64Var(&eventSession, "session", 0, "Target chat session id on the chat hub")
	publishEventCmd.Flags().BoolVar(&eventQueue, "queue", false, "Target the staff queue hub")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
