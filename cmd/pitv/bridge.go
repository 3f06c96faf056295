package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/adapters/mqtt"
	"github.com/mikey-austin/pitv/internal/core"
	"github.com/mikey-austin/pitv/internal/supervisor"
)

func bridgeCommand() *cobra.Command {
	var (
		broker    string
		topicBase string
	)

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Mirror player state to MQTT and accept commands from it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			cfg := app.cfg.MQTT
			if broker != "" {
				cfg.Broker = broker
			}
			if topicBase != "" {
				cfg.TopicBase = topicBase
			}
			if cfg.Broker == "" {
				return core.WrapError(core.ExitUsage, "mqtt broker is required (set --broker, PITV_MQTT_BROKER or config)", nil)
			}
			clientID := cfg.ClientID
			if clientID == "" {
				clientID = fmt.Sprintf("pitv-%s", uuid.NewString())
			}

			log := app.log.With(zap.String("component", "bridge"))
			mqttClient, err := mqtt.NewClient(mqtt.Options{
				BrokerURL:   cfg.Broker,
				ClientID:    clientID,
				Username:    cfg.User,
				Password:    cfg.Pass,
				TLSCA:       cfg.TLS.CA,
				TLSCert:     cfg.TLS.Cert,
				TLSKey:      cfg.TLS.Key,
				Timeout:     app.timeout,
				WillTopic:   mqtt.TopicConnection(cfg.TopicBase),
				WillPayload: mqtt.OfflinePayload(),
				Logger:      log,
			})
			if err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			defer mqttClient.Close(250)

			s, err := app.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			bridge := mqtt.NewBridge(log, mqttClient, cfg.TopicBase, s.client)
			err = supervisor.Supervisor{Logger: app.log}.Run(cmd.Context(), []supervisor.Runner{
				{Name: "transport", Run: s.wait},
				{Name: "bridge", Run: bridge.Run},
			})
			if perr := mqttClient.Publish(mqtt.TopicConnection(cfg.TopicBase), 1, true, mqtt.OfflinePayload()); perr != nil {
				log.Warn("publish offline failed", zap.Error(perr))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&broker, "broker", "", "MQTT broker URL")
	cmd.Flags().StringVar(&topicBase, "topic-base", "", "MQTT topic base")

	return cmd
}
