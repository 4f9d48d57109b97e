package main

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/ingest"
	"github.com/kirbo/swishsensei/internal/logging"
	"github.com/kirbo/swishsensei/internal/simulate"
)

func newSimulateCmd(flags *rootFlags) *cobra.Command {
	var (
		plan simulate.Options
		pace time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Publish synthetic foot, glove and hoop traffic to the broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if plan.ScoredRate < 0 || plan.ScoredRate > 1 {
				return fmt.Errorf("--scored-rate must be within 0..1, got %v", plan.ScoredRate)
			}

			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Runtime.LogLevel, "console")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			mqttCfg := cfg.MQTT
			mqttCfg.ClientID = fmt.Sprintf("%s-sim-%d", cfg.MQTT.ClientID, time.Now().Unix())
			opts := ingest.ClientOptions(mqttCfg, logger)
			// The status topic belongs to the collector.
			opts.WillEnabled = false

			client := mqtt.NewClient(opts)
			token := client.Connect()
			if !token.WaitTimeout(5 * time.Second) {
				return fmt.Errorf("mqtt connect timeout")
			}
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			defer client.Disconnect(250)

			msgs := simulate.Plan(cfg.Topics, plan)
			logger.Info("publishing synthetic traffic",
				zap.String("broker", cfg.BrokerURL()),
				zap.Int("shots", plan.Shots),
				zap.Int("messages", len(msgs)),
			)
			if err := simulate.Run(cmd.Context(), simulate.MQTTPublisher{Client: client}, msgs, pace); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d messages\n", len(msgs))
			return nil
		},
	}
	cmd.Flags().IntVar(&plan.Shots, "shots", 5, "number of jumps to simulate")
	cmd.Flags().Float64Var(&plan.ScoredRate, "scored-rate", 0.5, "probability a shot is scored (0-1)")
	cmd.Flags().Int64Var(&plan.Step, "step", 80, "device milliseconds between samples")
	cmd.Flags().Int64Var(&plan.Seed, "seed", 1, "random seed")
	cmd.Flags().DurationVar(&pace, "pace", 20*time.Millisecond, "wall-clock pause between messages")
	return cmd
}
