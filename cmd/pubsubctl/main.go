package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	pubsub "github.com/quillframe/pubsub-go"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pubsubctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "pubsubctl",
		Short:         "Subscriber session tool for Valkey and WebSocket pub/sub gateways",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to TOML config file")
	root.AddCommand(newListenCmd(&cfgPath))
	root.AddCommand(newPingCmd(&cfgPath))
	return root
}

// newTransport picks the gateway transport when one is configured, the Valkey
// transport otherwise. The returned cleanup releases the connection.
func newTransport(ctx context.Context, cfg Config, logger zerolog.Logger) (pubsub.Transport, func(), error) {
	if cfg.Gateway != "" {
		transport, err := pubsub.DialWS(ctx, cfg.Gateway, pubsub.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return transport, transport.Disconnect, nil
	}

	client, err := pubsub.NewValkeyClient(cfg.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", cfg.Addr, err)
	}
	transport := pubsub.NewValkeyTransport(client, pubsub.WithLogger(logger))
	cleanup := func() {
		transport.Disconnect()
		client.Close()
	}
	return transport, cleanup, nil
}

func newListenCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "listen [channels...]",
		Short: "Subscribe and print events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(*cfgPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			channels := args
			if len(channels) == 0 {
				channels = cfg.Channels
			}
			if len(channels) == 0 && len(cfg.Patterns) == 0 {
				return errors.New("nothing to subscribe: pass channels or configure patterns")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			transport, cleanup, err := newTransport(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			sess := pubsub.New(transport, func(ev pubsub.Event, _ *pubsub.Session) {
				switch m := ev.(type) {
				case pubsub.Message:
					fmt.Printf("%s\t%s\n", m.Channel, m.Payload)
				case pubsub.PatternMessage:
					fmt.Printf("%s\t%s\t%s\n", m.Pattern, m.Channel, m.Payload)
				case pubsub.Pong:
					logger.Info().Bytes("payload", m.Payload).Msg("pong")
				}
			}, pubsub.WithLogger(logger))

			if len(channels) > 0 {
				if _, err := sess.Subscribe(ctx, channels...).Wait(ctx); err != nil {
					return fmt.Errorf("subscribe: %w", err)
				}
			}
			if len(cfg.Patterns) > 0 {
				if _, err := sess.PSubscribe(ctx, cfg.Patterns...).Wait(ctx); err != nil {
					return fmt.Errorf("psubscribe: %w", err)
				}
			}
			logger.Info().Strs("channels", channels).Strs("patterns", cfg.Patterns).Msg("listening")

			<-ctx.Done()
			sess.Quit()
			return nil
		},
	}
}

func newPingCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping [payload]",
		Short: "Round-trip a keepalive through the subscriber connection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(*cfgPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			transport, cleanup, err := newTransport(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			sess := pubsub.New(transport, func(ev pubsub.Event, _ *pubsub.Session) {
				if pong, ok := ev.(pubsub.Pong); ok {
					logger.Info().Bytes("payload", pong.Payload).Msg("pong")
				}
			}, pubsub.WithLogger(logger))

			start := time.Now()
			fut, err := sess.Ping(ctx, args...)
			if err != nil {
				return err
			}
			if _, err := fut.Wait(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}

			fmt.Printf("acked in %s\n", time.Since(start).Round(time.Microsecond))
			sess.Quit()
			return nil
		},
	}
}
