package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"livi/core"
	"livi/device"
	"livi/host/hal"
)

// withSession runs fn with a session and a context cancelled on SIGINT/SIGTERM
func withSession(c *cli.Context, lineEnding string, fn func(ctx context.Context, cancel context.CancelFunc, s *session) error) error {
	s, err := newSession(c, lineEnding)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return fn(ctx, cancel, s)
}

// startDevice builds and starts a device. Fatal init failures exit with 2.
func startDevice(ctx context.Context, s *session, pins core.GPIODriver) (*device.Device, error) {
	dev, err := s.newDevice(pins)
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	if err := dev.Start(ctx); err != nil {
		if errors.Is(err, device.ErrFatalInit) {
			return nil, cli.Exit(err.Error(), 2)
		}
		return nil, err
	}
	return dev, nil
}

func flowError(s *session, flow string, err error) error {
	if err == nil {
		return nil
	}
	s.log.Error("flow failed", zap.String("flow", flow), zap.Error(err))
	s.reporter.Failed(flow, err)
	return cli.Exit("", 1)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the device loop (space = button, q = quit)",
		Action: func(c *cli.Context) error {
			fd := int(os.Stdin.Fd())
			eol := ""
			if term.IsTerminal(fd) {
				eol = "\r\n"
			}
			return withSession(c, eol, func(ctx context.Context, cancel context.CancelFunc, s *session) error {
				keys := hal.NewKeyButton()
				dev, err := startDevice(ctx, s, keys)
				if err != nil {
					return err
				}

				listening := make(chan struct{})
				go func() {
					defer close(listening)
					if err := keys.Listen(ctx, os.Stdin, fd, cancel); err != nil {
						s.log.Warn("keyboard input stopped", zap.Error(err))
					}
				}()
				s.reporter.Info("ready: space = click, twice quickly = double click, q = quit")

				err = dev.Run(ctx)
				cancel()
				<-listening
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}
}

func describeCommand() *cli.Command {
	return &cli.Command{
		Name:  "describe",
		Usage: "run one quick-describe flow (single click)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prompt", Usage: "override the quick prompt"},
		},
		Action: func(c *cli.Context) error {
			return withSession(c, "", func(ctx context.Context, _ context.CancelFunc, s *session) error {
				if p := c.String("prompt"); p != "" {
					s.cfg.Capture.QuickPrompt = p
				}
				dev, err := startDevice(ctx, s, hal.NewKeyButton())
				if err != nil {
					return err
				}
				return flowError(s, device.FlowQuickDescribe, dev.QuickDescribe(ctx))
			})
		},
	}
}

func relayCommand() *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "run one record-and-relay flow (double click)",
		Action: func(c *cli.Context) error {
			return withSession(c, "", func(ctx context.Context, _ context.CancelFunc, s *session) error {
				dev, err := startDevice(ctx, s, hal.NewKeyButton())
				if err != nil {
					return err
				}
				return flowError(s, device.FlowRecordAndRelay, dev.RecordAndRelay(ctx))
			})
		},
	}
}

func imageCommand() *cli.Command {
	return &cli.Command{
		Name:  "image",
		Usage: "capture and upload one image for a request id",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "request-id", Usage: "correlation id to upload under"},
			&cli.BoolFlag{Name: "poll", Usage: "wait for the next command first and adopt its request_id"},
		},
		Action: func(c *cli.Context) error {
			if c.String("request-id") == "" && !c.Bool("poll") {
				return cli.Exit("either --request-id or --poll is required", 2)
			}
			return withSession(c, "", func(ctx context.Context, _ context.CancelFunc, s *session) error {
				dev, err := startDevice(ctx, s, hal.NewKeyButton())
				if err != nil {
					return err
				}
				return flowError(s, device.FlowImageRound, dev.ImageRound(ctx, c.String("request-id"), "", c.Bool("poll")))
			})
		},
	}
}

func transcribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "transcribe",
		Usage:     "upload a stored recording to the transcription service",
		ArgsUsage: "[path on device storage, default capture.wav_path]",
		Action: func(c *cli.Context) error {
			return withSession(c, "", func(ctx context.Context, _ context.CancelFunc, s *session) error {
				tr := s.transcriber()
				if tr == nil {
					return cli.Exit("transcription.host is not configured", 2)
				}
				if err := s.storage.Init(); err != nil {
					return cli.Exit(err.Error(), 2)
				}
				file := s.cfg.Capture.WAVPath
				if c.Args().Present() {
					file = c.Args().First()
				}
				text, err := tr.Transcribe(ctx, file)
				if err != nil {
					return flowError(s, "transcribe", err)
				}
				s.reporter.Reply("transcribe", text)
				return nil
			})
		},
	}
}

func pollCommand() *cli.Command {
	return &cli.Command{
		Name:  "poll",
		Usage: "wait for the next server command and print it",
		Action: func(c *cli.Context) error {
			return withSession(c, "", func(ctx context.Context, _ context.CancelFunc, s *session) error {
				cmd, err := s.client.PollNextCommand(ctx)
				if err != nil {
					return flowError(s, "poll", err)
				}
				s.reporter.Info("request_id=%q", cmd.RequestID)
				s.reporter.Info("%s", cmd.Body)
				return nil
			})
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check that the backend is reachable",
		Action: func(c *cli.Context) error {
			return withSession(c, "", func(ctx context.Context, _ context.CancelFunc, s *session) error {
				ok, err := s.client.Health(ctx)
				if err != nil {
					return flowError(s, "health", err)
				}
				if !ok {
					return cli.Exit("backend reported not ok", 1)
				}
				s.reporter.Info("backend ok")
				return nil
			})
		},
	}
}
