package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"rdview/native/internal/api"
	"rdview/native/internal/auth"
	"rdview/native/internal/config"
	"rdview/native/internal/domain"
	"rdview/native/internal/event"
	"rdview/native/internal/input"
	"rdview/native/internal/negotiate"
	"rdview/native/internal/prompt"
	sigchannel "rdview/native/internal/signal"
	"rdview/native/internal/token"
	"rdview/native/internal/viewer"
	"rdview/native/internal/webrtc"
)

const helpText = `rdview - Remote desktop viewer client

Connects to a webrd server, authenticates, negotiates a WebRTC session,
and relays keyboard input. The received H264 video stream is written to
stdout; pipe it to ffplay or ffmpeg for playback or recording.

Usage:
  rdview [options]

Environment Variables:
  RDVIEW_SERVER      Server base URL, e.g. https://desk.example.com (required)
  RDVIEW_TOKEN_FILE  Token cache path (default: user config dir)

Examples:
  # Live playback with keyboard control from this terminal
  rdview | ffplay -f h264 -

  # Record the session
  rdview | ffmpeg -f h264 -i - -c copy session.mp4

While streaming, keys typed in this terminal are sent to the remote
machine. Press Ctrl+Q to stop.

Options:
  -h, --help  Show this help message
`

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Print(helpText)
		os.Exit(0)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	tokenPath := cfg.TokenFile
	if tokenPath == "" {
		tokenPath, err = token.DefaultPath()
		if err != nil {
			log.Fatal().Err(err).Msg("token path")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	session := domain.NewSession()
	store := token.NewFileStore(tokenPath)
	emitter := event.NewEmitter()
	defer emitter.Close()

	loginClient := api.NewLoginClient(cfg.LoginURL, log)
	credPrompt := prompt.NewTerminal(os.Stdin, os.Stderr)
	authSession := auth.NewSession(store, credPrompt, loginClient, emitter, session, log)

	channel := sigchannel.NewChannel(cfg.SignalURL, log)
	defer channel.Close()

	relay := input.NewRelay(channel, session, log)
	keyboard := input.NewKeyboardSource(os.Stdin, cancel, log)

	orchestrator := viewer.NewOrchestrator(channel, authSession, emitter, relay, keyboard, session, log)

	factory := webrtc.Factory(os.Stdout, log)
	negotiator := negotiate.NewController(channel, factory, orchestrator.OnStreaming, log)
	defer negotiator.Close()
	orchestrator.SetNegotiator(negotiator)

	err = orchestrator.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info().Msg("done")
	default:
		log.Fatal().Err(err).Msg("session ended")
	}
}
