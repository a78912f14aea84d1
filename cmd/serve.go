package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/studyhall/chat-gateway/internal/config"
	"github.com/studyhall/chat-gateway/internal/gateway"
	"github.com/studyhall/chat-gateway/internal/monitoring"
)

// runServeCommand runs the gateway until SIGINT/SIGTERM.
func runServeCommand(args []string) {
	var (
		configFlag string
		portFlag   int
		debugFlag  bool
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help":
			printUsage()
			return
		case "-c", "--config":
			if i+1 >= len(args) {
				printError("--config requires a value")
				os.Exit(1)
			}
			configFlag = args[i+1]
			i++
		case "-p", "--port":
			if i+1 >= len(args) {
				printError("--port requires a value")
				os.Exit(1)
			}
			p, err := strconv.Atoi(args[i+1])
			if err != nil {
				printError(fmt.Sprintf("invalid port %q", args[i+1]))
				os.Exit(1)
			}
			portFlag = p
			i++
		case "-d", "--debug":
			debugFlag = true
		default:
			printError(fmt.Sprintf("unknown option %q", args[i]))
			os.Exit(1)
		}
	}

	cfg, err := config.Load(configFlag)
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
		if err := cfg.Validate(); err != nil {
			printError(err.Error())
			os.Exit(1)
		}
	}
	if debugFlag {
		cfg.Monitoring.LogLevel = "debug"
	}
	monitoring.SetupLogger(cfg.Logger())

	printHeader("Study Hall Gateway")
	printInfo(fmt.Sprintf("Listening on :%d, backend %s", cfg.Server.Port, cfg.Backend.BaseURL))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw := gateway.New(cfg)
	if err := gw.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("gateway stopped")
		os.Exit(1)
	}
}
