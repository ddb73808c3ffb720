package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
Ride-hail gateway

Usage:
  ridehail -mode=<gateway|relay> [-config-path=config.yaml]
  ridehail -help

Modes:
  gateway   HTTP and websocket API; keeps one ride reconciler per signed-in user
  relay     republishes database ride changes into the RabbitMQ ride_topic exchange

Options:
  -mode          application mode (required)
  -config-path   path to the YAML config file (default config.yaml)
  -help          show this message

Configuration is read from the YAML file and the environment. Environment
variables win over the file, e.g. DATABASE_HOST, FEED_DRIVER, GATEWAY_PORT,
GATEWAY_STORE, GATEWAY_ALLOWED_ORIGINS, GATEWAY_SESSION_IDLE_TIMEOUT,
REDIS_ADDR, AUTH_JWT_SECRET, LOCATIONIQ_API_KEY, LOG_LEVEL.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
