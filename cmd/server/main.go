package main

import (
	"github.com/chenraccah/semantic-network-analyzer/internal/server"
	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	server.Init()
}
