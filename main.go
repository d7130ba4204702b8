package main

import (
	"os"

	"go.uber.org/zap"

	"sales_bonus/config"
	"sales_bonus/logger"
)

func main() {
	settings := config.LoadSettings()

	log := logger.New(&logger.Config{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Output: settings.LogOutput,
	})
	defer log.Sync() //nolint:errcheck

	svc, err := config.InitApp(settings, log)
	if err != nil {
		log.Error("应用程序初始化失败", zap.Error(err))
		os.Exit(1)
	}

	app := config.SetupApp(settings, log)
	err = config.StartServer(app, settings.ServerPort, log)
	svc.Close()
	if err != nil {
		log.Error("服务器异常退出", zap.Error(err))
		os.Exit(1)
	}
}
