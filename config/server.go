package config

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StartServer 启动HTTP服务器并处理优雅关闭
// 参数：
//   - app: 配置好的Fiber应用实例
//   - port: 监听端口
//   - log: 日志实例
func StartServer(app *fiber.App, port string, log *zap.Logger) error {
	// 创建系统信号通道
	// 用于接收操作系统的终止信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(fmt.Sprintf(":%s", port))
	}()

	log.Info("服务器已启动", zap.String("port", port))

	select {
	case err := <-listenErr:
		return fmt.Errorf("服务器启动失败: %w", err)
	case sig := <-sigChan:
		log.Info("收到终止信号，开始优雅关闭...", zap.String("signal", sig.String()))
	}

	// 确保所有活跃的连接都能正常完成
	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("服务器关闭时发生错误: %w", err)
	}

	log.Info("服务器已安全关闭")
	return nil
}
