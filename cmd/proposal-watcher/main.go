package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"clmm-admin-sol/internal/config"
	"clmm-admin-sol/internal/logic/grpc"
	"clmm-admin-sol/internal/service"
	"clmm-admin-sol/internal/svc"
	"clmm-admin-sol/pkg/logger"

	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/proposal-watcher.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	flag.Parse()

	c, err := config.Load(*configFile)
	logx.Must(err)
	logx.Must(logger.InitLogger(c.LogConf.ToLogOption()))
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	logx.Must(err)
	defer serviceContext.Close()

	orch, err := serviceContext.RequireOrchestrator()
	logx.Must(err)

	watcher := service.NewProposalWatcher(orch, serviceContext.Progress, serviceContext.Sink, service.WatcherOptions{
		PollInterval: time.Duration(c.Watcher.PollIntervalSec) * time.Second,
		ScanWindow:   uint64(c.Watcher.ScanWindow),
	})

	sg := zerosvc.NewServiceGroup()
	sg.Add(watcher)

	// 账户订阅可选：收到 multisig / 提案账户变化时立即触发一轮扫描
	if c.Grpc.Endpoint != "" {
		stream, err := grpc.NewAccountStreamManager(c.Grpc, orch.ProgramID(), orch.Multisig(), func(grpc.AccountUpdate) {
			watcher.Trigger()
		})
		logx.Must(err)
		sg.Add(stream)
	}

	logx.Infof("Starting proposal watcher: multisig=%s", orch.Multisig().ToBase58())

	// watcher.Start 会阻塞，ServiceGroup 在独立协程中启动
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
