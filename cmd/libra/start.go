package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli"

	"github.com/sadullah47/libra/internal/app"
	"github.com/sadullah47/libra/internal/loggers"
	"github.com/sadullah47/libra/internal/peermgr"
	"github.com/sadullah47/libra/internal/profile"
	"github.com/sadullah47/libra/internal/repo"
	"github.com/sadullah47/libra/internal/validator"
)

func startCMD() cli.Command {
	return cli.Command{
		Name:   "start",
		Usage:  "Start a long-running mempool node",
		Action: start,
	}
}

func start(ctx *cli.Context) error {
	repoRoot, err := repo.PathRootWithDefault(ctx.GlobalString("repo"))
	if err != nil {
		return fmt.Errorf("get repo path: %w", err)
	}

	rep, err := repo.Load(repoRoot)
	if err != nil {
		return fmt.Errorf("repo load: %w", err)
	}

	loggers.Initialize(rep.Config)

	printVersion()

	// the production transport and ledger are attached by the embedding
	// process; the standalone binary runs with dev substitutes
	peerMgr := peermgr.NewDevPeerMgr(rep.Config.Peers, loggers.Logger(loggers.App))
	stateProvider := &validator.DevStateProvider{Balance: ^uint64(0)}

	node, err := app.NewLibra(rep, peerMgr, stateProvider)
	if err != nil {
		return err
	}

	monitor, err := profile.NewMonitor(rep.Config)
	if err != nil {
		return err
	}
	if err := monitor.Start(); err != nil {
		return err
	}

	pprof, err := profile.NewPprof(rep.Config)
	if err != nil {
		return err
	}
	if err := pprof.Start(); err != nil {
		return err
	}

	node.Monitor = monitor
	node.Pprof = pprof

	// reload log levels on config file edits
	configC, err := repo.WatchConfig(repoRoot)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	go func() {
		for config := range configC {
			loggers.ReloadLevels(config)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	handleShutdown(node, &wg)

	if err := node.Start(); err != nil {
		return err
	}

	wg.Wait()

	return nil
}

func handleShutdown(node *app.Libra, wg *sync.WaitGroup) {
	var stop = make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		if err := node.Stop(); err != nil {
			panic(err)
		}
		wg.Done()
		os.Exit(0)
	}()
}
