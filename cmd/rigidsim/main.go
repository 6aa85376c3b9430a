package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/milk9111/rigidcore/collision"
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
	"github.com/milk9111/rigidcore/ecs/component"
	"github.com/milk9111/rigidcore/ecs/system"
	"github.com/milk9111/rigidcore/feed"
	"github.com/milk9111/rigidcore/prefabs"
)

func main() {
	steps := flag.Int("steps", 0, "steps to run (0 = world.yaml value)")
	scene := flag.String("scene", "", "scene file in prefabs/ (default from world.yaml)")
	feedAddr := flag.String("feed", "", "serve the collision feed on this address, e.g. :8080")
	realtime := flag.Bool("realtime", false, "pace steps at the configured time step")
	watch := flag.Bool("watch", false, "hot reload prefabs/world.yaml and scripts")
	logLevel := flag.String("log", "", "log level override: debug, info, warn, error")
	flag.Parse()

	settings, err := prefabs.LoadWorldSettings()
	if err != nil {
		log.Fatal(err)
	}
	if *steps > 0 {
		settings.Steps = *steps
	}
	if *scene != "" {
		settings.Scene = *scene
	}
	if *feedAddr != "" {
		settings.FeedAddr = *feedAddr
	}
	if *logLevel != "" {
		settings.LogLevel = *logLevel
	}

	logger := common.NewTextLogger(os.Stderr, settings.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, settings, *realtime, *watch, logger); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, settings prefabs.WorldSettings, realtime, watch bool, logger common.Logger) error {
	w := ecs.NewWorld()
	gravity := component.NewGravityCell(settings.GravityValue())
	physics := system.NewPhysicsSchedule(w, system.PhysicsConfig{
		Gravity: gravity,
		Dt:      settings.TimeStep,
		Log:     logger,
	})

	// collision listeners run as one group after integration
	listeners := ecs.NewScheduler()

	var listener *system.ScriptListener
	if settings.Script != "" {
		src, err := prefabs.LoadScript(settings.Script)
		if err != nil {
			return err
		}
		listener, err = system.NewScriptListener(w, settings.Script, src, logger)
		if err != nil {
			return err
		}
		listeners.Add(listener)
	}

	if settings.FeedAddr != "" {
		srv := feed.NewServer(logger)
		defer srv.Close()
		httpSrv := &http.Server{Addr: settings.FeedAddr, Handler: srv}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("rigidsim: feed server", "err", err)
			}
		}()
		defer httpSrv.Close()
		listeners.Add(feed.NewSystem(w, srv))
		logger.Info("rigidsim: feed listening", "addr", settings.FeedAddr)
	}

	if watch {
		scripts := make(chan []byte, 4)
		watcher, err := prefabs.NewWatcher("prefabs", "prefabs/scripts")
		if err != nil {
			return err
		}
		defer watcher.Close()
		reloader := &prefabs.Reloader{
			Gravity: gravity,
			Log:     logger,
			OnScript: func(name string, src []byte) {
				if name != settings.Script {
					return
				}
				select {
				case scripts <- src:
				default:
				}
			},
		}
		go reloader.Follow(ctx, watcher)

		// scripts are swapped on the step goroutine, before physics runs
		// again
		listeners.Add(ecs.SystemFunc(func(w *ecs.World) {
			select {
			case src := <-scripts:
				if listener == nil {
					return
				}
				if err := listener.Reload(src); err != nil {
					logger.Warn("rigidsim: script reload", "err", err)
					return
				}
				logger.Info("rigidsim: script reloaded", "script", settings.Script)
			default:
			}
		}))
	}

	w.AddSystem(listeners)
	logger.Debug("rigidsim: listeners", "count", len(listeners.Systems()))

	if settings.Scene != "" {
		spec, err := prefabs.LoadSceneSpec(settings.Scene)
		if err != nil {
			return err
		}
		bodies, err := prefabs.BuildScene(w, spec)
		if err != nil {
			return err
		}
		logger.Info("rigidsim: scene loaded", "scene", spec.Name, "bodies", len(bodies))
	}

	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(time.Duration(float64(settings.TimeStep) * float64(time.Second)))
		defer ticker.Stop()
	}

	started, stopped := 0, 0
	for step := 0; step < settings.Steps; step++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		w.Update()
		for _, ev := range physics.Collision.LastBatch() {
			if ev.Kind == collision.Started {
				started++
			} else {
				stopped++
			}
		}
	}

	logger.Info("rigidsim: done",
		"steps", settings.Steps,
		"started", started,
		"stopped", stopped,
		"active", physics.Collision.Tracker().Len(),
	)
	if listener != nil {
		runs, failures := listener.Runs()
		logger.Info("rigidsim: script", "runs", runs, "failures", failures, "state", listener.State())
	}
	return nil
}
