package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"citymayor.ai/internal/bridge"
	"citymayor.ai/internal/config"
	"citymayor.ai/internal/persistence/indexdb"
	"citymayor.ai/internal/persistence/obslog"
	"citymayor.ai/internal/sim/citysim"
	"citymayor.ai/internal/sim/gridcodec"
	"citymayor.ai/internal/sim/runner"
	"citymayor.ai/internal/transport/gateway"
	"citymayor.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		configPath = flag.String("config", "./configs/bridge.yaml", "bridge config path")
		token      = flag.String("token", "", "agent token (overrides config and AGENT_BRIDGE_TOKEN)")
		citySize   = flag.Int("size", 0, "grid size (overrides config)")
		seed       = flag.Int64("seed", 0, "world seed (overrides config)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("config not found (%s); using defaults", *configPath)
			cfg = config.FromEnv()
		} else {
			logger.Fatalf("load config: %v", err)
		}
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *token != "" {
		cfg.AgentToken = *token
	}
	if *citySize > 0 {
		cfg.City.Size = *citySize
	}
	if *seed != 0 {
		cfg.City.Seed = *seed
	}

	if cfg.AgentToken == "" {
		logger.Printf("no agent token configured; bridge endpoints are disabled")
	}

	world := citysim.NewWorld(citysim.Config{
		ID:       cfg.City.ID,
		CityName: cfg.City.Name,
		Size:     cfg.City.Size,
		Seed:     cfg.City.Seed,
	})

	br := bridge.New()

	tickInterval := time.Duration(cfg.Sim.TickMS) * time.Millisecond
	if tickInterval <= 0 {
		tickInterval = 250 * time.Millisecond
	}
	run := runner.New(world, br, tickInterval, cfg.Sim.PublishEveryTicks, logger)

	if cfg.ObsArchive.Enabled {
		archive, err := obslog.NewWriter(cfg.ObsArchive.Path)
		if err != nil {
			logger.Fatalf("open obs archive: %v", err)
		}
		defer archive.Close()
		run.SetArchive(archive)
		logger.Printf("observation archive: %s", cfg.ObsArchive.Path)
	}

	gw := gateway.NewServer(br, cfg.AgentToken, logger)
	if cfg.IndexDB.Enabled {
		idx, err := indexdb.Open(cfg.IndexDB.Path, logger)
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		gw.SetAuditIndex(idx)
		logger.Printf("index db: %s", cfg.IndexDB.Path)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := run.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("runner stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := run.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP citymayor_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE citymayor_world_tick gauge\n")
		fmt.Fprintf(rw, "citymayor_world_tick{city=%q} %d\n", cfg.City.ID, m.Tick)

		fmt.Fprintf(rw, "# HELP citymayor_world_speed Current simulation speed.\n")
		fmt.Fprintf(rw, "# TYPE citymayor_world_speed gauge\n")
		fmt.Fprintf(rw, "citymayor_world_speed{city=%q} %d\n", cfg.City.ID, m.Speed)

		fmt.Fprintf(rw, "# HELP citymayor_world_money City funds.\n")
		fmt.Fprintf(rw, "# TYPE citymayor_world_money gauge\n")
		fmt.Fprintf(rw, "citymayor_world_money{city=%q} %d\n", cfg.City.ID, m.Money)

		fmt.Fprintf(rw, "# HELP citymayor_bridge_queue_depth Pending action batches.\n")
		fmt.Fprintf(rw, "# TYPE citymayor_bridge_queue_depth gauge\n")
		fmt.Fprintf(rw, "citymayor_bridge_queue_depth{city=%q} %d\n", cfg.City.ID, m.QueueDepth)

		fmt.Fprintf(rw, "# HELP citymayor_stream_subscribers Registered stream subscribers.\n")
		fmt.Fprintf(rw, "# TYPE citymayor_stream_subscribers gauge\n")
		fmt.Fprintf(rw, "citymayor_stream_subscribers{city=%q} %d\n", cfg.City.ID, m.Subscribers)

		fmt.Fprintf(rw, "# HELP citymayor_loop_step_ms Last loop iteration duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE citymayor_loop_step_ms gauge\n")
		fmt.Fprintf(rw, "citymayor_loop_step_ms{city=%q} %.3f\n", cfg.City.ID, m.StepMS)

		fmt.Fprintf(rw, "# HELP citymayor_batches_applied_total Batches executed since start.\n")
		fmt.Fprintf(rw, "# TYPE citymayor_batches_applied_total counter\n")
		fmt.Fprintf(rw, "citymayor_batches_applied_total{city=%q} %d\n", cfg.City.ID, m.BatchesApplied)
	})

	gw.Register(mux)
	mux.HandleFunc("/admin/v1/observer/ws", observer.NewServer(br, logger).Handler())
	mux.HandleFunc("/admin/v1/grid", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopback(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(gridcodec.Encode(run.World()))
	})

	if envBool("CM_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopback(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
