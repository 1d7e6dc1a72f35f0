package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"cost_engine/internal/api"
	"cost_engine/internal/dotenv"
	"cost_engine/internal/estimator"
	"cost_engine/internal/feed"
	"cost_engine/internal/kafka"
	"cost_engine/internal/latlog"
	"cost_engine/internal/metrics"
	"cost_engine/internal/nats"
	"cost_engine/internal/orderbook"
	"cost_engine/internal/params"
	"cost_engine/internal/symbols"
)

var (
	addrFlag      = flag.String("addr", ":8080", "HTTP listen address")
	symbolFlag    = flag.String("symbol", symbols.FromEnv("BTCUSDT"), "Binance symbol (e.g. BTCUSDT)")
	wsURLFlag     = flag.String("ws-url", "wss://stream.binance.com:9443/ws", "Binance WebSocket base URL")
	restURLFlag   = flag.String("rest-url", "https://api.binance.com", "Binance REST base URL")
	snapDepthFlag = flag.Int("snapshot-depth", 1000, "REST snapshot depth limit")
	paramsFlag    = flag.String("params", "params.yaml", "model parameter bundle")
	telemetryFlag = flag.String("telemetry", "none", "telemetry sink: kafka, nats or none")
	brokersFlag   = flag.String("brokers", "localhost:9092", "Kafka brokers or NATS URLs")
	topicFlag     = flag.String("topic", "", "telemetry topic/subject")
	latdirFlag    = flag.String("latdir", "", "latency log directory (disabled when empty)")
	staleFlag     = flag.Duration("staleness", 5*time.Second, "book staleness window")
	volWinFlag    = flag.Int("vol-window", 0, "volatility window, samples (0 = default)")
	imbFlag       = flag.Int("imbalance-levels", 0, "levels for the imbalance feature (0 = default)")
	logLevelFlag  = flag.String("log-level", "info", "zerolog level")
	prettyFlag    = flag.Bool("pretty", false, "human-readable log output")
)

func main() {
	_ = dotenv.Load()
	flag.Parse()

	log := newLogger(*logLevelFlag, *prettyFlag).With().Str("service", "binance-estimator").Logger()

	symbol := symbols.Normalize(*symbolFlag)
	if symbol == "" {
		log.Fatal().Msg("symbol is required")
	}

	ps, err := params.NewStore(*paramsFlag)
	if err != nil {
		log.Fatal().Err(err).Str("path", *paramsFlag).Msg("parameter bundle load failed")
	}

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	var lat *latlog.Logger
	if *latdirFlag != "" {
		lat = latlog.New(*latdirFlag, "binance-estimator")
		defer lat.Close()
	}

	pub, closePub := newPublisher(log, *telemetryFlag, *brokersFlag, *topicFlag, symbol)
	defer closePub()

	engine := estimator.New(
		estimator.Config{ImbalanceLevels: *imbFlag, VolatilityWindow: *volWinFlag},
		orderbook.NewStore(*staleFlag),
		ps, met, log, lat, pub,
	)

	binance, err := feed.NewBinance(feed.BinanceConfig{
		WSURL:         *wsURLFlag,
		RESTURL:       *restURLFlag,
		Symbol:        symbol,
		SnapshotDepth: *snapDepthFlag,
	}, log, engine.Apply)
	if err != nil {
		log.Fatal().Err(err).Msg("feed setup failed")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go reloadOnHUP(ctx, log, ps)
	go func() {
		if err := binance.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	srv := api.New(engine, log, metrics.Handler(reg))
	go func() {
		log.Info().Str("addr", *addrFlag).Str("symbol", symbol).Msg("serving estimates")
		if err := srv.ListenAndServe(*addrFlag); err != nil {
			log.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
}

func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(lvl).With().Timestamp().Logger()
}

func newPublisher(log zerolog.Logger, kind, brokers, topic, symbol string) (estimator.Publisher, func()) {
	servers := strings.Split(brokers, ",")
	if topic == "" {
		topic = symbols.DefaultTopic("binance", symbol, "binance_estimates")
	}
	switch kind {
	case "kafka":
		p := kafka.NewProducer(servers, topic)
		return p, func() { _ = p.Close() }
	case "nats":
		p := nats.NewProducer(servers, topic)
		return p, func() { _ = p.Close() }
	case "none", "":
		return nil, func() {}
	default:
		log.Fatal().Str("telemetry", kind).Msg("unknown telemetry sink")
		return nil, func() {}
	}
}

func reloadOnHUP(ctx context.Context, log zerolog.Logger, ps *params.Store) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := ps.Reload(); err != nil {
				log.Error().Err(err).Msg("parameter reload failed, keeping previous bundle")
				continue
			}
			log.Info().Msg("parameters reloaded")
		}
	}
}
