package feed

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"cost_engine/internal/orderbook"
	"cost_engine/internal/symbols"
)

const okxDefaultURL = "wss://ws.okx.com:8443/ws/v5/public"

type OKXConfig struct {
	URL    string
	Symbol string
	InstID string // derived from Symbol when empty
	Depth  int    // 5, 50, or 0 for the full book
}

// OKX follows the books channel. Every subscription starts with a full
// snapshot, so recovery from a gap is a reconnect.
type OKX struct {
	cfg     OKXConfig
	log     zerolog.Logger
	handle  Handler
	instID  string
	symbol  string
	channel string
}

func NewOKX(cfg OKXConfig, log zerolog.Logger, handle Handler) (*OKX, error) {
	if cfg.URL == "" {
		cfg.URL = okxDefaultURL
	}
	symbol := symbols.Normalize(cfg.Symbol)
	instID := cfg.InstID
	if instID == "" {
		instID = symbols.OkxInstID(symbol)
	}
	if instID == "" {
		return nil, errors.New("okx feed: symbol or inst-id is required")
	}
	if symbol == "" {
		symbol = symbols.Normalize(instID)
	}

	channel := "books"
	switch cfg.Depth {
	case 0:
	case 5, 50:
		channel = "books" + strconv.Itoa(cfg.Depth)
	default:
		log.Warn().Int("depth", cfg.Depth).Msg("unsupported okx depth, using full book")
	}

	return &OKX{
		cfg:     cfg,
		log:     log.With().Str("feed", "okx").Str("inst_id", instID).Logger(),
		handle:  handle,
		instID:  instID,
		symbol:  symbol,
		channel: channel,
	}, nil
}

type okxEnvelope struct {
	Event  string `json:"event"`
	Action string `json:"action"`
	Arg    struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		Bids      [][]string `json:"bids"`
		Asks      [][]string `json:"asks"`
		Ts        string     `json:"ts"`
		SeqID     int64      `json:"seqId"`
		PrevSeqID int64      `json:"prevSeqId"`
	} `json:"data"`
}

// Run connects and streams until ctx is cancelled. Gaps and crossed
// books force a reconnect so the channel replays its snapshot.
func (f *OKX) Run(ctx context.Context) error {
	for {
		if err := f.stream(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("stream ended, reconnecting")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (f *OKX) stream(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]any{
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": f.channel, "instId": f.instID},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	f.log.Info().Str("channel", f.channel).Msg("subscribed")

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if string(message) == "pong" {
			continue
		}

		var env okxEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}
		if env.Event == "error" {
			return errors.New("okx feed: subscription error: " + string(message))
		}
		if env.Arg.Channel != f.channel || len(env.Data) == 0 {
			continue
		}

		d := env.Data[0]
		ts := time.Now()
		if d.Ts != "" {
			if ms, err := strconv.ParseInt(d.Ts, 10, 64); err == nil {
				ts = time.UnixMilli(ms)
			}
		}

		u := orderbook.Update{
			Symbol:     f.symbol,
			Seq:        uint64(d.SeqID),
			Time:       ts,
			IsSnapshot: env.Action == "snapshot",
			Bids:       parseLevels(d.Bids),
			Asks:       parseLevels(d.Asks),
		}
		// prevSeqId is -1 on snapshots and the prior seqId otherwise
		if !u.IsSnapshot && d.PrevSeqID > 0 {
			u.PrevSeq = uint64(d.PrevSeqID)
		}

		if res := f.handle(u); needsResync(res) {
			return errors.New("okx feed: book lost sync (" + res.String() + ")")
		}
	}
}
