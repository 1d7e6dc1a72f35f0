package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"cost_engine/internal/orderbook"
	"cost_engine/internal/symbols"
)

const (
	binanceDefaultWSURL   = "wss://stream.binance.com:9443/ws"
	binanceDefaultRESTURL = "https://api.binance.com"
)

type BinanceConfig struct {
	WSURL         string
	RESTURL       string
	Symbol        string
	SnapshotDepth int // REST snapshot limit, defaults to 1000
}

// Binance follows the diff depth stream. The stream carries only deltas,
// so the adapter seeds the book from the REST snapshot, discards events
// the snapshot already covers, and bridges the first event that spans
// the snapshot's lastUpdateId.
type Binance struct {
	cfg    BinanceConfig
	log    zerolog.Logger
	handle Handler
	symbol string
	client *http.Client
}

func NewBinance(cfg BinanceConfig, log zerolog.Logger, handle Handler) (*Binance, error) {
	symbol := symbols.Normalize(cfg.Symbol)
	if symbol == "" {
		return nil, errors.New("binance feed: symbol is required")
	}
	if cfg.WSURL == "" {
		cfg.WSURL = binanceDefaultWSURL
	}
	if cfg.RESTURL == "" {
		cfg.RESTURL = binanceDefaultRESTURL
	}
	if cfg.SnapshotDepth <= 0 {
		cfg.SnapshotDepth = 1000
	}
	return &Binance{
		cfg:    cfg,
		log:    log.With().Str("feed", "binance").Str("symbol", symbol).Logger(),
		handle: handle,
		symbol: symbol,
		client: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

type binanceDepthEvent struct {
	Event   string     `json:"e"`
	Time    int64      `json:"E"`
	Symbol  string     `json:"s"`
	FirstID uint64     `json:"U"`
	FinalID uint64     `json:"u"`
	Bids    [][]string `json:"b"`
	Asks    [][]string `json:"a"`
}

func (f *Binance) Run(ctx context.Context) error {
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

func (f *Binance) stream(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s@depth@100ms", f.cfg.WSURL, symbols.BinanceStreamSymbol(f.symbol))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	f.log.Info().Str("url", url).Msg("connected")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	snapSeq, err := f.seedSnapshot(ctx)
	if err != nil {
		return err
	}
	bridged := false

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev binanceDepthEvent
		if err := json.Unmarshal(message, &ev); err != nil || ev.Event != "depthUpdate" {
			continue
		}
		if ev.FinalID <= snapSeq {
			continue // covered by the snapshot
		}

		prev := ev.FirstID - 1
		if !bridged {
			if ev.FirstID > snapSeq+1 {
				// snapshot landed behind the stream, take a newer one
				if snapSeq, err = f.seedSnapshot(ctx); err != nil {
					return err
				}
				if ev.FinalID <= snapSeq {
					continue
				}
				if ev.FirstID > snapSeq+1 {
					return errors.New("binance feed: cannot bridge snapshot to stream")
				}
			}
			prev = snapSeq
			bridged = true
		}

		res := f.handle(orderbook.Update{
			Symbol:  f.symbol,
			Seq:     ev.FinalID,
			PrevSeq: prev,
			Time:    time.UnixMilli(ev.Time),
			Bids:    parseLevels(ev.Bids),
			Asks:    parseLevels(ev.Asks),
		})
		if needsResync(res) {
			if snapSeq, err = f.seedSnapshot(ctx); err != nil {
				return err
			}
			bridged = false
		}
	}
}

// seedSnapshot fetches the REST book and applies it, returning its
// lastUpdateId as the new sequence floor.
func (f *Binance) seedSnapshot(ctx context.Context) (uint64, error) {
	url := fmt.Sprintf("%s/api/v3/depth?symbol=%s&limit=%d", f.cfg.RESTURL, f.symbol, f.cfg.SnapshotDepth)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("binance feed: snapshot status %s", resp.Status)
	}

	var payload struct {
		LastUpdateID uint64     `json:"lastUpdateId"`
		Bids         [][]string `json:"bids"`
		Asks         [][]string `json:"asks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}

	res := f.handle(orderbook.Update{
		Symbol:     f.symbol,
		Seq:        payload.LastUpdateID,
		Time:       time.Now(),
		IsSnapshot: true,
		Bids:       parseLevels(payload.Bids),
		Asks:       parseLevels(payload.Asks),
	})
	if res != orderbook.ResultApplied && res != orderbook.ResultIgnoredDuplicate {
		return 0, fmt.Errorf("binance feed: snapshot rejected (%s)", res)
	}
	f.log.Info().Uint64("last_update_id", payload.LastUpdateID).Msg("snapshot seeded")
	return payload.LastUpdateID, nil
}
