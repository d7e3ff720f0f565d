// Command sandfall runs a falling-sand world behind an interactive console.
// The simulation ticks at a fixed rate while commands paint materials, step
// manually and inspect cells.
package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/df-mc/sandfall/engine"
	"github.com/df-mc/sandfall/engine/cmd/builtin"
	"github.com/df-mc/sandfall/engine/console"
	"github.com/df-mc/sandfall/engine/material"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	uc, err := readConfig(log)
	if err != nil {
		log.Error("read config", "err", err)
		os.Exit(1)
	}
	conf, err := uc.Config(log)
	if err != nil {
		log.Error("configure engine", "err", err)
		os.Exit(1)
	}

	h := &host{
		e:     conf.New(),
		log:   log,
		mat:   material.Sand,
		brush: clampBrush(uc.Brush.Radius),
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.stop = cancel
	builtin.RegisterAll(h)

	tickRate := uc.Simulation.TickRate
	if tickRate <= 0 {
		tickRate = 60
	}
	go h.tickLoop(ctx, tickRate)

	console.New(log, h.exec).Run(ctx)
	cancel()

	if err := h.e.Close(); err != nil {
		log.Error("close engine", "err", err)
		os.Exit(1)
	}
}

// host owns the engine and the paint state shared by the console commands and
// the tick loop. All engine access goes through mu: a tick and a command
// never overlap.
type host struct {
	mu    sync.Mutex
	e     *engine.Engine
	log   *slog.Logger
	mat   material.ID
	brush int
	stop  func()
}

const tpsSampleSize = 20

func (h *host) tickLoop(ctx context.Context, tickRate int) {
	interval := time.Second / time.Duration(tickRate)
	t := time.NewTicker(interval)
	defer t.Stop()

	lastTick := time.Now()
	var (
		durationSum time.Duration
		ticksCount  int
		warned      bool
	)
	for {
		select {
		case <-t.C:
			tickStart := time.Now()
			duration := tickStart.Sub(lastTick)
			lastTick = tickStart
			durationSum += duration
			ticksCount++
			if ticksCount >= tpsSampleSize {
				avg := durationSum / time.Duration(ticksCount)
				tps := 1.0 / avg.Seconds()
				if tps < float64(tickRate)*0.95 {
					if !warned {
						h.log.Warn("TPS dropped below threshold.", "tps", tps, "target", tickRate)
						warned = true
					}
				} else {
					warned = false
				}
				durationSum, ticksCount = 0, 0
			}

			h.mu.Lock()
			h.e.Update(interval.Seconds())
			h.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func (h *host) exec(f func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f()
}

func (h *host) Engine() *engine.Engine { return h.e }

func (h *host) Material() material.ID { return h.mat }

func (h *host) SetMaterial(id material.ID) { h.mat = id }

func (h *host) BrushRadius() int { return h.brush }

func (h *host) SetBrushRadius(radius int) { h.brush = clampBrush(radius) }

func (h *host) Stop() { h.stop() }

func clampBrush(radius int) int {
	return min(max(radius, 1), 20)
}

// readConfig reads sandfall.toml, writing one with default values first if it
// does not yet exist.
func readConfig(log *slog.Logger) (engine.UserConfig, error) {
	uc := engine.DefaultConfig()
	if _, err := os.Stat("sandfall.toml"); os.IsNotExist(err) {
		data, err := toml.Marshal(uc)
		if err != nil {
			return uc, err
		}
		if err := os.WriteFile("sandfall.toml", data, 0644); err != nil {
			return uc, err
		}
		log.Info("created default config", "file", "sandfall.toml")
		return uc, nil
	}
	data, err := os.ReadFile("sandfall.toml")
	if err != nil {
		return uc, err
	}
	if err := toml.Unmarshal(data, &uc); err != nil {
		return uc, err
	}
	return uc, nil
}
