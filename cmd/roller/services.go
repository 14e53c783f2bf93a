package main

import (
	"context"
	"fmt"

	"github.com/lixenwraith/roller/audio"
	"github.com/lixenwraith/roller/network"
	"github.com/lixenwraith/roller/service"
	"github.com/lixenwraith/roller/storage"
)

// storeService flushes queued saves and closes the database on stop
type storeService struct{ async *storage.Async }

func (s storeService) Name() string                { return "store" }
func (s storeService) Dependencies() []string      { return nil }
func (s storeService) Start(context.Context) error { return nil }
func (s storeService) Stop() error                 { return s.async.Close() }

// audioService opens the output device; a missing device leaves the
// player silent rather than failing the start
type audioService struct{ player *audio.Player }

func (s audioService) Name() string           { return "audio" }
func (s audioService) Dependencies() []string { return nil }

func (s audioService) Start(context.Context) error {
	s.player.OpenSpeaker()
	return nil
}

func (s audioService) Stop() error {
	s.player.Close()
	return nil
}

// bridgeService listens for phone sensors; saves triggered by bridge input
// need the store running
type bridgeService struct{ bridge *network.Bridge }

func (s bridgeService) Name() string                { return "bridge" }
func (s bridgeService) Dependencies() []string      { return []string{"store"} }
func (s bridgeService) Start(context.Context) error { return s.bridge.Start() }
func (s bridgeService) Stop() error                 { return s.bridge.Close() }

// registerAll adds svcs in order and stops at the first rejection
func registerAll(hub *service.Hub, svcs []service.Service) error {
	for _, svc := range svcs {
		if err := hub.Register(svc); err != nil {
			return fmt.Errorf("register services: %w", err)
		}
	}
	return nil
}
