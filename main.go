// Command layerboard hosts or joins a shared, layered raster canvas
// on the local network. The host relays drawing traffic between
// participants and replays the room history to late joiners; every
// participant's canvas converges to the same pixels.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"

	"layerboard/internal/brush"
	"layerboard/internal/config"
	"layerboard/internal/engine"
	"layerboard/internal/export"
	lnet "layerboard/internal/net"
	"layerboard/internal/protocol"
)

const urlScheme = "layerboard://"

const usage = `layerboard shares a layered raster canvas between participants on the local network.

Usage:
  layerboard host [--config=<path>]
  layerboard join <address> [--config=<path>]
  layerboard discover
  layerboard demo [--config=<path>]
  layerboard -h | --help

Options:
  -c --config=<path>  YAML configuration file.
  -h --help           Show this help.`

func main() {
	_ = flag.Set("logtostderr", "true")
	// glog flags (-v, -log_dir, ...) come first on the command line;
	// whatever remains is the command.
	flag.Parse()

	opts, err := parseCommand(flag.Args())
	if err != nil {
		glog.Exitf("parse arguments: %v", err)
	}

	cfgPath, _ := opts.String("--config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		glog.Exitf("load config: %v", err)
	}

	switch {
	case opts["host"].(bool):
		runHost(cfg)
	case opts["join"].(bool):
		addr, _ := opts.String("<address>")
		runJoin(addr, cfg)
	case opts["discover"].(bool):
		runDiscover()
	case opts["demo"].(bool):
		runDemo(cfg)
	}
}

func parseCommand(argv []string) (docopt.Opts, error) {
	return docopt.ParseArgs(usage, argv, "")
}

func runHost(cfg config.Config) {
	eng := engine.New(cfg.Canvas.Width, cfg.Canvas.Height)
	room := protocol.NewRoomState(cfg.Room.Name)
	hub := lnet.NewHub()

	// The host's own intents go into the room log and out to every
	// peer, exactly like relayed client traffic.
	eng.OnSend = func(env protocol.Envelope) {
		env.From = "host"
		recordEnvelope(room, "host", env)
		if env.Kind == protocol.KindDrawingSettings {
			return
		}
		data, err := json.Marshal(env)
		if err != nil {
			glog.Errorf("marshal envelope: %v", err)
			return
		}
		hub.Broadcast(data, "")
	}

	go func() {
		if err := hub.ListenAndServe(cfg.Room.Port); err != nil {
			glog.Exitf("room hub: %v", err)
		}
	}()

	if cfg.Room.Discovery {
		server, err := lnet.Advertise(cfg.Room.Name, cfg.Room.Port)
		if err != nil {
			glog.Warningf("mDNS advertise failed: %v", err)
		} else {
			defer server.Shutdown()
		}
	}

	if ip, err := lnet.OutgoingIP(); err == nil {
		fmt.Printf("Share this link: %s%s:%d\n", urlScheme, ip, cfg.Room.Port)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	// All engine and room mutation happens on this one goroutine, in
	// strict receipt order.
	for {
		select {
		case ev := <-hub.Events():
			hostEvent(eng, room, hub, ev)
		case <-sig:
			glog.Infof("shutting down, exporting canvas")
			exportCanvas(eng, cfg)
			return
		}
	}
}

func hostEvent(eng *engine.Engine, room *protocol.RoomState, hub *lnet.Hub, ev lnet.Event) {
	switch ev.Kind {
	case lnet.EventJoin:
		sendBulkSync(room, hub, ev.Peer)
	case lnet.EventLeave:
		eng.PeerDisconnected(ev.Peer)
		room.DropPeer(ev.Peer)
	case lnet.EventMessage:
		var env protocol.Envelope
		if err := json.Unmarshal(ev.Data, &env); err != nil {
			glog.Warningf("dropping malformed frame from %s: %v", ev.Peer, err)
			return
		}
		// The transport identity is authoritative, never the frame.
		env.From = ev.Peer

		if env.Kind == protocol.KindDrawingSettings {
			var s protocol.Setting
			if err := json.Unmarshal(env.Data, &s); err != nil {
				glog.Warningf("dropping malformed settings from %s: %v", ev.Peer, err)
				return
			}
			room.ApplySetting(ev.Peer, s)
			return
		}

		env = defaultFromShadow(room, env)
		eng.HandleEnvelope(env)
		recordEnvelope(room, ev.Peer, env)

		data, err := json.Marshal(env)
		if err != nil {
			glog.Errorf("marshal relay envelope: %v", err)
			return
		}
		hub.Broadcast(data, ev.Peer)
	}
}

// defaultFromShadow fills brush fields omitted on a start message from
// the sender's settings shadow before the message is applied, logged,
// and relayed.
func defaultFromShadow(room *protocol.RoomState, env protocol.Envelope) protocol.Envelope {
	if env.Kind != protocol.KindDrawing {
		return env
	}
	var d protocol.Drawing
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return env
	}
	if d.Type != protocol.DrawStart {
		return env
	}
	filled := room.DefaultStart(env.From, d)
	data, err := json.Marshal(filled)
	if err != nil {
		return env
	}
	env.Data = data
	return env
}

func recordEnvelope(room *protocol.RoomState, peer string, env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindDrawing:
		var d protocol.Drawing
		if err := json.Unmarshal(env.Data, &d); err == nil {
			room.AppendDrawing(d)
		}
	case protocol.KindLayerAction:
		var a protocol.LayerAction
		if err := json.Unmarshal(env.Data, &a); err == nil {
			room.AppendLayerAction(a)
		}
	case protocol.KindDrawingSettings:
		var s protocol.Setting
		if err := json.Unmarshal(env.Data, &s); err == nil {
			room.ApplySetting(peer, s)
		}
	}
}

func sendBulkSync(room *protocol.RoomState, hub *lnet.Hub, peer string) {
	envs, err := room.SyncEnvelopes()
	if err != nil {
		glog.Errorf("marshal bulk sync: %v", err)
		return
	}
	for _, env := range envs {
		data, err := json.Marshal(env)
		if err != nil {
			glog.Errorf("marshal bulk sync envelope: %v", err)
			return
		}
		if err := hub.SendTo(peer, data); err != nil {
			glog.Warningf("bulk sync to %s failed: %v", peer, err)
			return
		}
	}
	glog.Infof("synced %d drawings and %d layer actions to %s",
		room.DrawingCount(), room.LayerActionCount(), peer)
}

func runJoin(address string, cfg config.Config) {
	address = strings.TrimPrefix(address, urlScheme)
	address = strings.TrimSuffix(address, "/")

	client, err := lnet.Dial(address)
	if err != nil {
		glog.Exitf("join %s: %v", address, err)
	}
	defer client.Close()
	glog.Infof("joined room at %s", address)

	eng := engine.New(cfg.Canvas.Width, cfg.Canvas.Height)
	eng.OnSend = func(env protocol.Envelope) {
		data, err := json.Marshal(env)
		if err != nil {
			glog.Errorf("marshal envelope: %v", err)
			return
		}
		if err := client.Send(data); err != nil {
			glog.Warningf("send failed: %v", err)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev, ok := <-client.Events():
			if !ok || ev.Kind == lnet.EventLeave {
				eng.Disconnected()
				exportCanvas(eng, cfg)
				return
			}
			var env protocol.Envelope
			if err := json.Unmarshal(ev.Data, &env); err != nil {
				glog.Warningf("dropping malformed frame: %v", err)
				continue
			}
			eng.HandleEnvelope(env)
		case <-sig:
			exportCanvas(eng, cfg)
			return
		}
	}
}

func runDiscover() {
	fmt.Println("Browsing for rooms...")
	err := lnet.Browse(func(addr, room string) {
		fmt.Printf("  %s%s  (%s)\n", urlScheme, addr, room)
	})
	if err != nil {
		glog.Exitf("browse: %v", err)
	}
	time.Sleep(time.Second)
}

// runDemo exercises the whole pipeline without a second participant:
// a few scripted strokes across two layers, then an export.
func runDemo(cfg config.Config) {
	eng := engine.New(cfg.Canvas.Width, cfg.Canvas.Height)

	eng.SetColor("#c0392b")
	eng.SetSize(6)
	eng.SetStabilizer(8)
	eng.StrokeStart(120, 400)
	for x := 130; x <= 900; x += 10 {
		y := 400 + 120*math.Sin(float64(x)/90)
		eng.StrokeMove(float64(x), y)
	}
	eng.StrokeEnd()

	idx := eng.AddLayer("Highlights")
	eng.SelectLayer(idx)
	eng.SetBrush(brush.Marker)
	eng.SetColor("#f1c40f")
	eng.StrokeStart(150, 250)
	for x := 160; x <= 850; x += 14 {
		eng.StrokeMove(float64(x), 250)
	}
	eng.StrokeEnd()

	eng.SetBrush(brush.Airbrush)
	eng.SetColor("#2980b9")
	eng.SetSize(12)
	eng.StrokeStart(300, 600)
	for x := 310; x <= 700; x += 12 {
		eng.StrokeMove(float64(x), 600)
	}
	eng.StrokeEnd()

	exportCanvas(eng, cfg)
	fmt.Printf("Demo canvas written to %s and %s\n", cfg.Export.PNG, cfg.Export.PDF)
}

func exportCanvas(eng *engine.Engine, cfg config.Config) {
	composite := eng.Layers().Composite()
	if cfg.Export.PNG != "" {
		if err := export.PNG(cfg.Export.PNG, composite); err != nil {
			glog.Errorf("export PNG: %v", err)
		}
	}
	if cfg.Export.PDF != "" {
		if err := export.PDF(cfg.Export.PDF, composite); err != nil {
			glog.Errorf("export PDF: %v", err)
		}
	}
}
