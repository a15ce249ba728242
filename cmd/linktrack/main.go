// Command linktrack points a directional antenna at a peer radio and keeps
// it aligned using the link quality the radio reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/w1xm/linktrack/easycomm"
	"github.com/w1xm/linktrack/easycomm/simulator"
	"github.com/w1xm/linktrack/rotator"
	"github.com/w1xm/linktrack/telemetry"
	"github.com/w1xm/linktrack/track"
	"golang.org/x/sync/errgroup"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

var (
	addr         = flag.String("addr", "127.0.0.1:8502", "address to listen on")
	rotctldAddr  = flag.String("rotctld_addr", "", "address to listen for rotctld connections on")
	staticDir    = flag.String("static_dir", "", "directory containing static files")
	tickInterval = flag.Duration("tick", 100*time.Millisecond, "tracking loop period")
	initialMode  = flag.String("mode", "sector_azim", "mode to start in")

	rotatorKind   = flag.String("rotator", "sim", "rotator backend: sim, tcp or serial")
	rotatorAddr   = flag.String("rotator_addr", "", "EasyComm rotator TCP address")
	rotatorSerial = flag.String("rotator_serial", "", "EasyComm rotator serial port name")
	rotatorBaud   = flag.Int("rotator_baud", 9600, "EasyComm rotator baud rate")
	azMin         = flag.Float64("az_min", -180, "azimuth hard limit")
	azMax         = flag.Float64("az_max", 180, "azimuth hard limit")
	elMin         = flag.Float64("el_min", 0, "elevation hard limit")
	elMax         = flag.Float64("el_max", 90, "elevation hard limit")
	azOffset      = flag.Float64("az_offset", 0, "degrees added to reported azimuth")
	elOffset      = flag.Float64("el_offset", 0, "degrees added to reported elevation")

	telemetryKind  = flag.String("telemetry", "sim", "telemetry backend: sim, mqtt or modbus")
	maxAge         = flag.Duration("max_age", telemetry.DefaultMaxAge, "age after which a link sample counts as lost")
	mqttBroker     = flag.String("mqtt_broker", envOr("LINKTRACK_MQTT_BROKER", "tcp://localhost:1883"), "MQTT broker URL")
	mqttTopic      = flag.String("mqtt_topic", "linktrack/peer", "MQTT topic carrying link reports")
	modbusSerial   = flag.String("modbus_serial", "", "link meter serial port name")
	modbusBaud     = flag.Int("modbus_baud", 19200, "link meter baud rate")
	modbusURL      = flag.String("modbus_url", "", "modbus proxy URL, instead of a local port")
	modbusPassword = flag.String("modbus_password", os.Getenv("LINKTRACK_MODBUS_PASSWORD"), "modbus proxy password")
	modbusSlave    = flag.Int("modbus_slave", 1, "link meter slave ID")
	modbusAddress  = flag.Int("modbus_address", 0, "first link meter register")
	simPeerAz      = flag.Float64("sim_peer_az", 40, "simulated peer azimuth")
	simPeerEl      = flag.Float64("sim_peer_el", 12, "simulated peer elevation")

	beamwidth       = flag.Float64("beamwidth", 5, "antenna beamwidth in degrees")
	levelDifference = flag.Float64("level_difference", 10, "drop in dB that ends a search sweep")
	lossTicks       = flag.Int("loss_ticks", 5, "empty readings tolerated while tracking")
	filterLength    = flag.Int("filter_length", 20, "readings averaged by the plateau search")
	minStep         = flag.Float64("min_step", 0.5, "smallest angle step recorded in a sweep")
	sweepAzMin      = flag.Float64("sweep_az_min", 0, "azimuth sweep limit, 0 for the hard limit")
	sweepAzMax      = flag.Float64("sweep_az_max", 0, "azimuth sweep limit, 0 for the hard limit")
	sweepElMin      = flag.Float64("sweep_el_min", 0, "elevation sweep limit, 0 for the hard limit")
	sweepElMax      = flag.Float64("sweep_el_max", 0, "elevation sweep limit, 0 for the hard limit")
	refine          = flag.Bool("refine", false, "run a plateau search before tracking")
	tracker         = flag.String("tracker", "escort", "tracking strategy: escort or circle")
	escortRest      = flag.Int("escort_rest", 0, "ticks to dwell between escort excursions")
	circleRadius    = flag.Float64("circle_radius", 2.5, "circle tracker radius in degrees")
	circlePoints    = flag.Int("circle_points", 36, "circle tracker samples per revolution")
)

func config() (track.Config, error) {
	t, err := track.ParseTracker(*tracker)
	if err != nil {
		return track.Config{}, err
	}
	return track.Config{
		Beamwidth:       *beamwidth,
		LevelDifference: *levelDifference,
		LossTicks:       *lossTicks,
		FilterLength:    *filterLength,
		MinStep:         *minStep,
		Azimuth:         track.Bounds{Min: *sweepAzMin, Max: *sweepAzMax},
		Elevation:       track.Bounds{Min: *sweepElMin, Max: *sweepElMax},
		Refine:          *refine,
		Tracker:         t,
		EscortRest:      *escortRest,
		CircleRadius:    *circleRadius,
		CirclePoints:    *circlePoints,
	}, nil
}

// connectRotator starts the rotator backend. Status reports pass through
// the mount offset before reaching cb.
func connectRotator(ctx context.Context, g *errgroup.Group, off *rotator.Offset, cb rotator.StatusCallback) (position func() (az, el float64), err error) {
	cb = off.Callback(cb)
	switch *rotatorKind {
	case "sim":
		sim, conn := simulator.New(0, 0)
		g.Go(func() error {
			return sim.Run(ctx)
		})
		off.SetRotator(easycomm.Attach(ctx, conn, cb))
		return sim.Position, nil
	case "tcp":
		r, err := easycomm.ConnectTCP(ctx, *rotatorAddr, cb)
		if err != nil {
			return nil, err
		}
		off.SetRotator(r)
	case "serial":
		r, err := easycomm.ConnectSerial(ctx, *rotatorSerial, *rotatorBaud, cb)
		if err != nil {
			return nil, err
		}
		off.SetRotator(r)
	default:
		return nil, fmt.Errorf("unknown rotator %q", *rotatorKind)
	}
	return nil, nil
}

func connectTelemetry(ctx context.Context, position func() (az, el float64)) (track.TelemetrySource, error) {
	switch *telemetryKind {
	case "sim":
		if position == nil {
			return nil, fmt.Errorf("simulated telemetry needs the simulated rotator")
		}
		return telemetry.NewBeam(position, *simPeerAz, *simPeerEl, *beamwidth, uint64(time.Now().UnixNano())), nil
	case "mqtt":
		s := telemetry.NewMQTTSource(*mqttBroker, *mqttTopic, *maxAge)
		return s, s.Connect(ctx)
	case "modbus":
		s := telemetry.NewModbusSource(*modbusSerial, *modbusBaud, *modbusURL, *modbusPassword, byte(*modbusSlave), uint16(*modbusAddress), *maxAge)
		return s, s.Connect(ctx)
	}
	return nil, fmt.Errorf("unknown telemetry %q", *telemetryKind)
}

func main() {
	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config()
	if err != nil {
		log.Fatal(err)
	}
	mode, err := track.ParseMode(*initialMode)
	if err != nil {
		log.Fatal(err)
	}

	g, ctx := errgroup.WithContext(ctx)

	off := rotator.NewOffset(nil, *azOffset, *elOffset)
	az := rotator.Azimuth(off, *azMin, *azMax)
	el := rotator.Elevation(off, *elMin, *elMax)
	server := NewServer(off, az, el)

	position, err := connectRotator(ctx, g, off, rotator.Fanout(az.Update, el.Update, server.rotatorCallback))
	if err != nil {
		log.Fatal(err)
	}
	src, err := connectTelemetry(ctx, position)
	if err != nil {
		log.Fatal(err)
	}
	c, err := track.New(cfg, az, el, src)
	if err != nil {
		log.Fatal(err)
	}
	server.c = c

	if *rotctldAddr != "" {
		if err := server.ListenRotctld(ctx, *rotctldAddr); err != nil {
			log.Fatal(err)
		}
	}

	r := mux.NewRouter()
	r.Handle("/api/status", http.HandlerFunc(server.StatusHandler))
	r.Handle("/api/ws", http.HandlerFunc(server.StatusSocketHandler))
	if *staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(*staticDir)))
	}
	srv := &http.Server{
		Handler:      r,
		Addr:         *addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	g.Go(func() error {
		<-ctx.Done()
		return srv.Close()
	})
	g.Go(func() error {
		log.Printf("Listening on %v", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return server.Run(ctx, mode, *tickInterval)
	})
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatal(err)
	}
}
