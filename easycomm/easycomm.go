// Package easycomm drives rotators speaking EasyComm III.
//
// Protocol docs at https://github.com/Hamlib/Hamlib/blob/master/rotators/easycomm/easycomm.txt
package easycomm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/tarm/serial"
	"github.com/w1xm/linktrack/easycomm/internal/status"
	"github.com/w1xm/linktrack/rotator"
	"golang.org/x/sync/errgroup"
)

type Status = status.Status

// pollCommands are sent every PollInterval to refresh the status.
var pollCommands = []string{
	"AZ",
	"EL",
	"GS",
	"GE",
	"VE",
	"IP0",
	"IP1",
	"IP2",
	"IP7",
	"IP8",
	"CR10",
	"CR11",
}

const PollInterval = 1 * time.Second

// Rotator implements support for an EasyComm III rotator
type Rotator struct {
	statusCallback rotator.StatusCallback

	mu     sync.Mutex
	conn   io.ReadWriteCloser
	status Status
}

// ConnectTCP talks to a rotator behind a TCP bridge at addr, reconnecting
// until ctx is done.
func ConnectTCP(ctx context.Context, addr string, statusCallback rotator.StatusCallback) (*Rotator, error) {
	r := &Rotator{statusCallback: statusCallback}
	go r.reconnectLoop(ctx, addr, func(ctx context.Context) (io.ReadWriteCloser, error) {
		dialer := &net.Dialer{
			Timeout: time.Second,
		}
		return dialer.DialContext(ctx, "tcp", addr)
	})
	return r, nil
}

// ConnectSerial talks to a rotator on a local serial port.
func ConnectSerial(ctx context.Context, port string, baud int, statusCallback rotator.StatusCallback) (*Rotator, error) {
	if baud == 0 {
		baud = 9600
	}
	r := &Rotator{statusCallback: statusCallback}
	go r.reconnectLoop(ctx, port, func(context.Context) (io.ReadWriteCloser, error) {
		return serial.OpenPort(&serial.Config{
			Name:        port,
			Baud:        baud,
			ReadTimeout: 5 * PollInterval,
		})
	})
	return r, nil
}

// Attach runs the client on an already open connection, such as one end of
// a simulator pipe, until ctx is done or the connection fails.
func Attach(ctx context.Context, conn io.ReadWriteCloser, statusCallback rotator.StatusCallback) *Rotator {
	r := &Rotator{statusCallback: statusCallback, conn: conn}
	go func() {
		if err := r.watch(ctx); err != nil && ctx.Err() == nil {
			log.Printf("watching rotator: %v", err)
		}
	}()
	return r
}

func (r *Rotator) reconnectLoop(ctx context.Context, port string, open func(context.Context) (io.ReadWriteCloser, error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(1 * time.Second):
		}
		conn, err := open(ctx)
		if err != nil {
			log.Printf("opening %q: %v", port, err)
			continue
		}
		log.Printf("opened %q", port)
		r.mu.Lock()
		r.conn = conn
		r.mu.Unlock()
		if err := r.watch(ctx); err != nil {
			log.Printf("watching %q: %v", port, err)
		}
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
	}
}

func (r *Rotator) watch(ctx context.Context) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		// Close the connection when canceled so the reader unblocks.
		select {
		case <-ctx.Done():
		case <-done:
		}
		return conn.Close()
	})
	g.Go(func() error {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		scanner.Split(bufio.ScanWords)
		for scanner.Scan() {
			input := scanner.Text()
			if err := r.parseInput(input); err != nil {
				log.Printf("parsing %q: %v", input, err)
				continue
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading port: %w", err)
		}
		return io.EOF
	})
	g.Go(func() error {
		for {
			for _, cmd := range pollCommands {
				if err := r.send(cmd); err != nil {
					return err
				}
			}
			select {
			case <-ctx.Done():
				return nil
			case <-done:
				return nil
			case <-time.After(PollInterval):
			}
		}
	})
	return g.Wait()
}

func (r *Rotator) parseInput(input string) error {
	r.mu.Lock()
	old := r.status
	err := r.status.Parse(input)
	new := r.status
	r.mu.Unlock()
	if new != old && r.statusCallback != nil {
		r.statusCallback(new)
	}
	return err
}

// Status returns the last reported status.
func (r *Rotator) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Rotator) send(cmd string) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("sending %q: not connected", cmd)
	}
	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return err
	}
	return nil
}

func (r *Rotator) command(cmd string) {
	if err := r.send(cmd); err != nil {
		log.Printf("rotator: %v", err)
	}
}

func (r *Rotator) Stop() {
	r.command("SA SE")
}

func (r *Rotator) StopAzimuth() {
	r.command("SA")
}

func (r *Rotator) StopElevation() {
	r.command("SE")
}

func (r *Rotator) SetAzimuthPosition(angle float64) {
	r.command(fmt.Sprintf("AZ%03.1f", angle))
}

func (r *Rotator) SetElevationPosition(angle float64) {
	r.command(fmt.Sprintf("EL%03.1f", angle))
}

// SetAzimuthVelocity commands a velocity in degrees per second; the
// protocol counts in millidegrees.
func (r *Rotator) SetAzimuthVelocity(angle float64) {
	dir := "R"
	if angle < 0 {
		angle = -angle
		dir = "L"
	}
	r.command(fmt.Sprintf("V%s%03.0f", dir, angle*1000))
}

func (r *Rotator) SetElevationVelocity(angle float64) {
	dir := "U"
	if angle < 0 {
		angle = -angle
		dir = "D"
	}
	r.command(fmt.Sprintf("V%s%03.0f", dir, angle*1000))
}
