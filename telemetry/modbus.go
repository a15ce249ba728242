package telemetry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/w1xm/linktrack/internal/modbus"
	"github.com/w1xm/linktrack/signal"
)

// NoLink is the register value a link meter reports without a peer.
const NoLink = math.MinInt16

type registerReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// ModbusSource polls a link meter holding one input register per metric,
// in Metrics order from Address, each a signed level in tenths of a dB.
type ModbusSource struct {
	*Latest

	// Address of the first metric register.
	Address uint16

	client modbus.Client
}

// NewModbusSource reads a meter on a local serial port, or through the
// modbus proxy at url when url is set.
func NewModbusSource(port string, baud int, url, password string, slaveID byte, address uint16, maxAge time.Duration) *ModbusSource {
	s := &ModbusSource{
		Latest:  NewLatest(maxAge),
		Address: address,
	}
	s.client = modbus.Client{
		Port:         port,
		BaudRate:     baud,
		URL:          url,
		Password:     password,
		SlaveId:      slaveID,
		PollInterval: 100 * time.Millisecond,
	}
	s.client.Poll = func() error {
		return s.poll(&s.client)
	}
	return s
}

func (s *ModbusSource) Connect(ctx context.Context) error {
	return s.client.Connect(ctx)
}

func (s *ModbusSource) poll(r registerReader) error {
	bs, err := r.ReadInputRegisters(s.Address, signal.NumMetrics)
	if err != nil {
		s.Set(signal.Lost)
		return fmt.Errorf("reading link registers: %w", err)
	}
	v, err := decodeRegisters(bs)
	if err != nil {
		return err
	}
	s.Set(v)
	return nil
}

func decodeRegisters(bs []byte) (signal.Vector, error) {
	if len(bs) < 2*signal.NumMetrics {
		return signal.Lost, fmt.Errorf("short register read: %d bytes", len(bs))
	}
	regs := modbus.Int16s(bs)
	values := make([]float64, signal.NumMetrics)
	for i, m := range signal.Metrics {
		if regs[i] == NoLink {
			return signal.Lost, nil
		}
		values[m] = float64(regs[i]) / 10
	}
	return signal.Of(values...), nil
}
