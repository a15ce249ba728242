package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/w1xm/linktrack/signal"
)

func init() {
	SetLogger(nil)
}

func TestLatest(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewLatest(time.Second)
	l.now = func() time.Time { return now }

	if !l.Poll().Empty() {
		t.Errorf("Poll before any sample not empty")
	}
	if got := l.Age(); got != -1 {
		t.Errorf("Age before any sample = %v, want -1", got)
	}
	v := signal.Of(-60, 30)
	l.Set(v)
	now = now.Add(500 * time.Millisecond)
	if got := l.Poll(); !got.Equal(v) {
		t.Errorf("Poll = %v, want %v", got, v)
	}
	if got := l.Poll(); !got.Equal(v) {
		t.Errorf("second Poll = %v, want %v", got, v)
	}
	now = now.Add(time.Second)
	if got := l.Poll(); !got.Empty() {
		t.Errorf("stale Poll = %v, want empty", got)
	}
}

func TestDecode(t *testing.T) {
	for _, test := range []struct {
		name    string
		raw     map[string]string
		want    signal.Vector
		wantErr bool
	}{
		{"empty", nil, signal.Lost, false},
		{"plain", map[string]string{"signal-strength": "-65", "signal-to-noise": "30"}, signal.Of(-65, 30), false},
		{"routeros", map[string]string{
			"=signal-strength-ch0=": "-67",
			"=signal-strength-ch1=": "-70",
			"=signal-to-noise=":     "28",
			"=tx-rate=":             "54Mbps",
		}, signal.Of(-67, 28), false},
		{"plain wins", map[string]string{
			"=signal-strength=":     "-65dBm@6Mbps",
			"=signal-strength-ch0=": "-67",
			"=signal-to-noise=":     "28",
		}, signal.Of(-65, 28), false},
		{"underscores", map[string]string{"Signal_Strength": "-50.5", "signal_to_noise": "44"}, signal.Of(-50.5, 44), false},
		{"missing metric", map[string]string{"signal-strength": "-65"}, signal.Lost, true},
		{"no metrics", map[string]string{"uptime": "1h"}, signal.Lost, true},
		{"garbage level", map[string]string{"signal-strength": "strong", "signal-to-noise": "1"}, signal.Lost, true},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := Decode(test.raw)
			if (err != nil) != test.wantErr {
				t.Fatalf("Decode error = %v, wantErr %v", err, test.wantErr)
			}
			if !got.Equal(test.want) {
				t.Errorf("Decode = %v, want %v", got, test.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	for _, test := range []struct {
		payload string
		want    signal.Vector
		wantErr bool
	}{
		{`{}`, signal.Lost, false},
		{`{"signal-strength": -62, "signal-to-noise": 31}`, signal.Of(-62, 31), false},
		{`{"=signal-strength-ch0=": "-62", "=signal-to-noise=": "31"}`, signal.Of(-62, 31), false},
		{`{"signal-strength": true}`, signal.Lost, true},
		{`[1, 2]`, signal.Lost, true},
	} {
		t.Run(test.payload, func(t *testing.T) {
			got, err := DecodeJSON([]byte(test.payload))
			if (err != nil) != test.wantErr {
				t.Fatalf("DecodeJSON error = %v, wantErr %v", err, test.wantErr)
			}
			if !got.Equal(test.want) {
				t.Errorf("DecodeJSON = %v, want %v", got, test.want)
			}
		})
	}
}

func TestBeam(t *testing.T) {
	var az, el float64
	b := NewBeam(func() (float64, float64) { return az, el }, 20, 0, 10, 1)
	b.Jitter = 0

	az, el = 20, 0
	if got, want := b.Poll(), signal.Of(-40, 55); !got.Equal(want) {
		t.Errorf("on boresight: got %v, want %v", got, want)
	}
	az = 25
	if got, want := b.Poll(), signal.Of(-43, 52); !got.Equal(want) {
		t.Errorf("half beamwidth off: got %v, want %v", got, want)
	}
	az = 380
	if got, want := b.Poll(), signal.Of(-40, 55); !got.Equal(want) {
		t.Errorf("wrapped azimuth: got %v, want %v", got, want)
	}
	az = 50
	if got := b.Poll(); !got.Empty() {
		t.Errorf("far off the lobe: got %v, want empty", got)
	}
}

func TestBeamJitter(t *testing.T) {
	b := NewBeam(func() (float64, float64) { return 20, 0 }, 20, 0, 10, 7)
	b.Jitter = 1
	var differ bool
	first := b.Poll()
	for i := 0; i < 50; i++ {
		v := b.Poll()
		if v.Empty() {
			t.Fatalf("lost link on boresight")
		}
		if d := v.Get(signal.SignalStrength) + 40; d < -6 || d > 6 {
			t.Errorf("level %v too far from peak", v)
		}
		differ = differ || !v.Equal(first)
	}
	if !differ {
		t.Errorf("jittered readings never changed")
	}
}

type fakeRegisters struct {
	bs  []byte
	err error
}

func (f fakeRegisters) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	if address != 4 || quantity != signal.NumMetrics {
		return nil, errors.New("unexpected read")
	}
	return f.bs, f.err
}

func TestModbusPoll(t *testing.T) {
	s := NewModbusSource("", 0, "", "", 1, 4, time.Second)
	for _, test := range []struct {
		name    string
		regs    fakeRegisters
		want    signal.Vector
		wantErr bool
	}{
		{"levels", fakeRegisters{bs: []byte{0xfd, 0x76, 0x01, 0x2c}}, signal.Of(-65, 30), false},
		{"no link", fakeRegisters{bs: []byte{0x80, 0x00, 0x00, 0x00}}, signal.Lost, false},
		{"short", fakeRegisters{bs: []byte{0x00, 0x01}}, signal.Lost, true},
		{"error", fakeRegisters{err: errors.New("timeout")}, signal.Lost, true},
	} {
		t.Run(test.name, func(t *testing.T) {
			s.Set(signal.Of(1, 1))
			err := s.poll(test.regs)
			if (err != nil) != test.wantErr {
				t.Fatalf("poll error = %v, wantErr %v", err, test.wantErr)
			}
			if test.wantErr && test.name == "short" {
				return
			}
			if got := s.Poll(); !got.Equal(test.want) {
				t.Errorf("Poll = %v, want %v", got, test.want)
			}
		})
	}
}

type fakeMessage struct {
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return "link/peer" }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

func TestMQTTHandle(t *testing.T) {
	s := NewMQTTSource("tcp://localhost:1883", "link/peer", time.Second)
	var got []signal.Vector
	for _, payload := range []string{
		`{"signal-strength": -62, "signal-to-noise": 31}`,
		`not json`,
		`{}`,
	} {
		s.handle(nil, fakeMessage{payload})
		got = append(got, s.Poll())
	}
	want := []signal.Vector{signal.Of(-62, 31), signal.Of(-62, 31), signal.Lost}
	if diff := cmp.Diff(want, got, cmp.Comparer(signal.Vector.Equal)); diff != "" {
		t.Errorf("unexpected readings: got(-)/want(+):\n%s", diff)
	}
}
