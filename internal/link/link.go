// Package link maintains the Bluetooth session with a printer: scan,
// connect, endpoint resolution, heartbeat and automatic reconnection.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/matheusdanoite/phomemo-go/internal/phomemo"
)

// State is the link's lifecycle phase. Transitions are driven by Run
// and by BeginJob/EndJob; everything else only observes.
type State int

const (
	Disconnected State = iota
	Scanning
	Connecting
	ServiceDiscovery
	Ready
	Sending
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Scanning:
		return "scanning"
	case Connecting:
		return "connecting"
	case ServiceDiscovery:
		return "service-discovery"
	case Ready:
		return "ready"
	case Sending:
		return "sending"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrUnavailable is returned by Send when no usable connection exists.
var ErrUnavailable = errors.New("printer link not ready")

// Advertisement identifies a printer seen during discovery.
type Advertisement struct {
	Name    string
	Address string
}

// Conn is one established printer connection. Implementations resolve
// the write and notify endpoints, push raw packets, and surface the
// peer dropping via Done.
type Conn interface {
	ResolveEndpoints() error
	Write(data []byte) error
	Subscribe(fn func(data []byte)) error
	Done() <-chan struct{}
	Close() error
}

// Radio abstracts the adapter so tests can drive the state machine
// without hardware.
type Radio interface {
	Scan(ctx context.Context, match func(Advertisement) bool) (Advertisement, error)
	Connect(ctx context.Context, adv Advertisement) (Conn, error)
}

// Link supervises one printer connection at a time. All exported
// methods are safe for concurrent use.
type Link struct {
	radio     Radio
	log       *slog.Logger
	extra     []string // additional advertised names to accept
	heartbeat time.Duration
	retryBase time.Duration

	mu          sync.Mutex
	state       State
	conn        Conn
	status      phomemo.Status
	statusKnown bool
	subs        []chan State
}

// New builds an idle link. extraNames widens the built-in product name
// filter; a zero heartbeat selects the default interval.
func New(radio Radio, log *slog.Logger, extraNames []string, heartbeat time.Duration) *Link {
	if log == nil {
		log = slog.Default()
	}
	if heartbeat <= 0 {
		heartbeat = phomemo.HeartbeatInterval
	}
	return &Link{
		radio:     radio,
		log:       log,
		extra:     extraNames,
		heartbeat: heartbeat,
		retryBase: time.Second,
		state:     Disconnected,
	}
}

// Run drives the link until ctx is cancelled: scan, connect, resolve,
// then hold the session with a heartbeat. Losing an established
// connection passes through Disconnected; a failed bring-up attempt
// retries straight from Scanning. Exponential backoff either way.
func (l *Link) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.retryBase
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry forever

	for {
		wasReady, err := l.session(ctx, bo)
		if ctx.Err() != nil {
			l.setState(Disconnected)
			return ctx.Err()
		}

		wait := bo.NextBackOff()
		if wasReady {
			l.setState(Disconnected)
			l.log.Warn("printer link lost", "error", err, "retry_in", wait)
		} else {
			l.setState(Scanning)
			l.log.Warn("printer bring-up failed", "error", err, "retry_in", wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// session returns whether the connection reached Ready before failing.
func (l *Link) session(ctx context.Context, bo *backoff.ExponentialBackOff) (bool, error) {
	l.setState(Scanning)
	adv, err := l.radio.Scan(ctx, func(a Advertisement) bool {
		return l.accepts(a.Name)
	})
	if err != nil {
		return false, fmt.Errorf("scan: %w", err)
	}
	l.log.Info("printer found", "name", adv.Name, "address", adv.Address)

	l.setState(Connecting)
	conn, err := l.radio.Connect(ctx, adv)
	if err != nil {
		return false, fmt.Errorf("connect %s: %w", adv.Address, err)
	}

	l.setState(ServiceDiscovery)
	if err := conn.ResolveEndpoints(); err != nil {
		conn.Close()
		return false, fmt.Errorf("resolve endpoints: %w", err)
	}
	if err := conn.Subscribe(l.handleNotification); err != nil {
		conn.Close()
		return false, fmt.Errorf("subscribe: %w", err)
	}
	if err := conn.Write(phomemo.Init()); err != nil {
		conn.Close()
		return false, fmt.Errorf("initialize: %w", err)
	}
	if err := conn.Write(phomemo.StatusQuery()); err != nil {
		conn.Close()
		return false, fmt.Errorf("initial status query: %w", err)
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.setState(Ready)
	l.log.Info("printer ready", "name", adv.Name)
	bo.Reset()

	defer func() {
		l.mu.Lock()
		l.conn = nil
		l.statusKnown = false
		l.mu.Unlock()
	}()

	ticker := time.NewTicker(l.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return true, ctx.Err()
		case <-conn.Done():
			return true, errors.New("connection dropped")
		case <-ticker.C:
			// A running job already exercises the channel; an extra
			// probe would only race with frame pacing. Skip, don't
			// postpone.
			if l.State() == Sending {
				continue
			}
			if err := l.Send(phomemo.StatusQuery()); err != nil {
				conn.Close()
				return true, fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}

func (l *Link) accepts(name string) bool {
	if phomemo.MatchName(name) {
		return true
	}
	for _, want := range l.extra {
		if want != "" && name == want {
			return true
		}
	}
	return false
}

func (l *Link) handleNotification(data []byte) {
	st, err := phomemo.DecodeStatus(data)
	if err != nil {
		l.log.Debug("ignoring notification", "data", fmt.Sprintf("% X", data))
		return
	}
	l.mu.Lock()
	l.status = st
	l.statusKnown = true
	l.mu.Unlock()
	if p := st.Problem(); p != "" {
		l.log.Warn("printer reports problem", "problem", p)
	} else {
		l.log.Debug("printer status", "lid_open", st.LidOpen, "paper_present", st.PaperPresent)
	}
}

// Send writes one packet to the printer. Callers outside a job should
// only do this for short control sequences.
func (l *Link) Send(data []byte) error {
	l.mu.Lock()
	conn, st := l.conn, l.state
	l.mu.Unlock()
	if conn == nil || (st != Ready && st != Sending) {
		return ErrUnavailable
	}
	return conn.Write(data)
}

// BeginJob moves the link to Sending for the duration of one print
// job. It fails unless the link is Ready, which also serializes jobs.
func (l *Link) BeginJob() error {
	l.mu.Lock()
	if l.state != Ready || l.conn == nil {
		l.mu.Unlock()
		return ErrUnavailable
	}
	l.state = Sending
	subs := append([]chan State(nil), l.subs...)
	l.mu.Unlock()
	publish(subs, Sending)
	return nil
}

// EndJob returns the link to Ready. A drop during the job wins: if the
// session already moved on, EndJob leaves the state alone.
func (l *Link) EndJob() {
	l.mu.Lock()
	if l.state != Sending {
		l.mu.Unlock()
		return
	}
	l.state = Ready
	subs := append([]chan State(nil), l.subs...)
	l.mu.Unlock()
	publish(subs, Ready)
}

// State returns the current lifecycle phase.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Status returns the last decoded printer status and whether one has
// been received on the current connection.
func (l *Link) Status() (phomemo.Status, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status, l.statusKnown
}

// StateChanges registers a buffered channel receiving every state
// transition. Slow consumers miss updates rather than stall the link.
func (l *Link) StateChanges() <-chan State {
	ch := make(chan State, 8)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	if l.state == s {
		l.mu.Unlock()
		return
	}
	l.state = s
	subs := append([]chan State(nil), l.subs...)
	l.mu.Unlock()
	publish(subs, s)
}

func publish(subs []chan State, s State) {
	for _, ch := range subs {
		select {
		case ch <- s:
		default:
		}
	}
}
