package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/matheusdanoite/phomemo-go/internal/phomemo"
)

// BLERadio implements Radio on top of the system Bluetooth adapter.
type BLERadio struct {
	adapter *bluetooth.Adapter
	log     *slog.Logger

	mu     sync.Mutex
	seen   map[string]bluetooth.Address // advertisement address -> parseable form
	active *bleConn
}

// NewBLERadio enables the default adapter and installs the disconnect
// handler that feeds Conn.Done.
func NewBLERadio(log *slog.Logger) (*BLERadio, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &BLERadio{
		adapter: bluetooth.DefaultAdapter,
		log:     log,
		seen:    make(map[string]bluetooth.Address),
	}
	if err := r.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}
	r.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		r.mu.Lock()
		conn := r.active
		r.mu.Unlock()
		if conn != nil && conn.addr == device.Address.String() {
			conn.drop()
		}
	})
	return r, nil
}

// Scan blocks until an advertisement passes the match filter or ctx is
// cancelled. First match wins.
func (r *BLERadio) Scan(ctx context.Context, match func(Advertisement) bool) (Advertisement, error) {
	var (
		found   Advertisement
		matched bool
	)

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-scanCtx.Done()
		r.adapter.StopScan()
	}()

	err := r.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		name := result.LocalName()
		if name == "" {
			return
		}
		adv := Advertisement{Name: name, Address: result.Address.String()}
		if !match(adv) {
			return
		}
		r.mu.Lock()
		if !matched {
			matched = true
			found = adv
			r.seen[adv.Address] = result.Address
		}
		r.mu.Unlock()
		cancel()
	})
	if matched {
		return found, nil
	}
	if ctx.Err() != nil {
		return Advertisement{}, ctx.Err()
	}
	if err != nil {
		return Advertisement{}, err
	}
	return Advertisement{}, errors.New("scan stopped without a match")
}

// Connect dials a printer found by a previous Scan on this radio.
func (r *BLERadio) Connect(ctx context.Context, adv Advertisement) (Conn, error) {
	r.mu.Lock()
	addr, ok := r.seen[adv.Address]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("address %s was not seen during scan", adv.Address)
	}

	dev, err := r.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, err
	}
	conn := &bleConn{
		dev:  dev,
		addr: adv.Address,
		log:  r.log.With("address", adv.Address),
		done: make(chan struct{}),
	}
	r.mu.Lock()
	r.active = conn
	r.mu.Unlock()
	return conn, nil
}

type bleConn struct {
	dev  bluetooth.Device
	addr string
	log  *slog.Logger

	write  bluetooth.DeviceCharacteristic
	notify bluetooth.DeviceCharacteristic

	dropOnce sync.Once
	done     chan struct{}
}

// ResolveEndpoints walks the printer's GATT tree for the FF00 service
// and its FF02 (write) and FF03 (notify) characteristics.
func (c *bleConn) ResolveEndpoints() error {
	svcUUID, err := bluetooth.ParseUUID(phomemo.ServiceUUID)
	if err != nil {
		return err
	}
	writeUUID, err := bluetooth.ParseUUID(phomemo.WriteCharUUID)
	if err != nil {
		return err
	}
	notifyUUID, err := bluetooth.ParseUUID(phomemo.NotifyCharUUID)
	if err != nil {
		return err
	}

	svcs, err := c.dev.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return fmt.Errorf("discover service %s: %w", phomemo.ServiceUUID, err)
	}
	if len(svcs) == 0 {
		return fmt.Errorf("printer exposes no %s service", phomemo.ServiceUUID)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{writeUUID, notifyUUID})
	if err != nil {
		return fmt.Errorf("discover characteristics: %w", err)
	}
	var haveWrite, haveNotify bool
	for _, ch := range chars {
		switch ch.UUID() {
		case writeUUID:
			c.write = ch
			haveWrite = true
		case notifyUUID:
			c.notify = ch
			haveNotify = true
		}
	}
	if !haveWrite || !haveNotify {
		return errors.New("printer is missing the write or notify characteristic")
	}
	return nil
}

func (c *bleConn) Write(data []byte) error {
	_, err := c.write.WriteWithoutResponse(data)
	return err
}

func (c *bleConn) Subscribe(fn func(data []byte)) error {
	return c.notify.EnableNotifications(func(buf []byte) {
		// The stack may reuse buf after the callback returns.
		data := make([]byte, len(buf))
		copy(data, buf)
		fn(data)
	})
}

func (c *bleConn) Done() <-chan struct{} {
	return c.done
}

func (c *bleConn) Close() error {
	c.drop()
	if err := c.dev.Disconnect(); err != nil {
		c.log.Debug("disconnect", "error", err)
		return err
	}
	return nil
}

func (c *bleConn) drop() {
	c.dropOnce.Do(func() { close(c.done) })
}
