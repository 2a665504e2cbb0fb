package capture

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"signbridge/internal/logging"
)

// HotplugMonitor listens for udev video4linux removal events and reports the
// configured camera disappearing, so a live session ends instead of polling a
// dead device.
type HotplugMonitor struct {
	logger  *slog.Logger
	device  string
	aliases map[string]struct{}
	onGone  func()

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewHotplugMonitor returns nil when no device is configured.
func NewHotplugMonitor(device string, logger *slog.Logger, onGone func()) *HotplugMonitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	aliases := map[string]struct{}{device: {}}
	if resolved, err := filepath.EvalSymlinks(device); err == nil {
		aliases[resolved] = struct{}{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HotplugMonitor{
		logger:  logging.NewComponentLogger(logger, "hotplug"),
		device:  device,
		aliases: aliases,
		onGone:  onGone,
	}
}

// Start begins listening. Failing to open the netlink socket is logged and
// otherwise ignored; capture still ends when the stream itself stops.
func (m *HotplugMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera removal detected only when the stream stops",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the process may open netlink sockets"),
			logging.String(logging.FieldImpact, "camera unplug detection delayed"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Debug("hotplug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
		logging.String("device", m.device),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *HotplugMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
}

// Running reports whether the monitor is active.
func (m *HotplugMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *HotplugMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildRemovalMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Debug("netlink monitor error", logging.Error(err))
		}
	}
}

// buildRemovalMatcher matches SUBSYSTEM=video4linux, ACTION=remove.
func buildRemovalMatcher() netlink.Matcher {
	action := "remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *HotplugMonitor) handleEvent(uevent netlink.UEvent) {
	devname := deviceName(uevent)
	if devname == "" {
		return
	}
	if _, ok := m.aliases[devname]; !ok {
		m.logger.Debug("ignoring removal of other device",
			logging.String("device", devname),
			logging.String("configured_device", m.device),
		)
		return
	}
	m.logger.Info("camera removed",
		logging.String(logging.FieldEventType, "camera_removed"),
		logging.String("device", devname),
	)
	if m.onGone != nil {
		m.onGone()
	}
}

// deviceName reads DEVNAME, falling back to the last DEVPATH element.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
