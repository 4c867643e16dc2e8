// Package statsd emits metrics using the DogStatsD line protocol over UDP.
package statsd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sink is what instrumented code emits metrics into.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config selects the StatsD endpoint. A disabled config or empty Address yields a client
// that drops every metric.
type Config struct {
	Enabled    bool
	Address    string
	Prefix     string
	Logger     *slog.Logger
	GlobalTags map[string]string
}

// Client writes one datagram per metric. Safe for concurrent use; methods on a nil Client are no-ops.
type Client struct {
	format lineFormat
	logger *slog.Logger

	mu  sync.Mutex
	out io.WriteCloser
}

var _ Sink = (*Client)(nil)

const dialTimeout = 5 * time.Second

// NewClient dials Address over UDP when enabled.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		format: newLineFormat(cfg.Prefix, cfg.GlobalTags),
		logger: logger.With("component", "statsd"),
	}

	addr := strings.TrimSpace(cfg.Address)
	if !cfg.Enabled || addr == "" {
		return c, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	conn, err := (&net.Dialer{}).DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", addr, err)
	}
	c.out = conn
	return c, nil
}

// Enabled reports whether metrics actually leave the process.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out != nil
}

func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.emit(name, strconv.FormatInt(value, 10), "c", tags)
}

func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.emit(name, strconv.FormatFloat(value, 'f', -1, 64), "g", tags)
}

// Timing reports value in fractional milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	ms := float64(value) / float64(time.Millisecond)
	c.emit(name, strconv.FormatFloat(ms, 'f', -1, 64), "ms", tags)
}

// Close drops the connection; later metrics are discarded.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	out := c.out
	c.out = nil
	c.mu.Unlock()
	if out == nil {
		return nil
	}
	return out.Close()
}

func (c *Client) emit(name, value, kind string, tags map[string]string) {
	if c == nil {
		return
	}
	line, ok := c.format.render(name, value, kind, tags)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return
	}
	if _, err := io.WriteString(c.out, line); err != nil {
		c.logger.Debug("statsd write failed", "metric", name, "error", err)
	}
}

// lineFormat renders "prefix.name:value|kind|#k:v,..." with tags sorted by key.
type lineFormat struct {
	prefix string
	global map[string]string
}

func newLineFormat(prefix string, global map[string]string) lineFormat {
	return lineFormat{
		prefix: strings.Trim(strings.TrimSpace(prefix), "."),
		global: trimTags(global),
	}
}

// render reports false when name normalizes to nothing.
func (f lineFormat) render(name, value, kind string, tags map[string]string) (string, bool) {
	metric := normalizeMetricName(name)
	if metric == "" {
		return "", false
	}
	if f.prefix != "" {
		metric = f.prefix + "." + metric
	}

	merged := maps.Clone(f.global) // local tags override globals
	maps.Copy(merged, trimTags(tags))

	pairs := make([]string, 0, len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		pairs = append(pairs, k+":"+merged[k])
	}
	line := metric + ":" + value + "|" + kind
	if len(pairs) > 0 {
		line += "|#" + strings.Join(pairs, ",")
	}
	return line, true
}

var metricNameReplacer = strings.NewReplacer(" ", "_", "/", "_") //nolint:gochecknoglobals // immutable

func normalizeMetricName(name string) string {
	n := metricNameReplacer.Replace(strings.TrimSpace(name))
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// trimTags copies tags with whitespace trimmed, dropping empty keys.
func trimTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}
