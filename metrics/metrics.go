// Package metrics exports drive lifecycle and capacity as Prometheus metrics.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/rstms/vfs"
)

// Collector observes mount events of the drives it is attached to.
type Collector struct {
	events  *prometheus.CounterVec
	mounted *prometheus.GaugeVec
	size    *prometheus.GaugeVec
	free    *prometheus.GaugeVec
}

// New registers the drive metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfs_mount_events_total",
				Help: "Total number of drive lifecycle events",
			},
			[]string{"drive", "event"},
		),
		mounted: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vfs_drive_mounted",
				Help: "Whether the drive is mounted",
			},
			[]string{"drive"},
		),
		size: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vfs_drive_size_bytes",
				Help: "Capacity of the drive when it was last mounted",
			},
			[]string{"drive"},
		),
		free: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vfs_drive_free_bytes",
				Help: "Free space of the drive when it was last refreshed",
			},
			[]string{"drive"},
		),
	}
}

// Observe is a vfs.EventFunc.
func (c *Collector) Observe(v *vfs.VFS, d *vfs.Drive, ev vfs.Event) {
	c.events.WithLabelValues(d.Prefix, ev.String()).Inc()
	switch ev {
	case vfs.EventMounted:
		c.mounted.WithLabelValues(d.Prefix).Set(1)
		c.Refresh(v, d.Prefix)
	default:
		c.mounted.WithLabelValues(d.Prefix).Set(0)
	}
}

// Refresh samples the capacity of a mounted drive.
func (c *Collector) Refresh(v *vfs.VFS, prefix string) {
	if size, err := v.FsSize(prefix); err == nil {
		c.size.WithLabelValues(prefix).Set(float64(size))
	}
	if free, err := v.FsFree(prefix); err == nil {
		c.free.WithLabelValues(prefix).Set(float64(free))
	}
}

// Write dumps everything g gathers in the text exposition format.
func Write(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
