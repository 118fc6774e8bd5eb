package group

import "github.com/prometheus/client_golang/prometheus"

// Metrics 分组管理指标
//
// 所有方法对 nil 接收者安全，未接指标时管理器零开销降级。
type Metrics struct {
	active    prometheus.Gauge
	deaths    prometheus.Counter
	gcDeleted prometheus.Counter
}

// NewMetrics 创建并注册分组指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swarmcore",
			Subsystem: "group",
			Name:      "active",
			Help:      "当前存活的分组数",
		}),
		deaths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swarmcore",
			Subsystem: "group",
			Name:      "unexpected_deaths_total",
			Help:      "主工作进程意外死亡的次数",
		}),
		gcDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swarmcore",
			Subsystem: "group",
			Name:      "gc_deleted_dirs_total",
			Help:      "垃圾回收删除的分组目录数",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.active, m.deaths, m.gcDeleted)
	}
	return m
}

// SetActive 更新存活分组数
func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}

// Death 记录一次意外死亡
func (m *Metrics) Death() {
	if m == nil {
		return
	}
	m.deaths.Inc()
}

// GCDeleted 记录一次成功的目录回收
func (m *Metrics) GCDeleted() {
	if m == nil {
		return
	}
	m.gcDeleted.Inc()
}
