package negotiate

import "github.com/prometheus/client_golang/prometheus"

// Metrics 协商指标
//
// 所有方法对 nil 接收者安全，未接指标时协商器零开销降级。
type Metrics struct {
	sessions *prometheus.CounterVec
	dispatch *prometheus.CounterVec
}

// NewMetrics 创建并注册协商指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarmcore",
			Subsystem: "negotiate",
			Name:      "sessions_total",
			Help:      "协商会话总数（按终止方式分类）",
		}, []string{"outcome"}),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarmcore",
			Subsystem: "negotiate",
			Name:      "dispatch_total",
			Help:      "按前缀统计的成功分发次数",
		}, []string{"prefix"}),
	}

	if reg != nil {
		reg.MustRegister(m.sessions, m.dispatch)
	}
	return m
}

// Session 记录一次会话终止
func (m *Metrics) Session(outcome string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(outcome).Inc()
}

// Dispatch 记录一次成功分发
func (m *Metrics) Dispatch(prefix string) {
	if m == nil {
		return
	}
	m.dispatch.WithLabelValues(prefix).Inc()
}
