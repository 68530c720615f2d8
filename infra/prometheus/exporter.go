package prometheus

import (
	"net/http"
	"sync"
)

// Exporter Prometheus 导出器
type Exporter struct {
	// namespace 命名空间
	namespace string

	// subsystem 子系统
	subsystem string

	// registry 指标注册表
	registry *Registry

	// collector 指标收集器
	collector *Collector

	// server HTTP 服务器
	server *http.Server

	mu sync.RWMutex
}

// ExporterOption 导出器选项
type ExporterOption func(*Exporter)

// NewExporter 创建 Prometheus 导出器
func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{
		namespace: "app",
		registry:  NewRegistry(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.collector = NewCollector(e.registry, e.namespace, e.subsystem)

	return e
}

// WithNamespace 设置命名空间
func WithNamespace(namespace string) ExporterOption {
	return func(e *Exporter) {
		e.namespace = namespace
	}
}

// WithSubsystem 设置子系统
func WithSubsystem(subsystem string) ExporterOption {
	return func(e *Exporter) {
		e.subsystem = subsystem
	}
}

// Registry 返回注册表
func (e *Exporter) Registry() *Registry {
	return e.registry
}

// Collector 返回收集器
func (e *Exporter) Collector() *Collector {
	return e.collector
}

// Handler 返回 HTTP 处理器
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(e.registry.Gather()))
	})
}

// ListenAndServe 启动 HTTP 服务器
func (e *Exporter) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())

	e.mu.Lock()
	e.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	e.mu.Unlock()

	return e.server.ListenAndServe()
}

// Shutdown 关闭服务器
func (e *Exporter) Shutdown() error {
	e.mu.RLock()
	server := e.server
	e.mu.RUnlock()

	if server != nil {
		return server.Close()
	}
	return nil
}
