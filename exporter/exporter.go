package exporter

import (
	"github.com/bsc-dataclay/extrae_registrar/paraver"
	"github.com/bsc-dataclay/extrae_registrar/registrar"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace to use for all metrics
const prometheusNamespace = "extrae_registrar"

// Exporter is a prometheus.Collector reporting task identity and tracing state.
// Every value is read at scrape time.
type Exporter struct {
	task         registrar.TaskInfoProvider
	tracer       *paraver.Tracer
	taskIDDesc   *prometheus.Desc
	numTasksDesc *prometheus.Desc
	enabledDesc  *prometheus.Desc
	tracedDesc   *prometheus.Desc
	eventsDesc   *prometheus.Desc
}

// New creates a new exporter for the task identity, tracer may be nil
func New(task registrar.TaskInfoProvider, tracer *paraver.Tracer) *Exporter {
	return &Exporter{
		task:   task,
		tracer: tracer,
		taskIDDesc: prometheus.NewDesc(
			prometheus.BuildFQName(prometheusNamespace, "", "task_id"),
			"Task id of this process within its job",
			nil,
			nil,
		),
		numTasksDesc: prometheus.NewDesc(
			prometheus.BuildFQName(prometheusNamespace, "", "num_tasks"),
			"Number of tasks in the job",
			nil,
			nil,
		),
		enabledDesc: prometheus.NewDesc(
			prometheus.BuildFQName(prometheusNamespace, "", "tracing_enabled"),
			"Whether method tracing is enabled",
			nil,
			nil,
		),
		tracedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(prometheusNamespace, "", "traced_methods"),
			"Number of distinct methods traced so far",
			nil,
			nil,
		),
		eventsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(prometheusNamespace, "", "trace_events_total"),
			"Trace events emitted",
			[]string{"type"},
			nil,
		),
	}
}

// Describe satisfies prometheus.Collector interface by sending descriptions
// for all metrics the exporter can possibly report
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.taskIDDesc
	ch <- e.numTasksDesc

	if e.tracer == nil {
		return
	}

	ch <- e.enabledDesc
	ch <- e.tracedDesc
	ch <- e.eventsDesc
}

// Collect satisfies prometheus.Collector interface and sends all metrics
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(e.taskIDDesc, prometheus.GaugeValue, float64(e.task.TaskID()))
	ch <- prometheus.MustNewConstMetric(e.numTasksDesc, prometheus.GaugeValue, float64(e.task.NumTasks()))

	if e.tracer == nil {
		return
	}

	enabled := 0.0
	if e.tracer.Enabled() {
		enabled = 1
	}

	ch <- prometheus.MustNewConstMetric(e.enabledDesc, prometheus.GaugeValue, enabled)
	ch <- prometheus.MustNewConstMetric(e.tracedDesc, prometheus.GaugeValue, float64(len(e.tracer.Traced())))
	ch <- prometheus.MustNewConstMetric(e.eventsDesc, prometheus.CounterValue, float64(e.tracer.Events()), "task")
}
