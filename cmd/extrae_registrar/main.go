package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/bsc-dataclay/extrae_registrar/config"
	"github.com/bsc-dataclay/extrae_registrar/exporter"
	"github.com/bsc-dataclay/extrae_registrar/paraver"
	"github.com/bsc-dataclay/extrae_registrar/registrar"
	"github.com/bsc-dataclay/extrae_registrar/tracing"
	"github.com/coreos/go-systemd/activation"
	"github.com/mdlayher/sdnotify"
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
)

func main() {
	configFile := kingpin.Flag("config.file", "Config file path.").ExistingFile()
	var taskIDSet, numTasksSet bool
	taskID := kingpin.Flag("task.id", "Task id of this process, overrides config.").IsSetByUser(&taskIDSet).Int()
	numTasks := kingpin.Flag("task.count", "Number of tasks in the job, overrides config.").IsSetByUser(&numTasksSet).Int()
	debug := kingpin.Flag("debug", "Enable debug.").Bool()
	noLogTime := kingpin.Flag("log.no-timestamps", "Disable timestamps in log.").Bool()
	listenAddress := kingpin.Flag("web.listen-address", "The address to listen on for HTTP requests (fd://0 for systemd activation).").Default(":9436").String()
	metricsPath := kingpin.Flag("web.telemetry-path", "Path under which to expose metrics.").Default("/metrics").String()
	valuesDump := kingpin.Flag("values.dump", "Print a values table for method descriptors listed in this file (- for stdin) and exit.").String()
	valuesStart := kingpin.Flag("values.start", "First value assigned by --values.dump.").Default(strconv.FormatUint(paraver.FirstValue, 10)).Uint64()
	kingpin.Version(version.Print("extrae_registrar"))
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	if *noLogTime {
		log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))
	}

	if *valuesDump != "" {
		if err := dumpValues(os.Stdout, *valuesDump, *valuesStart); err != nil {
			log.Fatalf("Error dumping values: %v", err)
		}
		return
	}

	started := time.Now()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.ParseConfig(*configFile)
		if err != nil {
			log.Fatalf("Error parsing config: %v", err)
		}
	}

	if taskIDSet {
		cfg.Task.ID = *taskID
	}

	if numTasksSet {
		cfg.Task.Count = *numTasks
	}

	if err := config.ValidateConfig(&cfg); err != nil {
		log.Fatalf("Error validating config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	library := tracing.NewLibrary()
	registrar.SetDefaultLibrary(library)
	r := registrar.Default()

	if cfg.Task.Allocate {
		registrar.Assign(r, registrar.NewAllocator(cfg.Task.ID))
	} else {
		r.SetTaskID(cfg.Task.ID)
		r.SetNumTasks(cfg.Task.Count)
	}

	var provider tracing.Provider
	var tracer *paraver.Tracer

	if cfg.Tracing.Enabled {
		var err error
		provider, tracer, err = setupTracing(ctx, library, cfg.Tracing)
		if err != nil {
			log.Fatalf("Error setting up tracing: %v", err)
		}
	}

	log.Printf("Started task %d of %d (tracing enabled: %t) in %dms", r.TaskID(), r.NumTasks(), cfg.Tracing.Enabled, time.Since(started).Milliseconds())

	err := prometheus.Register(versioncollector.NewCollector("extrae_registrar"))
	if err != nil {
		log.Fatalf("Error registering version collector: %s", err)
	}

	err = prometheus.Register(exporter.New(r, tracer))
	if err != nil {
		log.Fatalf("Error registering exporter: %s", err)
	}

	mux := http.NewServeMux()
	mux.Handle(*metricsPath, traced(tracer, "extrae_registrar.http.Handler.metrics", promhttp.Handler()))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`<html>
			<head><title>Extrae Registrar</title></head>
			<body>
			<h1>Extrae Registrar</h1>
			<p><a href="` + *metricsPath + `">Metrics</a></p>
			</body>
			</html>`))
		if err != nil {
			log.Printf("Error sending response body: %s", err)
		}
	})

	if *debug && cfg.Tracing.TracesDir != "" {
		log.Printf("Debug enabled, exporting collected traces on /traces")
		mux.Handle("/traces", traced(tracer, "extrae_registrar.http.Handler.traces", tracesHandler(cfg.Tracing.TracesDir)))
	}

	listener, err := listen(*listenAddress)
	if err != nil {
		log.Fatalf("Error listening on %s: %s", *listenAddress, err)
	}

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error serving HTTP: %s", err)
		}
	}()

	notify(sdnotify.Statusf("task %d of %d", r.TaskID(), r.NumTasks()), sdnotify.Ready)

	<-ctx.Done()

	log.Printf("Shutting down")
	notify(sdnotify.Stopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %s", err)
	}

	if tracer != nil {
		if err := tracer.Finish(shutdownCtx); err != nil {
			log.Printf("Error finishing tracing: %s", err)
		}
	}

	if provider != nil {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down tracing provider: %s", err)
		}
	}
}

func setupTracing(ctx context.Context, library *tracing.Library, cfg config.Tracing) (tracing.Provider, *paraver.Tracer, error) {
	values, err := paraver.LoadValuesFile(cfg.ValuesFile)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("Loaded %d method values from %s", len(values), cfg.ValuesFile)

	processor, err := tracing.NewProcessor(ctx, library)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating span processor: %v", err)
	}

	provider := tracing.NewProvider(processor, library)

	tracer, err := paraver.NewTracer(values, paraver.NewSpanSink(provider, cfg.Service, values))
	if err != nil {
		return nil, nil, err
	}

	tracer.SetOptions(cfg.Options)
	log.Printf("Tracing with options %d (callers recorded: %t, pthreads traced: %t)", cfg.Options, cfg.Options.Has(paraver.CallerOption), cfg.Options.Has(paraver.PthreadOption))

	tracer.Enable()

	return provider, tracer, nil
}

// traced instruments a handler when pthread tracing is on, every request
// being served on a thread of its own
func traced(tracer *paraver.Tracer, descriptor string, handler http.Handler) http.Handler {
	if tracer == nil || !tracer.Options().Has(paraver.PthreadOption) {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = tracer.Trace(r.Context(), descriptor, func(context.Context) error {
			handler.ServeHTTP(w, r)
			return nil
		})
	})
}

func dumpValues(w io.Writer, path string, start uint64) error {
	in := os.Stdin
	if path != "-" {
		fd, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("error opening descriptors file: %w", err)
		}

		defer fd.Close()
		in = fd
	}

	descriptors, err := paraver.ReadDescriptors(in)
	if err != nil {
		return fmt.Errorf("error reading descriptors: %w", err)
	}

	return paraver.WriteValues(w, descriptors, start)
}

func tracesHandler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traces, err := paraver.CollectTraces(dir)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		sizes := make(map[string]int, len(traces))
		for name, data := range traces {
			sizes[name] = len(data)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sizes); err != nil {
			log.Printf("Error encoding traces: %s", err)
		}
	})
}

func listen(addr string) (net.Listener, error) {
	log.Printf("Listening on %s", addr)
	if strings.HasPrefix(addr, "fd://") {
		fd, err := strconv.Atoi(strings.TrimPrefix(addr, "fd://"))
		if err != nil {
			return nil, fmt.Errorf("error extracting fd number from %q: %v", addr, err)
		}

		listeners, err := activation.Listeners()
		if err != nil {
			return nil, fmt.Errorf("error getting activation listeners: %v", err)
		}

		if len(listeners) < fd+1 {
			return nil, fmt.Errorf("no listeners passed via activation")
		}

		return listeners[fd], nil
	}

	return net.Listen("tcp", addr)
}

func notify(states ...string) {
	n, err := sdnotify.New()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Error connecting to systemd notify socket: %s", err)
		}
		return
	}

	defer n.Close()

	if err := n.Notify(states...); err != nil {
		log.Printf("Error notifying systemd: %s", err)
	}
}
