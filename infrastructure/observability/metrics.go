package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goldennest/config"
	"goldennest/events"
	"goldennest/models"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages the OpenTelemetry counters of the approval workflow
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	requestsCreatedCounter     metric.Int64Counter
	votesCounter               metric.Int64Counter
	executionsCounter          metric.Int64Counter
	executionFailuresCounter   metric.Int64Counter
	sideChannelFailuresCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)

	if err := mp.start(reader); err != nil {
		return err
	}

	otel.SetMeterProvider(mp.meterProvider)
	log.Info("Metrics provider initialized successfully")
	return nil
}

// start builds the meter provider around reader and creates the instruments.
// Callers hold mp.mu.
func (mp *MetricsProvider) start(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("goldennest")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.requestsCreatedCounter, err = mp.meter.Int64Counter(
		RequestsCreatedTotal,
		metric.WithDescription("Total number of approval requests created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create requests created counter: %w", err)
	}

	mp.votesCounter, err = mp.meter.Int64Counter(
		VotesTotal,
		metric.WithDescription("Total number of votes cast"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create votes counter: %w", err)
	}

	mp.executionsCounter, err = mp.meter.Int64Counter(
		ExecutionsTotal,
		metric.WithDescription("Total number of executed approval requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create executions counter: %w", err)
	}

	mp.executionFailuresCounter, err = mp.meter.Int64Counter(
		ExecutionFailuresTotal,
		metric.WithDescription("Total number of approved requests whose execution failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create execution failures counter: %w", err)
	}

	mp.sideChannelFailuresCounter, err = mp.meter.Int64Counter(
		SideChannelFailuresTotal,
		metric.WithDescription("Total number of failed notifications and forwards"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create side channel failures counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.enabled = false
	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Attach counts committed workflow events from the bus
func (mp *MetricsProvider) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeApprovalRequestCreated, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ApprovalRequestCreatedEvent); ok {
			mp.RecordRequestCreated(ctx, e.RequestType)
		}
	})
	bus.Subscribe(events.EventTypeApprovalVoteCast, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ApprovalVoteCastEvent); ok {
			mp.RecordVote(ctx, e.Approved)
		}
	})
	bus.Subscribe(events.EventTypeApprovalRequestExecuted, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ApprovalRequestExecutedEvent); ok {
			mp.RecordExecution(ctx, e.RequestType)
		}
	})
}

// RecordRequestCreated counts a stored request
func (mp *MetricsProvider) RecordRequestCreated(ctx context.Context, requestType models.RequestType) {
	if !mp.isEnabled() {
		return
	}
	mp.requestsCreatedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelType, string(requestType))))
}

// RecordVote counts a recorded vote
func (mp *MetricsProvider) RecordVote(ctx context.Context, approved bool) {
	if !mp.isEnabled() {
		return
	}
	mp.votesCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool(LabelApproved, approved)))
}

// RecordExecution counts an applied request
func (mp *MetricsProvider) RecordExecution(ctx context.Context, requestType models.RequestType) {
	if !mp.isEnabled() {
		return
	}
	mp.executionsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelType, string(requestType))))
}

// RecordExecutionFailure counts an approved request whose side effects failed
func (mp *MetricsProvider) RecordExecutionFailure(ctx context.Context, requestType models.RequestType) {
	if !mp.isEnabled() {
		return
	}
	mp.executionFailuresCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelType, string(requestType))))
}

// RecordSideChannelFailure counts a failed notification or forward
func (mp *MetricsProvider) RecordSideChannelFailure(ctx context.Context, channel string) {
	if !mp.isEnabled() {
		return
	}
	mp.sideChannelFailuresCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelChannel, channel)))
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}
