// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"mfg-orchestrator/internal/common/config"
	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/common/metrics"
	"mfg-orchestrator/internal/common/observability"
	"mfg-orchestrator/internal/models"
	costingcheck "mfg-orchestrator/internal/workers/quoting/costing-check"
	inventorycheck "mfg-orchestrator/internal/workers/quoting/inventory-check"
	schedulingcheck "mfg-orchestrator/internal/workers/quoting/scheduling-check"
	synthesizequote "mfg-orchestrator/internal/workers/quoting/synthesize-quote"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	genericErrorText = "Something went wrong while handling your request. Please try again."

	defaultClassifierTimeout = 15 * time.Second
	defaultStageTimeout      = 10 * time.Second
	defaultAssistantName     = "Foreman"
	defaultJobListLimit      = 10
	defaultQuantity          = 10
)

var ErrIncompleteRoutes = stderrors.New("INCOMPLETE_ROUTES")

// ==========================
// Collaborators
// ==========================

type Classifier interface {
	Classify(ctx context.Context, message string) (*models.Classification, error)
}

// KeywordClassifier is the deterministic fallback used when Classifier fails.
type KeywordClassifier interface {
	Classify(message string) models.Classification
}

type ConversationStore interface {
	Get(ctx context.Context, threadID string) (*models.PendingQuote, error)
	Save(ctx context.Context, pq models.PendingQuote) error
	Consume(ctx context.Context, threadID string) (*models.PendingQuote, error)
	AppendMessage(ctx context.Context, threadID string, msg models.ChatMessage) error
}

// Repository is the persistence surface the handlers use.
type Repository interface {
	CreateJob(ctx context.Context, in models.NewJob) (*models.Job, error)
	GetJobByNumber(ctx context.Context, jobNumber string) (*models.Job, error)
	ActiveJobs(ctx context.Context, limit int) ([]models.Job, error)
	SearchJobs(ctx context.Context, query string, limit int) ([]models.Job, error)
	UpdateJob(ctx context.Context, jobNumber string, u models.JobUpdate) (*models.Job, error)
	TransitionJob(ctx context.Context, jobNumber string, to models.JobStatus) (*models.Job, error)
	AttachPO(ctx context.Context, jobNumber, poNumber string) (*models.Job, error)

	AddCustomer(ctx context.Context, name, email, phone string) (*models.Customer, error)
	ListCustomers(ctx context.Context, activeOnly bool) ([]models.Customer, error)
	AddMachine(ctx context.Context, m models.Machine) (*models.Machine, error)
	ListMachines(ctx context.Context) ([]models.Machine, error)

	ListEstimates(ctx context.Context, limit int) ([]models.Estimate, error)
	GetEstimate(ctx context.Context, number string) (*models.Estimate, error)
	TransitionEstimate(ctx context.Context, number string, to models.EstimateStatus, reason string) (*models.Estimate, error)

	JobCountsByStatus(ctx context.Context) (map[models.JobStatus]int, error)
	QuotedRevenue(ctx context.Context) (decimal.Decimal, error)
}

// JobIndex is the optional full-text job search.
type JobIndex interface {
	IndexJob(ctx context.Context, job models.Job) error
	SearchJobs(ctx context.Context, query string, limit int) ([]models.Job, error)
}

type InventoryService interface {
	List(ctx context.Context) ([]models.Item, error)
	LowStock(ctx context.Context) ([]models.Item, error)
	Resolve(ctx context.Context, rc models.RequestContext) (*models.Item, error)
	CheckStock(ctx context.Context, itemID int64, required int) (*models.StockCheck, error)
	Adjust(ctx context.Context, itemID int64, delta int) (*models.Item, error)
	EarliestDelivery(ctx context.Context, bom []models.BOMLine, requested *time.Time) (*models.DeliveryEstimate, error)
}

type ScheduleService interface {
	Schedules(ctx context.Context, from, to time.Time) ([]models.MachineSchedule, error)
}

// Notifier delivers estimate emails and job-ready texts. Both report false
// when the channel is not configured.
type Notifier interface {
	SendEstimate(ctx context.Context, est *models.Estimate) (bool, error)
	JobReady(ctx context.Context, job *models.Job, phone string) (bool, error)
}

type InventoryStage interface {
	Analyze(ctx context.Context, input *inventorycheck.Input) *inventorycheck.Output
}

type SchedulingStage interface {
	Analyze(ctx context.Context, input *schedulingcheck.Input) *schedulingcheck.Output
}

type CostingStage interface {
	Analyze(ctx context.Context, input *costingcheck.Input) (*costingcheck.Output, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, input *synthesizequote.Input) *synthesizequote.Output
}

// Deps are the injected collaborators. Keywords, Search, Notifier and
// Observability may be nil.
type Deps struct {
	Classifier   Classifier
	Keywords     KeywordClassifier
	Conversation ConversationStore
	Repo         Repository
	Search       JobIndex
	Inventory    InventoryService
	Schedule     ScheduleService
	Notifier     Notifier

	InventoryStage  InventoryStage
	SchedulingStage SchedulingStage
	CostingStage    CostingStage
	Synthesizer     Synthesizer

	Observability *observability.Observability
	Logger        logger.Logger
}

type Options struct {
	Parallel          bool
	StageTimeout      time.Duration
	ClassifierTimeout time.Duration
	AssistantName     string
	JobListLimit      int
	// DefaultQuantity prices a quote that names no quantity.
	DefaultQuantity int
}

// OptionsFromConfig reads the quoting section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Parallel:          cfg.Quoting.Parallel,
		StageTimeout:      config.GetDuration(cfg.Quoting.StageTimeout),
		ClassifierTimeout: config.GetDuration(cfg.Quoting.ClassifierTimeout),
		AssistantName:     cfg.App.AssistantName,
		JobListLimit:      defaultJobListLimit,
		DefaultQuantity:   cfg.Quoting.DefaultQuantity,
	}
}

// ==========================
// Dispatcher
// ==========================

type Dispatcher struct {
	deps   Deps
	opts   Options
	routes map[models.Intent]route
	now    func() time.Time
	logger logger.Logger
}

func NewDispatcher(deps Deps, opts Options) (*Dispatcher, error) {
	switch {
	case deps.Conversation == nil:
		return nil, fmt.Errorf("dispatcher: conversation store is required")
	case deps.Repo == nil:
		return nil, fmt.Errorf("dispatcher: repository is required")
	case deps.Inventory == nil || deps.Schedule == nil:
		return nil, fmt.Errorf("dispatcher: inventory and schedule services are required")
	case deps.InventoryStage == nil || deps.SchedulingStage == nil || deps.CostingStage == nil || deps.Synthesizer == nil:
		return nil, fmt.Errorf("dispatcher: all quoting stages are required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if opts.ClassifierTimeout <= 0 {
		opts.ClassifierTimeout = defaultClassifierTimeout
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = defaultStageTimeout
	}
	if opts.AssistantName == "" {
		opts.AssistantName = defaultAssistantName
	}
	if opts.JobListLimit <= 0 {
		opts.JobListLimit = defaultJobListLimit
	}
	if opts.DefaultQuantity <= 0 {
		opts.DefaultQuantity = defaultQuantity
	}

	d := &Dispatcher{
		deps:   deps,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
		logger: deps.Logger.With(map[string]interface{}{"component": "dispatcher"}),
	}
	d.routes = d.routeTable()
	if err := validateRoutes(d.routes); err != nil {
		return nil, err
	}
	return d, nil
}

// WithClock replaces the time source used for pending quotes and views.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// request is the immutable input a handler sees.
type request struct {
	threadID string
	message  string
	intent   models.Intent
	rc       models.RequestContext
	machine  *machine
	log      logger.Logger
}

// Dispatch classifies one message, runs its route and returns the envelope.
// It never returns nil and never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, message, threadID string) (env *models.ResponseEnvelope) {
	start := time.Now()
	if strings.TrimSpace(threadID) == "" {
		threadID = uuid.NewString()
	}
	m := newMachine()
	intent := models.IntentGeneralQuery
	log := d.logger.With(map[string]interface{}{"threadId": threadID})

	ctx, endSpan := d.deps.Observability.StartSpan(ctx, "dispatch", attribute.String("thread.id", threadID))
	defer endSpan()

	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch panicked", map[string]interface{}{
				"intent": intent,
				"panic":  fmt.Sprint(r),
				"stack":  string(debug.Stack()),
			})
			env = errorEnvelope(genericErrorText, nil)
		}
		m.finish()
		env.ThreadID = threadID
		env.Intent = intent
		env.Trace = m.Trace()

		elapsed := time.Since(start)
		metrics.DispatchRequests.WithLabelValues(string(intent), string(env.Kind)).Inc()
		metrics.DispatchDuration.WithLabelValues(string(intent)).Observe(elapsed.Seconds())
		d.deps.Observability.RecordDispatch(ctx, string(intent), string(env.Kind), elapsed)
		d.remember(ctx, log, threadID, message, env)
	}()

	cls := d.classify(ctx, log, message)
	intent = cls.Intent
	r := d.routes[intent]

	if err := m.to(StateDispatched); err != nil {
		return d.failure(log, intent, err)
	}
	log.Info("intent routed", map[string]interface{}{
		"intent":     intent,
		"route":      r.name,
		"source":     cls.Source,
		"confidence": cls.Confidence,
	})

	req := &request{
		threadID: threadID,
		message:  message,
		intent:   intent,
		rc:       cls.Context,
		machine:  m,
		log:      log.With(map[string]interface{}{"intent": intent}),
	}
	out, err := r.handle(ctx, req)
	if err != nil {
		return d.failure(log, intent, err)
	}
	if out.NewPendingQuote != nil {
		d.savePending(ctx, log, threadID, out.NewPendingQuote)
	}
	return out
}

// classify runs the classifier under its own deadline and falls back to
// keywords on any failure. Unknown intents become GENERAL_QUERY.
func (d *Dispatcher) classify(ctx context.Context, log logger.Logger, message string) models.Classification {
	if d.deps.Classifier != nil {
		cctx, cancel := context.WithTimeout(ctx, d.opts.ClassifierTimeout)
		cls, err := d.deps.Classifier.Classify(cctx, message)
		cancel()
		if err == nil && cls != nil {
			return d.known(*cls)
		}
		reason := "empty classification"
		if err != nil {
			reason = err.Error()
		}
		log.Warn("classification failed, using keywords", map[string]interface{}{"error": reason})
		metrics.ClassifierFallbacks.Inc()
	}

	if d.deps.Keywords != nil {
		return d.known(d.deps.Keywords.Classify(message))
	}
	return models.Classification{Intent: models.IntentGeneralQuery, Source: "keyword"}
}

func (d *Dispatcher) known(cls models.Classification) models.Classification {
	if _, ok := d.routes[cls.Intent]; !ok {
		cls.Intent = models.IntentGeneralQuery
	}
	return cls
}

func (d *Dispatcher) savePending(ctx context.Context, log logger.Logger, threadID string, pq *models.PendingQuote) {
	record := *pq
	record.ThreadID = threadID
	record.CreatedAt = d.now()
	if err := d.deps.Conversation.Save(ctx, record); err != nil {
		log.Warn("failed to store pending quote", map[string]interface{}{"error": err.Error()})
	}
}

func (d *Dispatcher) remember(ctx context.Context, log logger.Logger, threadID, message string, env *models.ResponseEnvelope) {
	at := d.now().Unix()
	for _, msg := range []models.ChatMessage{
		{Role: "user", Content: message, At: at},
		{Role: "assistant", Content: env.Text, Kind: string(env.Kind), At: at},
	} {
		if err := d.deps.Conversation.AppendMessage(ctx, threadID, msg); err != nil {
			log.Warn("failed to append history", map[string]interface{}{"error": err.Error()})
			return
		}
	}
}

func (d *Dispatcher) failure(log logger.Logger, intent models.Intent, err error) *models.ResponseEnvelope {
	stdErr := errors.AsStandard(err)
	log.Error("handler failed", map[string]interface{}{
		"intent":    intent,
		"errorCode": stdErr.Code,
		"error":     err.Error(),
	})
	return errorEnvelope(errors.UserMessage(err), map[string]interface{}{"error_code": string(stdErr.Code)})
}

func errorEnvelope(text string, data map[string]interface{}) *models.ResponseEnvelope {
	return &models.ResponseEnvelope{Kind: models.KindError, Text: text, Data: data}
}

func envelope(kind models.ResponseKind, text string, data map[string]interface{}) *models.ResponseEnvelope {
	return &models.ResponseEnvelope{Kind: kind, Text: text, Data: data}
}
