// cmd/orchestrator/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mfg-orchestrator/internal/api"
	awsutil "mfg-orchestrator/internal/common/aws"
	"mfg-orchestrator/internal/common/camunda"
	"mfg-orchestrator/internal/common/config"
	"mfg-orchestrator/internal/common/database"
	"mfg-orchestrator/internal/common/genai"
	commonhttp "mfg-orchestrator/internal/common/http"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/common/observability"
	"mfg-orchestrator/internal/conversation"
	"mfg-orchestrator/internal/costing"
	"mfg-orchestrator/internal/dispatch"
	"mfg-orchestrator/internal/inventory"
	"mfg-orchestrator/internal/notify"
	"mfg-orchestrator/internal/scheduling"
	"mfg-orchestrator/internal/search"
	"mfg-orchestrator/internal/store"

	llm "mfg-orchestrator/internal/workers/ai-conversation/llm-synthesis"
	pui "mfg-orchestrator/internal/workers/ai-conversation/parse-user-intent"
	cc "mfg-orchestrator/internal/workers/quoting/costing-check"
	ic "mfg-orchestrator/internal/workers/quoting/inventory-check"
	sc "mfg-orchestrator/internal/workers/quoting/scheduling-check"
	sq "mfg-orchestrator/internal/workers/quoting/synthesize-quote"
)

// app owns every long-lived client. Optional ones stay nil when disabled.
type app struct {
	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger
	obs    *observability.Observability

	pg    *database.PostgresClient
	redis *database.RedisClient
	es    *database.ElasticsearchClient
	zeebe *camunda.Client

	conversation *conversation.Store
	dispatcher   *dispatch.Dispatcher
	workers      []*camunda.CamundaWorker
}

// workerTaskTypes are the job types this binary can serve to Zeebe.
var workerTaskTypes = []string{pui.TaskType, ic.TaskType, sc.TaskType, cc.TaskType, sq.TaskType, llm.TaskType}

type appOptions struct {
	// startWorkers opens the Zeebe job workers when camunda is enabled.
	startWorkers bool
	retries      int
}

func newApp(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, opts appOptions) (*app, error) {
	if opts.retries <= 0 {
		opts.retries = 1
	}
	a := &app{
		cfg:    cfg,
		zapLog: zapLog,
		log:    logger.NewZapAdapter(zapLog),
	}
	a.obs = observability.New(cfg.Observability.ServiceName, observability.WithJaeger(cfg.Observability.JaegerEndpoint))

	// --- PostgreSQL ---
	err := retryWithBackoff(func() error {
		var err error
		a.pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return a.pg.Ping(ctx)
	}, opts.retries, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		a.Close()
		return nil, err
	}
	zapLog.Info("PostgreSQL connected")

	// --- Redis ---
	err = retryWithBackoff(func() error {
		var err error
		a.redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return a.redis.Ping(ctx)
	}, opts.retries, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		a.Close()
		return nil, err
	}
	zapLog.Info("Redis connected")

	// --- Elasticsearch (optional) ---
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			a.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := a.es.Ping(ctx); err != nil {
				return err
			}
			return a.es.EnsureIndex(ctx, cfg.Database.Elasticsearch.JobsIndex, search.JobsMapping)
		}, opts.retries, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			// Job search falls back to the database.
			zapLog.Warn("elasticsearch unavailable, job search uses postgres", zap.Error(err))
			a.es = nil
		} else {
			zapLog.Info("Elasticsearch connected", zap.String("index", cfg.Database.Elasticsearch.JobsIndex))
		}
	}

	// --- Language model ---
	var completer genai.Completer
	if c, err := genai.New(cfg.APIs.GenAI); err != nil {
		zapLog.Warn("language model disabled, using keyword classification and template narratives", zap.Error(err))
	} else {
		completer = c
	}
	var intentAPI pui.IntentAPI
	if cfg.APIs.GenAI.Provider == "http" && cfg.APIs.GenAI.BaseURL != "" {
		intentAPI = commonhttp.NewClient(
			cfg.APIs.GenAI.BaseURL,
			cfg.APIs.GenAI.APIKey,
			config.GetDuration(cfg.APIs.GenAI.Timeout),
			cfg.APIs.GenAI.MaxRetries,
		)
	}

	st := store.New(a.pg.DB, a.log)
	inventorySvc := inventory.NewService(st, a.log)
	slotFinder := scheduling.NewSlotFinder(st, a.log)
	calculator := costing.NewCalculator(st, st, a.log)
	a.conversation = conversation.NewStore(a.redis.Client, time.Duration(cfg.Quoting.PendingQuoteTTL)*time.Second, a.log)

	classifier := pui.NewHandler(pui.LoadConfig(cfg), completer, intentAPI, &parseUserIntentLoggerAdapter{a.log})
	narrator := llm.NewHandler(llm.LoadConfig(cfg), completer, &llmSynthesisLoggerAdapter{a.log})

	inventoryStage := ic.NewHandler(ic.LoadConfig(cfg), inventorySvc, a.log)
	schedulingStage := sc.NewHandler(sc.LoadConfig(cfg), slotFinder, a.log)
	costingStage := cc.NewHandler(cc.LoadConfig(cfg), calculator, a.log)
	synthesizer := sq.NewHandler(sq.LoadConfig(cfg), narrator, a.log)

	deps := dispatch.Deps{
		Classifier:      classifier,
		Keywords:        pui.NewKeywordClassifier(),
		Conversation:    a.conversation,
		Repo:            st,
		Inventory:       inventorySvc,
		Schedule:        slotFinder,
		Notifier:        a.newNotifier(ctx),
		InventoryStage:  inventoryStage,
		SchedulingStage: schedulingStage,
		CostingStage:    costingStage,
		Synthesizer:     synthesizer,
		Observability:   a.obs,
		Logger:          a.log,
	}
	if a.es != nil {
		deps.Search = search.NewJobIndex(a.es.Client, cfg.Database.Elasticsearch.JobsIndex, a.log)
	}

	a.dispatcher, err = dispatch.NewDispatcher(deps, dispatch.OptionsFromConfig(cfg))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}

	if opts.startWorkers && cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			a.zeebe, err = camunda.NewClient(camunda.ConfigFrom(cfg.Camunda))
			return err
		}, opts.retries, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			a.Close()
			return nil, err
		}
		zapLog.Info("Zeebe client connected", zap.String("gateway", cfg.Camunda.BrokerAddress))

		a.startWorkers(map[string]camunda.JobHandler{
			pui.TaskType: classifier,
			llm.TaskType: narrator,
			ic.TaskType:  inventoryStage,
			sc.TaskType:  schedulingStage,
			cc.TaskType:  costingStage,
			sq.TaskType:  synthesizer,
		})
	}

	return a, nil
}

// newNotifier builds the SES/SNS notifier. A channel that is disabled or
// whose AWS config fails to load is left nil and its sends are skipped.
func (a *app) newNotifier(ctx context.Context) *notify.Notifier {
	n := a.cfg.Notifications
	var (
		email notify.EmailSender
		sms   notify.SMSPublisher
	)
	if n.SES.Enabled || n.SNS.Enabled {
		clients, err := awsutil.NewClients(ctx, n.AWS.Region)
		if err != nil {
			a.zapLog.Warn("aws clients unavailable, notifications disabled", zap.Error(err))
		} else {
			if n.SES.Enabled {
				email = clients.SES
			}
			if n.SNS.Enabled {
				sms = clients.SNS
			}
		}
	}
	return notify.NewNotifier(email, sms, n.SES.FromEmail, n.CompanyName, a.log)
}

func (a *app) startWorkers(handlers map[string]camunda.JobHandler) {
	for taskType, handler := range handlers {
		if !config.IsWorkerEnabled(a.cfg, taskType) {
			a.zapLog.Info("worker disabled", zap.String("taskType", taskType))
			continue
		}
		wcfg := config.GetWorkerConfig(a.cfg, taskType)
		a.workers = append(a.workers, camunda.NewWorker(
			a.zeebe.GetClient(),
			taskType,
			wcfg.MaxJobsActive,
			config.GetDuration(wcfg.Timeout),
			handler,
			a.log,
		))
	}
	a.zapLog.Info("workers registered", zap.Int("count", len(a.workers)))
}

// checks are the readiness probes served on /ready.
func (a *app) checks() map[string]api.Check {
	checks := map[string]api.Check{
		"postgres": a.pg.Ping,
		"redis":    a.redis.Ping,
	}
	if a.es != nil {
		checks["elasticsearch"] = a.es.Ping
	}
	if a.zeebe != nil {
		checks["zeebe"] = a.zeebe.HealthCheck
	}
	return checks
}

func (a *app) Close() {
	for _, w := range a.workers {
		w.Stop()
	}
	if a.zeebe != nil {
		if err := a.zeebe.Close(); err != nil {
			a.zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.zapLog.Error("Error closing Redis", zap.Error(err))
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.zapLog.Error("Error closing PostgreSQL", zap.Error(err))
		}
	}
	if a.obs != nil {
		a.obs.Shutdown()
	}
}
