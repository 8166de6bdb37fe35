// internal/dispatch/fakes_test.go
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/conversation"
	"mfg-orchestrator/internal/costing"
	"mfg-orchestrator/internal/inventory"
	"mfg-orchestrator/internal/models"
	"mfg-orchestrator/internal/scheduling"
	llmsynthesis "mfg-orchestrator/internal/workers/ai-conversation/llm-synthesis"
	costingcheck "mfg-orchestrator/internal/workers/quoting/costing-check"
	inventorycheck "mfg-orchestrator/internal/workers/quoting/inventory-check"
	schedulingcheck "mfg-orchestrator/internal/workers/quoting/scheduling-check"
	synthesizequote "mfg-orchestrator/internal/workers/quoting/synthesize-quote"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// ==========================
// Classifier
// ==========================

type scriptedClassifier struct {
	byMessage map[string]models.Classification
	err       error
	calls     int
}

func (c *scriptedClassifier) Classify(ctx context.Context, message string) (*models.Classification, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	cls, ok := c.byMessage[message]
	if !ok {
		return &models.Classification{Intent: models.IntentGeneralQuery, Source: "classifier"}, nil
	}
	cls.Source = "classifier"
	return &cls, nil
}

type fixedKeywords struct{ cls models.Classification }

func (k fixedKeywords) Classify(string) models.Classification { return k.cls }

// ==========================
// Repository
// ==========================

type fakeRepo struct {
	mu          sync.Mutex
	jobs        map[string]*models.Job
	order       []string
	customers   []models.Customer
	machines    map[int64]models.Machine
	estimates   map[string]*models.Estimate
	panicOnList bool
	searched    []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		jobs: map[string]*models.Job{},
		machines: map[int64]models.Machine{
			1: {ID: 1, Name: "CNC-Mill-1", MachineType: "cnc", HourlyRate: decimal.NewFromInt(75), Status: models.MachineStatusOperational},
		},
		estimates: map[string]*models.Estimate{},
	}
}

func (r *fakeRepo) CreateJob(ctx context.Context, in models.NewJob) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := in.Status
	if status == "" {
		status = models.JobDraft
	}
	priority := in.Priority
	if priority == 0 {
		priority = 5
	}
	j := &models.Job{
		ID:                    int64(len(r.order) + 1),
		JobNumber:             fmt.Sprintf("%s-%04d", fixedNow.Format("20060102"), len(r.order)+1),
		CustomerName:          in.CustomerName,
		CustomerEmail:         in.CustomerEmail,
		Description:           in.Description,
		Status:                status,
		Priority:              priority,
		FinancialHold:         in.FinancialHold,
		FinancialHoldReason:   in.FinancialHoldReason,
		QuotedStrategy:        in.QuotedStrategy,
		QuotedPrice:           in.QuotedPrice,
		RequestedDeliveryDate: in.RequestedDeliveryDate,
		EstimatedDeliveryDate: in.EstimatedDeliveryDate,
		CreatedAt:             fixedNow,
		UpdatedAt:             fixedNow,
	}
	r.jobs[j.JobNumber] = j
	r.order = append(r.order, j.JobNumber)
	out := *j
	return &out, nil
}

func (r *fakeRepo) GetJobByNumber(ctx context.Context, jobNumber string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobNumber]
	if !ok {
		return nil, errors.NewJobNotFoundError(jobNumber)
	}
	out := *j
	return &out, nil
}

func (r *fakeRepo) ActiveJobs(ctx context.Context, limit int) ([]models.Job, error) {
	if r.panicOnList {
		panic("active jobs exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Job
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		if j := r.jobs[r.order[i]]; j.Status.Active() {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *fakeRepo) SearchJobs(ctx context.Context, query string, limit int) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searched = append(r.searched, query)
	var out []models.Job
	for _, n := range r.order {
		j := r.jobs[n]
		if strings.Contains(strings.ToLower(j.CustomerName+" "+j.Description), strings.ToLower(query)) {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateJob(ctx context.Context, jobNumber string, u models.JobUpdate) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobNumber]
	if !ok {
		return nil, errors.NewJobNotFoundError(jobNumber)
	}
	if u.Priority != nil {
		j.Priority = *u.Priority
	}
	if u.Description != nil {
		j.Description = *u.Description
	}
	if u.RequestedDeliveryDate != nil {
		j.RequestedDeliveryDate = u.RequestedDeliveryDate
	}
	out := *j
	return &out, nil
}

func (r *fakeRepo) TransitionJob(ctx context.Context, jobNumber string, to models.JobStatus) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobNumber]
	if !ok {
		return nil, errors.NewJobNotFoundError(jobNumber)
	}
	if !j.Status.CanTransition(to) {
		return nil, errors.NewInvalidJobTransitionError(jobNumber, string(j.Status), string(to))
	}
	j.Status = to
	out := *j
	return &out, nil
}

func (r *fakeRepo) AttachPO(ctx context.Context, jobNumber, poNumber string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobNumber]
	if !ok {
		return nil, errors.NewJobNotFoundError(jobNumber)
	}
	j.PONumber = poNumber
	j.FinancialHold = false
	j.FinancialHoldReason = ""
	if j.Status == models.JobFinancialHold {
		j.Status = models.JobScheduled
	}
	out := *j
	return &out, nil
}

func (r *fakeRepo) AddCustomer(ctx context.Context, name, email, phone string) (*models.Customer, error) {
	c := models.Customer{ID: int64(len(r.customers) + 1), Name: name, Email: email, Phone: phone, Active: true, PaymentTermsDays: 30}
	r.customers = append(r.customers, c)
	return &c, nil
}

func (r *fakeRepo) ListCustomers(ctx context.Context, activeOnly bool) ([]models.Customer, error) {
	return r.customers, nil
}

func (r *fakeRepo) AddMachine(ctx context.Context, m models.Machine) (*models.Machine, error) {
	m.ID = int64(len(r.machines) + 1)
	r.machines[m.ID] = m
	return &m, nil
}

func (r *fakeRepo) ListMachines(ctx context.Context) ([]models.Machine, error) {
	out := make([]models.Machine, 0, len(r.machines))
	for _, m := range r.machines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) GetMachine(ctx context.Context, id int64) (*models.Machine, error) {
	m, ok := r.machines[id]
	if !ok {
		return nil, fmt.Errorf("machine %d not found", id)
	}
	return &m, nil
}

func (r *fakeRepo) ListEstimates(ctx context.Context, limit int) ([]models.Estimate, error) {
	var out []models.Estimate
	for _, e := range r.estimates {
		out = append(out, *e)
	}
	return out, nil
}

func (r *fakeRepo) GetEstimate(ctx context.Context, number string) (*models.Estimate, error) {
	e, ok := r.estimates[number]
	if !ok {
		return nil, errors.NewEstimateNotFoundError(number)
	}
	out := *e
	return &out, nil
}

func (r *fakeRepo) TransitionEstimate(ctx context.Context, number string, to models.EstimateStatus, reason string) (*models.Estimate, error) {
	e, ok := r.estimates[number]
	if !ok {
		return nil, errors.NewEstimateNotFoundError(number)
	}
	if !e.Status.CanTransition(to) {
		return nil, errors.NewInvalidEstimateTransitionError(number, string(e.Status), string(to))
	}
	e.Status = to
	if to == models.EstimateRejected {
		e.RejectionReason = reason
	}
	out := *e
	return &out, nil
}

func (r *fakeRepo) JobCountsByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	out := map[models.JobStatus]int{}
	for _, j := range r.jobs {
		out[j.Status]++
	}
	return out, nil
}

func (r *fakeRepo) QuotedRevenue(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, j := range r.jobs {
		if j.QuotedPrice != nil && j.Status != models.JobCancelled {
			total = total.Add(*j.QuotedPrice)
		}
	}
	return total, nil
}

// ==========================
// Inventory, schedule, search, mail
// ==========================

type fakeItems struct {
	mu    sync.Mutex
	items map[int64]models.Item
	err   error
}

func newFakeItems() *fakeItems {
	return &fakeItems{items: map[int64]models.Item{
		1: {ID: 1, Name: "Aluminum 6061 Sheet", SKU: "AL-6061", QuantityOnHand: 200, ReorderPoint: 20,
			CostPerUnit: decimal.NewFromInt(45), VendorLeadTimeDays: 5, UOM: "each"},
		2: {ID: 2, Name: "Brass Rod", SKU: "BR-360", QuantityOnHand: 4, ReorderPoint: 10,
			CostPerUnit: decimal.RequireFromString("12.50"), VendorLeadTimeDays: 12, VendorName: "Metals Inc", UOM: "each"},
	}}
}

func (f *fakeItems) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[id]
	if !ok {
		return nil, errors.NewItemNotFoundError(id, nil)
	}
	return &item, nil
}

func (f *fakeItems) GetItemBySKU(ctx context.Context, sku string) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if strings.EqualFold(item.SKU, sku) {
			out := item
			return &out, nil
		}
	}
	return nil, errors.NewItemNotFoundError(0, nil)
}

func (f *fakeItems) FindItemsByName(ctx context.Context, name string) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Item
	for _, item := range f.items {
		if strings.Contains(strings.ToLower(item.Name), strings.ToLower(name)) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItems) ListItems(ctx context.Context) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Item, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeItems) LowStockItems(ctx context.Context) ([]models.Item, error) {
	all, _ := f.ListItems(ctx)
	var out []models.Item
	for _, item := range all {
		if item.LowStock() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItems) SetQuantity(ctx context.Context, id int64, quantity int) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[id]
	item.QuantityOnHand = quantity
	f.items[id] = item
	return &item, nil
}

type fakeSchedule struct {
	noMachines bool
	slotStart  time.Time
	schedules  []models.MachineSchedule
}

func (f *fakeSchedule) FindSlot(ctx context.Context, machineType string, durationHours float64, earliestStart time.Time) (*models.SlotResult, error) {
	if f.noMachines {
		return nil, errors.NewNoCapacityFoundError(machineType, scheduling.ErrNoCapacityFound)
	}
	return &models.SlotResult{
		Best: models.SlotCandidate{
			MachineID:   1,
			MachineName: "CNC-Mill-1",
			Start:       f.slotStart,
			End:         f.slotStart.Add(scheduling.Hours(durationHours)),
		},
		Alternatives: []models.SlotCandidate{},
	}, nil
}

func (f *fakeSchedule) Schedules(ctx context.Context, from, to time.Time) ([]models.MachineSchedule, error) {
	return f.schedules, nil
}

type fakeIndex struct {
	indexed   []string
	searchErr error
	results   []models.Job
}

func (f *fakeIndex) IndexJob(ctx context.Context, job models.Job) error {
	f.indexed = append(f.indexed, job.JobNumber)
	return nil
}

func (f *fakeIndex) SearchJobs(ctx context.Context, query string, limit int) ([]models.Job, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

type fakeMailer struct {
	sent   []string
	texted []string
	err    error
}

func (f *fakeMailer) SendEstimate(ctx context.Context, est *models.Estimate) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.sent = append(f.sent, est.EstimateNumber)
	return true, nil
}

func (f *fakeMailer) JobReady(ctx context.Context, job *models.Job, phone string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.texted = append(f.texted, phone)
	return true, nil
}

type fakeNarrator struct {
	text string
	err  error
}

func (f *fakeNarrator) Execute(ctx context.Context, in *llmsynthesis.Input) (*llmsynthesis.Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llmsynthesis.Output{Narrative: f.text}, nil
}

// brokenInventoryStage and brokenCostingStage panic inside Analyze.
type brokenInventoryStage struct{}

func (brokenInventoryStage) Analyze(ctx context.Context, input *inventorycheck.Input) *inventorycheck.Output {
	var counts map[int64]int
	counts[1]++
	return nil
}

type brokenCostingStage struct{}

func (brokenCostingStage) Analyze(ctx context.Context, input *costingcheck.Input) (*costingcheck.Output, error) {
	var out *costingcheck.Output
	return out, fmt.Errorf("unreachable: %v", out.Result)
}

// ==========================
// Harness
// ==========================

type harness struct {
	d          *Dispatcher
	repo       *fakeRepo
	items      *fakeItems
	schedule   *fakeSchedule
	index      *fakeIndex
	mailer     *fakeMailer
	narrator   *fakeNarrator
	classifier *scriptedClassifier
	conv       *conversation.Store
}

type harnessConfig struct {
	parallel      bool
	allowFallback bool
	noMachines    bool

	// stage overrides; nil keeps the real handler
	inventoryStage InventoryStage
	costingStage   CostingStage
}

func newHarness(t *testing.T, opts ...func(*harnessConfig)) *harness {
	t.Helper()
	hc := harnessConfig{parallel: true, allowFallback: true}
	for _, o := range opts {
		o(&hc)
	}

	log := logger.NewTestLogger(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h := &harness{
		repo:       newFakeRepo(),
		items:      newFakeItems(),
		schedule:   &fakeSchedule{noMachines: hc.noMachines, slotStart: fixedNow.AddDate(0, 0, 7)},
		index:      &fakeIndex{},
		mailer:     &fakeMailer{},
		narrator:   &fakeNarrator{text: "Here are three ways to build your brackets."},
		classifier: &scriptedClassifier{byMessage: map[string]models.Classification{}},
		conv:       conversation.NewStore(rdb, time.Hour, log),
	}

	invService := inventory.NewService(h.items, log).WithClock(clock)

	invCfg := inventorycheck.LoadConfig(nil)
	invCfg.AllowFallback = hc.allowFallback
	schedCfg := schedulingcheck.LoadConfig(nil)
	schedCfg.AllowFallback = hc.allowFallback
	costCfg := costingcheck.LoadConfig(nil)
	costCfg.AllowFallback = hc.allowFallback

	calc := costing.NewCalculator(h.items, h.repo, log).WithClock(clock)

	var invStage InventoryStage = inventorycheck.NewHandler(invCfg, invService, log)
	if hc.inventoryStage != nil {
		invStage = hc.inventoryStage
	}
	var costStage CostingStage = costingcheck.NewHandler(costCfg, calc, log).WithClock(clock)
	if hc.costingStage != nil {
		costStage = hc.costingStage
	}

	d, err := NewDispatcher(Deps{
		Classifier:      h.classifier,
		Conversation:    h.conv,
		Repo:            h.repo,
		Search:          h.index,
		Inventory:       invService,
		Schedule:        h.schedule,
		Notifier:        h.mailer,
		InventoryStage:  invStage,
		SchedulingStage: schedulingcheck.NewHandler(schedCfg, h.schedule, log).WithClock(clock),
		CostingStage:    costStage,
		Synthesizer:     synthesizequote.NewHandler(synthesizequote.LoadConfig(nil), h.narrator, log),
		Logger:          log,
	}, Options{Parallel: hc.parallel, AssistantName: "Foreman"})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	h.d = d.WithClock(clock)
	return h
}

func (h *harness) on(message string, intent models.Intent, rc models.RequestContext) {
	h.classifier.byMessage[message] = models.Classification{Intent: intent, Context: rc, Confidence: 0.9}
}
