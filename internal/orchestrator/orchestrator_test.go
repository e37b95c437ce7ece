package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/devgould/petstudio/internal/domain"
	"github.com/devgould/petstudio/internal/provider"
	"github.com/devgould/petstudio/internal/repo"
)

// --- Fakes ---

type fakeOrderStore struct {
	order   *domain.Order
	updates int
}

func (f *fakeOrderStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, repo.ErrNotFound
	}
	copy := *f.order
	return &copy, nil
}

func (f *fakeOrderStore) Update(_ context.Context, order *domain.Order) error {
	if f.order == nil || f.order.ID != order.ID {
		return repo.ErrNotFound
	}
	copy := *order
	f.order = &copy
	f.updates++
	return nil
}

type fakeSubJobStore struct {
	jobs []domain.SubJob
}

func (f *fakeSubJobStore) Create(_ context.Context, job *domain.SubJob) error {
	f.jobs = append(f.jobs, *job)
	return nil
}

func (f *fakeSubJobStore) Update(_ context.Context, job *domain.SubJob) error {
	for i := range f.jobs {
		if f.jobs[i].ID == job.ID {
			f.jobs[i] = *job
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeSubJobStore) ListByOrderAndBatch(_ context.Context, orderID uuid.UUID, batch int) ([]domain.SubJob, error) {
	var out []domain.SubJob
	for _, j := range f.jobs {
		if j.OrderID == orderID && j.Batch == batch {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeArtifactStore struct {
	artifacts []domain.ResultArtifact
}

func (f *fakeArtifactStore) Create(_ context.Context, a *domain.ResultArtifact) error {
	f.artifacts = append(f.artifacts, *a)
	return nil
}

func (f *fakeArtifactStore) CountBySubJob(_ context.Context, subJobID uuid.UUID) (int, error) {
	count := 0
	for _, a := range f.artifacts {
		if a.SubJobID == subJobID {
			count++
		}
	}
	return count, nil
}

type fakeProvider struct {
	jobs      map[string]*provider.Job
	created   []*provider.CreateJobRequest
	createErr error
	getCalls  int
}

func (f *fakeProvider) CreateJob(_ context.Context, req *provider.CreateJobRequest) (*provider.Job, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &provider.Job{
		ID:     fmt.Sprintf("ext-%d", len(f.created)),
		Status: provider.StatusStarting,
	}, nil
}

func (f *fakeProvider) GetJob(_ context.Context, externalID string) (*provider.Job, error) {
	f.getCalls++
	if job, ok := f.jobs[externalID]; ok {
		return job, nil
	}
	return nil, provider.ErrJobNotFound
}

type fakeObjectStore struct {
	copies map[string]string // key → src
	err    error
}

func (f *fakeObjectStore) CopyFromURL(_ context.Context, srcURL, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.copies == nil {
		f.copies = make(map[string]string)
	}
	f.copies[key] = srcURL
	return "https://bucket.s3.amazonaws.com/" + key, nil
}

type fakeEvents struct {
	events []string
}

func (f *fakeEvents) PublishOrderEvent(_ context.Context, orderID uuid.UUID, event string) error {
	f.events = append(f.events, event)
	return nil
}

// --- Harness ---

type fixture struct {
	orders    *fakeOrderStore
	subJobs   *fakeSubJobStore
	artifacts *fakeArtifactStore
	prov      *fakeProvider
	store     *fakeObjectStore
	events    *fakeEvents
	orch      *Orchestrator
}

func newFixture(order *domain.Order) *fixture {
	f := &fixture{
		orders:    &fakeOrderStore{order: order},
		subJobs:   &fakeSubJobStore{},
		artifacts: &fakeArtifactStore{},
		prov:      &fakeProvider{jobs: make(map[string]*provider.Job)},
		store:     &fakeObjectStore{},
		events:    &fakeEvents{},
	}
	f.orch = New(Config{
		Orders:    f.orders,
		SubJobs:   f.subJobs,
		Artifacts: f.artifacts,
		Provider:  f.prov,
		Store:     f.store,
		Events:    f.events,
	})
	return f
}

func trainingOrder() *domain.Order {
	return &domain.Order{
		ID:                   uuid.New(),
		Status:               domain.OrderStatusTraining,
		TrainingImagesZipURL: "https://bucket/input.zip",
		TrainingJobID:        "train-1",
		TrainingJobStatus:    domain.SubJobStatusStarting,
		CreatedAt:            time.Now(),
	}
}

// --- Tests ---

func TestCheckOrder_PendingSubmitsTraining(t *testing.T) {
	order := &domain.Order{
		ID:                   uuid.New(),
		Status:               domain.OrderStatusPending,
		TrainingImagesZipURL: "https://bucket/input.zip",
	}
	f := newFixture(order)

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.orders.order
	if got.Status != domain.OrderStatusTraining {
		t.Errorf("expected TRAINING, got %s", got.Status)
	}
	if got.TrainingJobID == "" {
		t.Error("expected training job id to be set")
	}
	if got.TrainingStartedAt == nil {
		t.Error("expected training started timestamp")
	}

	if len(f.prov.created) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(f.prov.created))
	}
	input := f.prov.created[0].Input
	if input["instance_data"] != "https://bucket/input.zip" {
		t.Errorf("expected customer zip as instance_data, got %v", input["instance_data"])
	}
	if input["seed"] != 1337 {
		t.Errorf("expected fixed seed, got %v", input["seed"])
	}
}

func TestCheckOrder_RejectedSubmissionLeavesOrderUntouched(t *testing.T) {
	order := &domain.Order{
		ID:     uuid.New(),
		Status: domain.OrderStatusPending,
	}
	f := newFixture(order)
	f.prov.createErr = provider.ErrRejected

	err := f.orch.CheckOrder(context.Background(), order.ID)
	if !errors.Is(err, provider.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	if f.orders.order.Status != domain.OrderStatusPending {
		t.Errorf("order must stay PENDING, got %s", f.orders.order.Status)
	}
	if f.orders.updates != 0 {
		t.Errorf("expected no updates, got %d", f.orders.updates)
	}
}

func TestCheckOrder_TrainingStillRunning(t *testing.T) {
	// Сценарий A: обучение ещё идёт — статус заказа не меняется
	order := trainingOrder()
	f := newFixture(order)
	f.prov.jobs["train-1"] = &provider.Job{ID: "train-1", Status: provider.StatusProcessing}

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.orders.order
	if got.Status != domain.OrderStatusTraining {
		t.Errorf("expected TRAINING, got %s", got.Status)
	}
	if got.TrainingJobStatus != domain.SubJobStatusProcessing {
		t.Errorf("expected mirrored status processing, got %s", got.TrainingJobStatus)
	}
}

func TestCheckOrder_TrainingSucceededFansOut(t *testing.T) {
	// Сценарий B: обучение завершилось — модель сохранена, batch отправлен
	order := trainingOrder()
	f := newFixture(order)
	f.prov.jobs["train-1"] = &provider.Job{
		ID:     "train-1",
		Status: provider.StatusSucceeded,
		Output: provider.OutputURLs{"https://provider/model.zip"},
	}

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.orders.order
	if got.Status != domain.OrderStatusInfering {
		t.Errorf("expected INFERING, got %s", got.Status)
	}
	if got.ModelURL != "https://provider/model.zip" {
		t.Errorf("unexpected model url %q", got.ModelURL)
	}
	if !strings.Contains(got.TrainedModelURL, "trained-model.zip") {
		t.Errorf("expected persisted model url, got %q", got.TrainedModelURL)
	}
	if got.InferenceBatch != 1 {
		t.Errorf("expected batch 1, got %d", got.InferenceBatch)
	}

	if len(f.subJobs.jobs) != len(inferencePrompts) {
		t.Errorf("expected %d sub-jobs, got %d", len(inferencePrompts), len(f.subJobs.jobs))
	}
	for _, j := range f.subJobs.jobs {
		if j.Batch != 1 {
			t.Errorf("sub-job in wrong batch %d", j.Batch)
		}
		if j.OrderID != order.ID {
			t.Errorf("sub-job bound to wrong order")
		}
	}
}

func TestCheckOrder_TrainingSucceededWithoutOutputFails(t *testing.T) {
	order := trainingOrder()
	f := newFixture(order)
	f.prov.jobs["train-1"] = &provider.Job{ID: "train-1", Status: provider.StatusSucceeded}

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.orders.order.Status != domain.OrderStatusFailed {
		t.Errorf("expected FAILED, got %s", f.orders.order.Status)
	}
	if len(f.events.events) != 1 || f.events.events[0] != "order.failed" {
		t.Errorf("expected order.failed event, got %v", f.events.events)
	}
}

func TestCheckOrder_TrainingFailed(t *testing.T) {
	order := trainingOrder()
	f := newFixture(order)
	f.prov.jobs["train-1"] = &provider.Job{ID: "train-1", Status: provider.StatusFailed, Error: "OOM"}

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.orders.order.Status != domain.OrderStatusFailed {
		t.Errorf("expected FAILED, got %s", f.orders.order.Status)
	}
}

// inferingFixture готовит заказ в INFERING с sub-jobs в указанных статусах.
func inferingFixture(t *testing.T, statuses ...domain.SubJobStatus) (*fixture, *domain.Order) {
	t.Helper()

	order := &domain.Order{
		ID:             uuid.New(),
		Status:         domain.OrderStatusInfering,
		ModelURL:       "https://provider/model.zip",
		InferenceBatch: 1,
	}
	f := newFixture(order)

	for i, st := range statuses {
		extID := fmt.Sprintf("inf-%d", i)
		job := domain.SubJob{
			ID:         uuid.New(),
			OrderID:    order.ID,
			Batch:      1,
			ExternalID: extID,
			Status:     domain.SubJobStatusStarting,
		}
		f.subJobs.jobs = append(f.subJobs.jobs, job)

		pj := &provider.Job{ID: extID, Status: provider.Status(st)}
		if st == domain.SubJobStatusSucceeded {
			pj.Output = provider.OutputURLs{
				fmt.Sprintf("https://provider/%d-a.jpg", i),
				fmt.Sprintf("https://provider/%d-b.jpg", i),
			}
		}
		f.prov.jobs[extID] = pj
	}
	return f, order
}

func TestCheckOrder_InferencePartialProgress(t *testing.T) {
	// Сценарий C (частично): часть succeeded, часть ещё идёт — без перехода
	f, order := inferingFixture(t,
		domain.SubJobStatusSucceeded,
		domain.SubJobStatusProcessing,
		domain.SubJobStatusStarting,
	)

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.orders.order.Status != domain.OrderStatusInfering {
		t.Errorf("expected INFERING, got %s", f.orders.order.Status)
	}

	// Статусы sub-jobs обновлены из ответа провайдера
	if f.subJobs.jobs[0].Status != domain.SubJobStatusSucceeded {
		t.Errorf("expected succeeded, got %s", f.subJobs.jobs[0].Status)
	}
	if f.subJobs.jobs[1].Status != domain.SubJobStatusProcessing {
		t.Errorf("expected processing, got %s", f.subJobs.jobs[1].Status)
	}
}

func TestCheckOrder_InferenceMemberFailed(t *testing.T) {
	// Сценарий C: один sub-job упал — заказ FAILED, не дожидаясь остальных
	f, order := inferingFixture(t,
		domain.SubJobStatusSucceeded,
		domain.SubJobStatusFailed,
		domain.SubJobStatusProcessing,
	)

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.orders.order.Status != domain.OrderStatusFailed {
		t.Errorf("expected FAILED, got %s", f.orders.order.Status)
	}
	if len(f.events.events) != 1 || f.events.events[0] != "order.failed" {
		t.Errorf("expected order.failed event, got %v", f.events.events)
	}
}

func TestCheckOrder_InferenceAllSucceeded(t *testing.T) {
	// Сценарий D: все sub-jobs succeeded — COMPLETED + артефакты + событие
	f, order := inferingFixture(t,
		domain.SubJobStatusSucceeded,
		domain.SubJobStatusSucceeded,
	)

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.orders.order.Status != domain.OrderStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", f.orders.order.Status)
	}
	// 2 sub-jobs × 2 изображения
	if len(f.artifacts.artifacts) != 4 {
		t.Errorf("expected 4 artifacts, got %d", len(f.artifacts.artifacts))
	}
	if len(f.events.events) != 1 || f.events.events[0] != "order.completed" {
		t.Errorf("expected order.completed event, got %v", f.events.events)
	}
}

func TestCheckOrder_EmptyBatchFails(t *testing.T) {
	f, order := inferingFixture(t) // ни одного sub-job

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.orders.order.Status != domain.OrderStatusFailed {
		t.Errorf("expected FAILED for empty batch, got %s", f.orders.order.Status)
	}
}

func TestCheckOrder_TerminalIsNoOp(t *testing.T) {
	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusCompleted}
	f := newFixture(order)

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.prov.getCalls != 0 || len(f.prov.created) != 0 {
		t.Error("terminal order must not touch the provider")
	}
	if f.orders.updates != 0 {
		t.Error("terminal order must not be updated")
	}
}

func TestCheckOrder_CompletedIsIdempotent(t *testing.T) {
	// Повторная доставка команды проверки после завершения безопасна
	f, order := inferingFixture(t, domain.SubJobStatusSucceeded)

	for i := 0; i < 3; i++ {
		if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
			t.Fatalf("check %d: unexpected error: %v", i, err)
		}
	}

	if f.orders.order.Status != domain.OrderStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", f.orders.order.Status)
	}
	if len(f.events.events) != 1 {
		t.Errorf("expected exactly one event, got %v", f.events.events)
	}
	// Артефакты не дублируются
	if len(f.artifacts.artifacts) != 2 {
		t.Errorf("expected 2 artifacts, got %d", len(f.artifacts.artifacts))
	}
}

func TestCheckOrder_StorageFailureDoesNotBlockCompletion(t *testing.T) {
	f, order := inferingFixture(t, domain.SubJobStatusSucceeded)
	f.store.err = errors.New("s3 down")

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.orders.order.Status != domain.OrderStatusCompleted {
		t.Errorf("expected COMPLETED despite storage failure, got %s", f.orders.order.Status)
	}
	if len(f.artifacts.artifacts) != 0 {
		t.Errorf("expected no artifacts, got %d", len(f.artifacts.artifacts))
	}
}

func TestCheckOrder_UploadingModelResumes(t *testing.T) {
	// Заказ завис в UPLOADING_MODEL (упали между переходами) — проверка доводит его
	order := &domain.Order{
		ID:       uuid.New(),
		Status:   domain.OrderStatusUploadingModel,
		ModelURL: "https://provider/model.zip",
	}
	f := newFixture(order)

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.orders.order
	if got.Status != domain.OrderStatusInfering {
		t.Errorf("expected INFERING, got %s", got.Status)
	}
	if got.TrainedModelURL == "" {
		t.Error("expected model to be persisted")
	}
	if len(f.subJobs.jobs) != len(inferencePrompts) {
		t.Errorf("expected %d sub-jobs, got %d", len(inferencePrompts), len(f.subJobs.jobs))
	}
}

func TestCheckOrder_NotFound(t *testing.T) {
	f := newFixture(nil)

	err := f.orch.CheckOrder(context.Background(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestUploadResults_RetriesMissedArtifacts(t *testing.T) {
	f, order := inferingFixture(t, domain.SubJobStatusSucceeded, domain.SubJobStatusSucceeded)
	f.store.err = errors.New("s3 down")

	if err := f.orch.CheckOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.artifacts.artifacts) != 0 {
		t.Fatalf("expected no artifacts yet, got %d", len(f.artifacts.artifacts))
	}

	// storage ожил — повторная выгрузка через UploadResults
	f.store.err = nil
	if err := f.orch.UploadResults(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.artifacts.artifacts) != 4 {
		t.Errorf("expected 4 artifacts after retry, got %d", len(f.artifacts.artifacts))
	}
}

func TestRestart_ResubmitsTraining(t *testing.T) {
	order := trainingOrder()
	order.Status = domain.OrderStatusFailed
	f := newFixture(order)

	if err := f.orch.Restart(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.orders.order
	if got.Status != domain.OrderStatusTraining {
		t.Errorf("expected TRAINING after restart, got %s", got.Status)
	}
	if got.TrainingJobID == "train-1" {
		t.Error("expected a new training job id")
	}
}

func TestRestart_RejectedLeavesPending(t *testing.T) {
	order := trainingOrder()
	order.Status = domain.OrderStatusFailed
	f := newFixture(order)
	f.prov.createErr = provider.ErrRejected

	err := f.orch.Restart(context.Background(), order.ID)
	if !errors.Is(err, provider.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	// Заказ остаётся в PENDING — restart можно повторить
	if f.orders.order.Status != domain.OrderStatusPending {
		t.Errorf("expected PENDING, got %s", f.orders.order.Status)
	}

	// Провайдер ожил — повторный restart из PENDING проходит
	f.prov.createErr = nil
	if err := f.orch.Restart(context.Background(), order.ID); err != nil {
		t.Fatalf("retry after rejection: unexpected error: %v", err)
	}
	if f.orders.order.Status != domain.OrderStatusTraining {
		t.Errorf("expected TRAINING after retry, got %s", f.orders.order.Status)
	}
}

func TestRestartInference_StartsNewBatch(t *testing.T) {
	f, order := inferingFixture(t, domain.SubJobStatusFailed)
	f.orders.order.Status = domain.OrderStatusFailed

	if err := f.orch.RestartInference(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.orders.order
	if got.Status != domain.OrderStatusInfering {
		t.Errorf("expected INFERING, got %s", got.Status)
	}
	if got.InferenceBatch != 2 {
		t.Errorf("expected batch 2, got %d", got.InferenceBatch)
	}

	// Новый batch не смешивается со старым
	newBatch, _ := f.subJobs.ListByOrderAndBatch(context.Background(), order.ID, 2)
	if len(newBatch) != len(inferencePrompts) {
		t.Errorf("expected %d sub-jobs in batch 2, got %d", len(inferencePrompts), len(newBatch))
	}
}

func TestRestartInference_RequiresModel(t *testing.T) {
	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusFailed}
	f := newFixture(order)

	err := f.orch.RestartInference(context.Background(), order.ID)
	if !errors.Is(err, ErrModelNotReady) {
		t.Fatalf("expected ErrModelNotReady, got %v", err)
	}
}
