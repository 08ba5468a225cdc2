package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apidomain "github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/model"
	"github.com/lancerhub/marketplace-be/internal/escrow"
	"github.com/lancerhub/marketplace-be/internal/gateway"
	"github.com/lancerhub/marketplace-be/internal/worker/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeJobStore allocates slots under a mutex, mirroring the single-statement
// semantics of the conditional update in the real store.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job

	err error
}

func newFakeJobStore(jobs ...*model.Job) *fakeJobStore {
	m := make(map[string]*model.Job, len(jobs))
	for _, j := range jobs {
		cp := *j
		m[j.JobID] = &cp
	}
	return &fakeJobStore{jobs: m}
}

func (f *fakeJobStore) AcceptSlot(_ context.Context, jobID string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	job, ok := f.jobs[jobID]
	if !ok {
		return nil, apidomain.ErrJobNotFound
	}
	if job.AcceptedSlots >= job.NumberOfSlots {
		return nil, apidomain.ErrSlotsExhausted
	}

	job.AcceptedSlots++
	if job.AcceptedSlots >= job.NumberOfSlots {
		job.Status = apidomain.JobStatusInProgress
	}

	cp := *job
	return &cp, nil
}

type fakeContractStore struct {
	mu        sync.Mutex
	contracts []*model.Contract
	seen      map[string]bool

	err error
}

func newFakeContractStore() *fakeContractStore {
	return &fakeContractStore{seen: make(map[string]bool)}
}

func (f *fakeContractStore) CreateContract(_ context.Context, contract *model.Contract) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	if f.seen[contract.ProposalID] {
		return apidomain.ErrDuplicateProposal
	}
	f.seen[contract.ProposalID] = true
	cp := *contract
	f.contracts = append(f.contracts, &cp)
	return nil
}

type fakePaymentSyncer struct {
	syncErr    error
	recoverErr error

	synced    []string
	recovered []string
}

func (f *fakePaymentSyncer) Sync(_ context.Context, paymentID string) (*model.Payment, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	f.synced = append(f.synced, paymentID)
	return &model.Payment{PaymentID: paymentID, Status: apidomain.PaymentStatusCompleted}, nil
}

func (f *fakePaymentSyncer) RecoverOrphan(_ context.Context, paymentID string) error {
	if f.recoverErr != nil {
		return f.recoverErr
	}
	f.recovered = append(f.recovered, paymentID)
	return nil
}

func newTestWorker(jobs SlotAllocator, contracts ContractCreator, payments PaymentSyncer) *Worker {
	return NewWorker(&Config{
		Logger:      testLogger(),
		Jobs:        jobs,
		Contracts:   contracts,
		Payments:    payments,
		Concurrency: 1,
	})
}

func openJob(slots int) *model.Job {
	return &model.Job{
		JobID:         uuid.New().String(),
		ClientID:      uuid.New().String(),
		Title:         "Logo design",
		Budget:        30000,
		NumberOfSlots: slots,
		Status:        apidomain.JobStatusOpen,
	}
}

func proposalAcceptedBody(t *testing.T, jobID string) []byte {
	t.Helper()

	body, err := json.Marshal(domain.ProposalAcceptedEvent{
		EventType:    domain.EventProposalAccepted,
		ProposalID:   uuid.New().String(),
		JobID:        jobID,
		UserID:       uuid.New().String(),
		EscrowAmount: 30000,
	})
	require.NoError(t, err)
	return body
}

func TestWorker_ProcessMessage_UnknownEvent(t *testing.T) {
	w := newTestWorker(newFakeJobStore(), newFakeContractStore(), &fakePaymentSyncer{})

	err := w.processMessage(context.Background(), &domain.TaskMessage{
		EventType: "something.else",
		Body:      []byte(`{}`),
	})

	assert.ErrorIs(t, err, domain.ErrUnknownEvent)
}

func TestWorker_HandleProposalAccepted(t *testing.T) {
	t.Run("claims slot and creates contract", func(t *testing.T) {
		job := openJob(2)
		jobs := newFakeJobStore(job)
		contracts := newFakeContractStore()
		w := newTestWorker(jobs, contracts, &fakePaymentSyncer{})

		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventProposalAccepted,
			Body:      proposalAcceptedBody(t, job.JobID),
		})

		require.NoError(t, err)
		require.Len(t, contracts.contracts, 1)
		assert.Equal(t, apidomain.ContractStatusActive, contracts.contracts[0].Status)
		assert.Equal(t, int64(30000), contracts.contracts[0].EscrowAmount)
		// The insert writes the timestamp columns explicitly, so the
		// contract must carry real times rather than zero values.
		assert.False(t, contracts.contracts[0].CreatedAt.IsZero())
		assert.False(t, contracts.contracts[0].UpdatedAt.IsZero())
	})

	t.Run("final slot moves the job to in_progress", func(t *testing.T) {
		job := openJob(1)
		jobs := newFakeJobStore(job)
		w := newTestWorker(jobs, newFakeContractStore(), &fakePaymentSyncer{})

		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventProposalAccepted,
			Body:      proposalAcceptedBody(t, job.JobID),
		})

		require.NoError(t, err)
		assert.Equal(t, apidomain.JobStatusInProgress, jobs.jobs[job.JobID].Status)
	})

	t.Run("exhausted slots - not retryable", func(t *testing.T) {
		job := openJob(1)
		job.AcceptedSlots = 1
		job.Status = apidomain.JobStatusInProgress
		w := newTestWorker(newFakeJobStore(job), newFakeContractStore(), &fakePaymentSyncer{})

		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventProposalAccepted,
			Body:      proposalAcceptedBody(t, job.JobID),
		})

		assert.ErrorIs(t, err, apidomain.ErrSlotsExhausted)
		assert.False(t, w.shouldRequeue(err))
	})

	t.Run("duplicate proposal - not retryable", func(t *testing.T) {
		job := openJob(3)
		jobs := newFakeJobStore(job)
		contracts := newFakeContractStore()
		w := newTestWorker(jobs, contracts, &fakePaymentSyncer{})

		body := proposalAcceptedBody(t, job.JobID)

		require.NoError(t, w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventProposalAccepted,
			Body:      body,
		}))

		// Redelivery of the same proposal hits the unique constraint.
		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventProposalAccepted,
			Body:      body,
		})

		assert.ErrorIs(t, err, apidomain.ErrDuplicateProposal)
		assert.False(t, w.shouldRequeue(err))
	})

	t.Run("transient store failure - retryable", func(t *testing.T) {
		jobs := newFakeJobStore(openJob(1))
		jobs.err = errors.New("connection reset")
		w := newTestWorker(jobs, newFakeContractStore(), &fakePaymentSyncer{})

		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventProposalAccepted,
			Body:      proposalAcceptedBody(t, uuid.New().String()),
		})

		require.Error(t, err)
		assert.True(t, w.shouldRequeue(err))
	})

	t.Run("invalid payloads - not retryable", func(t *testing.T) {
		tests := []struct {
			name string
			body []byte
		}{
			{
				name: "malformed json",
				body: []byte(`{not json`),
			},
			{
				name: "bad job id",
				body: []byte(`{"event_type":"proposal.accepted","proposal_id":"` + uuid.New().String() + `","job_id":"nope","user_id":"` + uuid.New().String() + `","escrow_amount":100}`),
			},
			{
				name: "zero escrow amount",
				body: []byte(`{"event_type":"proposal.accepted","proposal_id":"` + uuid.New().String() + `","job_id":"` + uuid.New().String() + `","user_id":"` + uuid.New().String() + `","escrow_amount":0}`),
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := newTestWorker(newFakeJobStore(), newFakeContractStore(), &fakePaymentSyncer{})

				err := w.processMessage(context.Background(), &domain.TaskMessage{
					EventType: domain.EventProposalAccepted,
					Body:      tt.body,
				})

				assert.ErrorIs(t, err, domain.ErrInvalidPayload)
				assert.False(t, w.shouldRequeue(err))
			})
		}
	})
}

func TestWorker_ConcurrentSlotClaims(t *testing.T) {
	// Three proposals race for two slots; exactly one must lose.
	job := openJob(2)
	jobs := newFakeJobStore(job)
	contracts := newFakeContractStore()
	w := newTestWorker(jobs, contracts, &fakePaymentSyncer{})

	var wg sync.WaitGroup
	results := make(chan error, 3)

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- w.processMessage(context.Background(), &domain.TaskMessage{
				EventType: domain.EventProposalAccepted,
				Body:      proposalAcceptedBody(t, job.JobID),
			})
		}()
	}

	wg.Wait()
	close(results)

	var succeeded, exhausted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apidomain.ErrSlotsExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, exhausted)
	assert.Equal(t, 2, jobs.jobs[job.JobID].AcceptedSlots)
	assert.Equal(t, apidomain.JobStatusInProgress, jobs.jobs[job.JobID].Status)
	assert.Len(t, contracts.contracts, 2)
}

func TestWorker_HandlePaymentSync(t *testing.T) {
	paymentID := uuid.New().String()

	syncBody := func() []byte {
		body, _ := json.Marshal(domain.PaymentSyncEvent{
			EventType: domain.EventPaymentSync,
			PaymentID: paymentID,
		})
		return body
	}

	t.Run("syncs payment", func(t *testing.T) {
		syncer := &fakePaymentSyncer{}
		w := newTestWorker(newFakeJobStore(), newFakeContractStore(), syncer)

		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventPaymentSync,
			Body:      syncBody(),
		})

		require.NoError(t, err)
		assert.Equal(t, []string{paymentID}, syncer.synced)
		assert.Empty(t, syncer.recovered)
	})

	t.Run("falls back to orphan recovery", func(t *testing.T) {
		syncer := &fakePaymentSyncer{syncErr: escrow.ErrNoTransaction}
		w := newTestWorker(newFakeJobStore(), newFakeContractStore(), syncer)

		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventPaymentSync,
			Body:      syncBody(),
		})

		require.NoError(t, err)
		assert.Equal(t, []string{paymentID}, syncer.recovered)
	})

	t.Run("missing payment - not retryable", func(t *testing.T) {
		syncer := &fakePaymentSyncer{syncErr: apidomain.ErrPaymentNotFound}
		w := newTestWorker(newFakeJobStore(), newFakeContractStore(), syncer)

		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventPaymentSync,
			Body:      syncBody(),
		})

		assert.ErrorIs(t, err, apidomain.ErrPaymentNotFound)
		assert.False(t, w.shouldRequeue(err))
	})

	t.Run("gateway rejection during sync - not retryable", func(t *testing.T) {
		syncer := &fakePaymentSyncer{
			syncErr: &gateway.Error{Kind: gateway.KindRejected, Op: "payment-status", StatusCode: 400},
		}
		w := newTestWorker(newFakeJobStore(), newFakeContractStore(), syncer)

		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventPaymentSync,
			Body:      syncBody(),
		})

		require.Error(t, err)
		assert.True(t, gateway.IsRejected(err))
		assert.False(t, w.shouldRequeue(err))
	})

	t.Run("gateway outage during sync - retryable", func(t *testing.T) {
		syncer := &fakePaymentSyncer{
			syncErr: &gateway.Error{Kind: gateway.KindUnavailable, Op: "payment-status"},
		}
		w := newTestWorker(newFakeJobStore(), newFakeContractStore(), syncer)

		err := w.processMessage(context.Background(), &domain.TaskMessage{
			EventType: domain.EventPaymentSync,
			Body:      syncBody(),
		})

		require.Error(t, err)
		assert.True(t, w.shouldRequeue(err))
	})
}

func TestWorker_ShouldRequeue(t *testing.T) {
	w := newTestWorker(newFakeJobStore(), newFakeContractStore(), &fakePaymentSyncer{})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "retryable wrapper",
			err:  domain.NewRetryableError(errors.New("db down")),
			want: true,
		},
		{
			name: "gateway unavailable",
			err:  &gateway.Error{Kind: gateway.KindUnavailable},
			want: true,
		},
		{
			name: "gateway rejected",
			err:  &gateway.Error{Kind: gateway.KindRejected, StatusCode: 400},
			want: false,
		},
		{
			name: "slots exhausted",
			err:  apidomain.ErrSlotsExhausted,
			want: false,
		},
		{
			name: "duplicate proposal",
			err:  apidomain.ErrDuplicateProposal,
			want: false,
		},
		{
			name: "unknown event",
			err:  domain.ErrUnknownEvent,
			want: false,
		},
		{
			name: "invalid payload",
			err:  domain.ErrInvalidPayload,
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("whatever"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.shouldRequeue(tt.err))
		})
	}
}
