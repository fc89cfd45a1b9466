package paymentgateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	gatewaytypes "github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/paymentgateway"
	"github.com/oneroskilfu/ireva-app-sub001/pkg/signature"
)

// CallbackJob is a simulated settlement to report back to the webhook.
type CallbackJob struct {
	ProviderID      string
	OrderID         string
	Amount          string
	Currency        string
	ReceiveCurrency string
}

type Worker struct {
	ID         int
	WorkerPool chan chan CallbackJob
	JobChannel chan CallbackJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan CallbackJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan CallbackJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(CallbackJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("sandbox worker processing job", "worker_id", w.ID, "order_id", job.OrderID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("sandbox worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type SandboxConfig struct {
	BaseURL           string
	CallbackURL       string
	Secret            string
	SignatureHeader   string
	SimulateCallbacks bool
	CallbackDelay     time.Duration
	MaxWorkers        int
	JobQueueSize      int
}

// Sandbox is a provider stand-in returning deterministic order data. When
// SimulateCallbacks is set, a worker pool posts signed confirming and paid
// callbacks to the configured callback URL.
type Sandbox struct {
	config     SandboxConfig
	httpClient *http.Client
	logger     *slog.Logger

	jobQueue   chan CallbackJob
	workerPool chan chan CallbackJob
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewSandbox(config SandboxConfig, logger *slog.Logger) *Sandbox {
	ctx, cancel := context.WithCancel(context.Background())

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 2
	}
	if config.JobQueueSize <= 0 {
		config.JobQueueSize = 100
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://sandbox.payments.local"
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = "X-Signature"
	}

	s := &Sandbox{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		jobQueue:   make(chan CallbackJob, config.JobQueueSize),
		workerPool: make(chan chan CallbackJob, config.MaxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	if config.SimulateCallbacks {
		s.startWorkerPool()
	}
	return s
}

func (s *Sandbox) Name() string {
	return "sandbox"
}

func (s *Sandbox) startWorkerPool() {
	s.once.Do(func() {
		for i := 0; i < s.config.MaxWorkers; i++ {
			worker := NewWorker(i, s.workerPool, s.logger)
			worker.Start(s.ctx, &s.wg, s.processJob)
		}

		s.wg.Add(1)
		go s.dispatch()

		s.logger.Info("sandbox callback worker pool started",
			"max_workers", s.config.MaxWorkers,
			"queue_size", cap(s.jobQueue))
	})
}

func (s *Sandbox) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case job := <-s.jobQueue:
			select {
			case jobChannel := <-s.workerPool:
				select {
				case jobChannel <- job:
				case <-s.ctx.Done():
					return
				}
			case <-s.ctx.Done():
				return
			}
		case <-s.ctx.Done():
			s.logger.Info("sandbox dispatcher shutting down")
			return
		}
	}
}

func (s *Sandbox) Shutdown() {
	s.logger.Info("shutting down sandbox payment provider")
	s.cancel()
	s.wg.Wait()
}

// CreateOrder never fails for a valid request; address and URL derive from the order id.
func (s *Sandbox) CreateOrder(ctx context.Context, req *gatewaytypes.OrderRequest) (*gatewaytypes.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest := sha256.Sum256([]byte(req.OrderID))
	order := &gatewaytypes.Order{
		ID:             gatewaytypes.FlexString("sandbox-" + req.OrderID),
		Status:         gatewaytypes.StatusNew,
		PaymentURL:     fmt.Sprintf("%s/pay/%s", strings.TrimRight(s.config.BaseURL, "/"), req.OrderID),
		PaymentAddress: "T" + hex.EncodeToString(digest[:])[:33],
	}

	if s.config.SimulateCallbacks {
		job := CallbackJob{
			ProviderID:      order.ID.String(),
			OrderID:         req.OrderID,
			Amount:          req.PriceAmount.String(),
			Currency:        req.PriceCurrency,
			ReceiveCurrency: req.ReceiveCurrency,
		}
		select {
		case s.jobQueue <- job:
		default:
			s.logger.Warn("sandbox callback queue full, no callback will be simulated", "order_id", req.OrderID)
		}
	}

	s.logger.Info("sandbox order created", "order_id", req.OrderID, "provider_id", order.ID.String())
	return order, nil
}

func (s *Sandbox) processJob(job CallbackJob) {
	for _, status := range []string{gatewaytypes.StatusConfirming, gatewaytypes.StatusPaid} {
		select {
		case <-time.After(s.config.CallbackDelay):
		case <-s.ctx.Done():
			s.logger.Info("sandbox callback cancelled", "order_id", job.OrderID)
			return
		}
		if err := s.sendCallback(job, status); err != nil {
			s.logger.Error("sandbox callback failed", "error", err, "order_id", job.OrderID, "status", status)
			return
		}
	}
}

func (s *Sandbox) sendCallback(job CallbackJob, status string) error {
	payload := gatewaytypes.CallbackPayload{
		ID:              gatewaytypes.FlexString(job.ProviderID),
		OrderID:         job.OrderID,
		Status:          status,
		PriceAmount:     gatewaytypes.FlexString(job.Amount),
		PriceCurrency:   job.Currency,
		ReceiveCurrency: job.ReceiveCurrency,
	}
	// The sandbox quotes no exchange rates, so only same-currency orders report a receive amount.
	if strings.EqualFold(job.Currency, job.ReceiveCurrency) {
		payload.ReceiveAmount = gatewaytypes.FlexString(job.Amount)
	}
	if status == gatewaytypes.StatusPaid {
		digest := sha256.Sum256([]byte(job.OrderID + status))
		payload.TxHash = "0x" + hex.EncodeToString(digest[:])
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback: %w", err)
	}

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.Secret != "" {
		req.Header.Set(s.config.SignatureHeader, signature.Sign([]byte(s.config.Secret), body))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("callback answered with status %d", resp.StatusCode)
	}

	s.logger.Info("sandbox callback delivered", "order_id", job.OrderID, "status", status)
	return nil
}
