package processor

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"homekeys/server/config"
	"homekeys/server/internal/database"
	"homekeys/server/internal/models"
	"homekeys/server/internal/queue"
)

// Batch is one unit of catalog import work
type Batch = []database.PropertyRow

// Transactor is the part of *gorm.DB the processor needs
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// Stats summarizes what the processor has done so far
type Stats struct {
	Batches int64 `json:"batches"`
	Rows    int64 `json:"rows"`
	Failed  int64 `json:"failed"`
}

// BatchProcessor handles the processing of property batches
type BatchProcessor struct {
	db        Transactor
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.Queue[Batch]
	work      chan Batch
	waitGroup sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	batches atomic.Int64
	rows    atomic.Int64
	failed  atomic.Int64
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.Queue[Batch], config *config.Config, logger *logrus.Logger) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		work:   make(chan Batch),
	}
}

// Start subscribes to the queue and launches the workers
func (p *BatchProcessor) Start() {
	p.startOnce.Do(func() {
		count := p.config.BatchProcessing.ProcessorCount
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			p.waitGroup.Add(1)
			go p.processLoop(i)
		}

		p.queue.Subscribe(func(batch Batch) error {
			p.work <- batch
			return nil
		})
		p.queue.Start()
	})
}

// Stop closes the queue, waits for every queued batch to be written and
// then shuts the workers down
func (p *BatchProcessor) Stop() {
	p.stopOnce.Do(func() {
		p.queue.Close()
		close(p.work)
		p.waitGroup.Wait()
	})
}

// Stats returns the running totals
func (p *BatchProcessor) Stats() Stats {
	return Stats{
		Batches: p.batches.Load(),
		Rows:    p.rows.Load(),
		Failed:  p.failed.Load(),
	}
}

// processLoop handles batches until the work channel is closed
func (p *BatchProcessor) processLoop(worker int) {
	defer p.waitGroup.Done()

	for batch := range p.work {
		if err := p.processBatch(batch); err != nil {
			p.failed.Add(1)
			p.logger.WithError(err).WithField("worker", worker).Error("Dropping batch")
		}
	}
}

// processBatch handles a single batch of properties with transaction and retry logic
func (p *BatchProcessor) processBatch(batch Batch) error {
	maxRetries := p.config.BatchProcessing.MaxRetries
	delay := time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.WithFields(logrus.Fields{
				"attempt":     attempt,
				"max_retries": maxRetries,
			}).Info("Retrying batch processing")
			time.Sleep(delay)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertProperties(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert properties batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.batches.Add(1)
			p.rows.Add(int64(len(batch)))
			p.logger.WithField("batch_size", len(batch)).Info("Successfully processed batch")
			return nil
		}

		p.logger.WithError(err).Error("Batch processing failed")
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", maxRetries+1, err)
}

// Split turns a catalog into position-stamped batches of at most size rows
func Split(properties []models.Property, size int) []Batch {
	if size < 1 {
		size = 1
	}
	batches := make([]Batch, 0, (len(properties)+size-1)/size)
	for start := 0; start < len(properties); start += size {
		end := start + size
		if end > len(properties) {
			end = len(properties)
		}
		batch := make(Batch, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, database.NewPropertyRow(properties[i], i))
		}
		batches = append(batches, batch)
	}
	return batches
}
