package processor

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"homekeys/server/config"
	"homekeys/server/internal/database"
	"homekeys/server/internal/models"
	"homekeys/server/internal/queue"
)

// MockDB is a mock implementation of Transactor
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error {
	args := m.Called(fc)
	return args.Error(0)
}

func testConfig(processors, retries int) *config.Config {
	cfg := &config.Config{}
	cfg.BatchProcessing.ProcessorCount = processors
	cfg.BatchProcessing.MaxRetries = retries
	cfg.BatchProcessing.RetryDelay = 0
	cfg.BatchProcessing.MaxBatchSize = 10
	return cfg
}

func TestNewBatchProcessor(t *testing.T) {
	// Setup
	mockDB := &MockDB{}
	q := queue.New[Batch]("import", 10, nil)
	cfg := testConfig(2, 3)
	logger := logrus.New()

	// Test
	processor := NewBatchProcessor(mockDB, q, cfg, logger)

	// Assert
	assert.NotNil(t, processor)
	assert.Equal(t, mockDB, processor.db)
	assert.Equal(t, q, processor.queue)
	assert.Equal(t, cfg, processor.config)
	assert.Equal(t, logger, processor.logger)
}

func TestBatchProcessor_ProcessBatch(t *testing.T) {
	mockDB := &MockDB{}
	processor := NewBatchProcessor(mockDB, queue.New[Batch]("import", 10, nil), testConfig(2, 3), logrus.New())

	batch := Batch{
		{ID: "1", Address: "Test Address 1"},
		{ID: "2", Address: "Test Address 2"},
	}

	// Test successful processing
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()
	err := processor.processBatch(batch)
	assert.NoError(t, err)
	assert.Equal(t, Stats{Batches: 1, Rows: 2}, processor.Stats())

	// Test retry on failure
	mockDB.On("Transaction", mock.Anything).Return(errors.New("db error")).Times(4)
	err = processor.processBatch(batch)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process batch after 4 attempts")
	mockDB.AssertNumberOfCalls(t, "Transaction", 5)
}

func TestBatchProcessor_RecoversAfterRetry(t *testing.T) {
	mockDB := &MockDB{}
	processor := NewBatchProcessor(mockDB, queue.New[Batch]("import", 10, nil), testConfig(1, 3), logrus.New())

	mockDB.On("Transaction", mock.Anything).Return(errors.New("database is locked")).Twice()
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()

	assert.NoError(t, processor.processBatch(Batch{{ID: "1"}}))
	mockDB.AssertExpectations(t)
}

func TestBatchProcessor_StartStop(t *testing.T) {
	mockDB := &MockDB{}
	mockDB.On("Transaction", mock.Anything).Return(nil)
	q := queue.New[Batch]("import", 10, nil)

	processor := NewBatchProcessor(mockDB, q, testConfig(2, 0), logrus.New())
	processor.Start()
	processor.Start()

	for i := 0; i < 3; i++ {
		assert.NoError(t, q.Push(Batch{{ID: "x"}}))
	}

	// Stop drains the queue before returning
	processor.Stop()
	processor.Stop()
	assert.True(t, q.IsClosed())
	assert.Equal(t, Stats{Batches: 3, Rows: 3}, processor.Stats())
}

func TestBatchProcessor_CountsFailedBatches(t *testing.T) {
	mockDB := &MockDB{}
	mockDB.On("Transaction", mock.Anything).Return(errors.New("disk full"))
	q := queue.New[Batch]("import", 10, nil)

	processor := NewBatchProcessor(mockDB, q, testConfig(1, 1), logrus.New())
	processor.Start()
	assert.NoError(t, q.Push(Batch{{ID: "x"}}))
	processor.Stop()

	assert.Equal(t, Stats{Failed: 1}, processor.Stats())
	mockDB.AssertNumberOfCalls(t, "Transaction", 2)
}

func TestSplit(t *testing.T) {
	props := []models.Property{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}

	tests := []struct {
		name     string
		size     int
		expected [][]string
	}{
		{"Even split", 5, [][]string{{"a", "b", "c", "d", "e"}}},
		{"Remainder", 2, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}},
		{"Zero size", 0, [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Split(props, tt.size)
			got := make([][]string, len(batches))
			for i, b := range batches {
				for _, row := range b {
					got[i] = append(got[i], row.ID)
				}
			}
			assert.Equal(t, tt.expected, got)
		})
	}

	// Positions follow the catalog order across batches
	batches := Split(props, 2)
	assert.Equal(t, 4, batches[2][0].Position)
	assert.Equal(t, database.NewPropertyRow(props[3], 3), batches[1][1])

	assert.Empty(t, Split(nil, 3))
}
