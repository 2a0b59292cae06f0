package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/classify"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/ledger"
	"github.com/istmo-digital/docintel/internal/ocr"
	"github.com/istmo-digital/docintel/internal/orchestrator"
	"github.com/istmo-digital/docintel/internal/patterns"
	"github.com/istmo-digital/docintel/internal/reconcile"
	"github.com/istmo-digital/docintel/internal/repository"
	"github.com/istmo-digital/docintel/internal/review"
)

const statementText = `BANCO GENERAL
ESTADO DE CUENTA
No DE CUENTA: 04-1234-567890
PERIODO: 01/03/2024 AL 31/03/2024
SALDO ANTERIOR $1,250.00
02/03/2024 ABC123XYZ PAGO PLANILLA 1,500.00
10/03/2024 RETIRO ATM -200.00
15/03/2024 COMPRA SUPERMERCADO -85.50
SALDO ACTUAL $2,464.50
GRACIAS POR SU PREFERENCIA
ESTE DOCUMENTO ES UN EXTRACTO BANCARIO OFICIAL DEL BANCO`

// scriptedClient feeds a fixed analysis result to the chain.
type scriptedClient struct {
	text    string
	answers map[string]extract.Answer
	err     error
}

func (c *scriptedClient) AnalyzeDocument(_ context.Context, _ ocr.AnalysisInput) (*ocr.AnalysisOutput, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &ocr.AnalysisOutput{
		Raw: extract.RawExtraction{
			FullText:        c.text,
			TargetedAnswers: c.answers,
		},
	}, nil
}

func (c *scriptedClient) DetectText(_ context.Context, _ []byte) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

func newTestProcessor(client ocr.Client, store *repository.MemoryStore) *Processor {
	library := patterns.NewLibrary()
	cfg := common.ExtractionConfig{
		MaxRetries:    1,
		BaseDelay:     time.Millisecond,
		CallTimeout:   time.Second,
		MaxQuestions:  15,
		LocalPDFLimit: 2 * 1024 * 1024,
	}
	return NewProcessor(
		classify.NewClassifier(library, nil),
		orchestrator.New(client, nil, cfg, nil, nil),
		extract.NewRegistry(library, nil),
		reconcile.NewEngine(library, nil),
		review.NewRouter(common.ReviewConfig{
			DefaultThreshold: 0.70,
			TypeThresholds:   map[string]float64{"dni": 0.80, "extracto_bancario": 0.70},
		}, nil),
		review.NewStoreQueue(store, nil),
		ledger.NewLedger(store, nil),
		nil,
	)
}

func TestProcessHappyPath(t *testing.T) {
	store := repository.NewMemoryStore()
	client := &scriptedClient{
		text: statementText,
		answers: map[string]extract.Answer{
			"numero_cuenta": {Text: "04-1234-567890", Confidence: 96},
			"saldo_final":   {Text: "$2,464.50", Confidence: 92},
			"banco":         {Text: "BANCO GENERAL", Confidence: 97},
		},
	}
	processor := newTestProcessor(client, store)
	id := uuid.New()

	outcome, err := processor.Process(context.Background(), id, []byte("scan"), "extracto_marzo.jpg")

	require.NoError(t, err)
	assert.Equal(t, constants.StateSucceeded, outcome.State)
	assert.Equal(t, constants.TypeExtracto, outcome.Classification.TypeID)
	require.NotNil(t, outcome.Record)
	assert.Equal(t, extract.ChannelReconciled, outcome.Record.SourceChannel)

	// The record landed as the current version.
	current, err := store.GetCurrentRecord(context.Background(), id)
	require.NoError(t, err)
	account, ok := current.Field("numero_cuenta")
	require.True(t, ok)
	assert.Equal(t, "04-1234-567890", account.Value)
}

func TestProcessPreservesPriorVersion(t *testing.T) {
	store := repository.NewMemoryStore()
	client := &scriptedClient{text: statementText}
	processor := newTestProcessor(client, store)
	id := uuid.New()
	ctx := context.Background()

	_, err := processor.Process(ctx, id, []byte("scan"), "extracto.jpg")
	require.NoError(t, err)
	_, err = processor.Process(ctx, id, []byte("scan"), "extracto.jpg")
	require.NoError(t, err)

	snapshots, err := store.ListSnapshots(ctx, id)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 1, snapshots[0].VersionNumber)
}

func TestProcessAllFailedEnqueuesReview(t *testing.T) {
	store := repository.NewMemoryStore()
	client := &scriptedClient{err: assert.AnError}
	processor := newTestProcessor(client, store)
	id := uuid.New()

	outcome, err := processor.Process(context.Background(), id, []byte("scan"), "cedula.jpg")

	require.NoError(t, err)
	assert.Equal(t, constants.StateAllFailed, outcome.State)
	assert.True(t, outcome.Decision.RequiresReview)
	assert.Equal(t, constants.ReasonExtractionFailed, outcome.Decision.Reason)
	tasks := store.ReviewTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, constants.ReasonExtractionFailed, tasks[0].Reason)

	// No record was preserved for a failed pass.
	_, err = store.GetCurrentRecord(context.Background(), id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProcessLowConfidenceRoutesToReview(t *testing.T) {
	store := repository.NewMemoryStore()
	// Sparse text classifies but extracts almost nothing.
	client := &scriptedClient{text: "EXTRACTO BANCARIO ESTADO DE CUENTA SALDO MOVIMIENTOS DEL PERIODO BANCO"}
	processor := newTestProcessor(client, store)
	id := uuid.New()

	outcome, err := processor.Process(context.Background(), id, []byte("scan"), "doc.jpg")

	require.NoError(t, err)
	assert.True(t, outcome.Decision.RequiresReview)
	assert.NotEmpty(t, store.ReviewTasks())
}

func TestTextBand(t *testing.T) {
	assert.Equal(t, 0.3, textBand(100))
	assert.Equal(t, 0.5, textBand(500))
	assert.Equal(t, 0.7, textBand(1500))
	assert.Equal(t, 0.9, textBand(5000))
}

func TestOverallConfidenceAveragesChannels(t *testing.T) {
	record := &extract.ExtractedRecord{Confidence: 0.8}
	raw := &extract.RawExtraction{
		FullText: string(make([]byte, 2500)),
		TargetedAnswers: map[string]extract.Answer{
			"a": {Confidence: 90},
			"b": {Confidence: 70},
		},
	}

	got := overallConfidence(0.9, record, raw)

	// mean(0.9, 0.8, 0.9, 0.8)
	assert.InDelta(t, 0.85, got, 0.0001)
}
