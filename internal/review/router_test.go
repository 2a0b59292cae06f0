package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
)

func newTestRouter() *Router {
	return NewRouter(common.ReviewConfig{
		DefaultThreshold: 0.70,
		TypeThresholds: map[string]float64{
			"dni":       0.80,
			"pasaporte": 0.80,
			"contrato":  0.75,
		},
	}, nil)
}

func recordWith(typeID constants.TypeID, confidence float64, errs, warnings []string) *extract.ExtractedRecord {
	return &extract.ExtractedRecord{
		TypeID:     typeID,
		Confidence: confidence,
		Validation: extract.ValidationReport{
			Errors:   errs,
			Warnings: warnings,
			IsValid:  len(errs) == 0,
		},
	}
}

func TestEvaluateLowConfidence(t *testing.T) {
	router := newTestRouter()

	decision := router.Evaluate(recordWith(constants.TypeContrato, 0.6, nil, []string{"one"}))

	assert.True(t, decision.RequiresReview)
	assert.Equal(t, constants.ReasonLowConfidence, decision.Reason)
	assert.Equal(t, 0.75, decision.Threshold)
}

func TestEvaluateCleanHighConfidencePasses(t *testing.T) {
	router := newTestRouter()

	decision := router.Evaluate(recordWith(constants.TypeContrato, 0.9, nil, nil))

	assert.False(t, decision.RequiresReview)
	assert.Empty(t, decision.Reason)
}

func TestEvaluateValidationErrorsAlwaysRoute(t *testing.T) {
	router := newTestRouter()

	decision := router.Evaluate(recordWith(constants.TypeFactura, 0.95, []string{"missing numero"}, nil))

	assert.True(t, decision.RequiresReview)
	assert.Equal(t, constants.ReasonValidationErrors, decision.Reason)
}

func TestEvaluateWarningBudget(t *testing.T) {
	router := newTestRouter()

	ok := router.Evaluate(recordWith(constants.TypeFactura, 0.9, nil, []string{"a", "b"}))
	assert.False(t, ok.RequiresReview)

	over := router.Evaluate(recordWith(constants.TypeFactura, 0.9, nil, []string{"a", "b", "c"}))
	assert.True(t, over.RequiresReview)
	assert.Equal(t, constants.ReasonTooManyWarnings, over.Reason)
}

func TestEvaluateIdentityUsesStricterThreshold(t *testing.T) {
	router := newTestRouter()

	decision := router.Evaluate(recordWith(constants.TypeDNI, 0.78, nil, nil))

	assert.True(t, decision.RequiresReview)
	assert.Equal(t, 0.80, decision.Threshold)
}

func TestThresholdFallsBackToDefault(t *testing.T) {
	router := newTestRouter()

	assert.Equal(t, 0.70, router.Threshold(constants.TypeRecibo))
}

type capturingStore struct {
	tasks []Task
	err   error
}

func (s *capturingStore) CreateReviewTask(_ context.Context, task Task) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func TestStoreQueueAssignsIDAndTimestamp(t *testing.T) {
	store := &capturingStore{}
	queue := NewStoreQueue(store, nil)

	err := queue.Enqueue(context.Background(), Task{
		Reason:     constants.ReasonLowConfidence,
		Confidence: 0.6,
		Threshold:  0.75,
	})

	require.NoError(t, err)
	require.Len(t, store.tasks, 1)
	assert.NotEqual(t, store.tasks[0].ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.False(t, store.tasks[0].CreatedAt.IsZero())
}

func TestStoreQueueWrapsStoreErrors(t *testing.T) {
	store := &capturingStore{err: assert.AnError}
	queue := NewStoreQueue(store, nil)

	err := queue.Enqueue(context.Background(), Task{})

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
