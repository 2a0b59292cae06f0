package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/entity"
	"github.com/istmo-digital/docintel/internal/extract"
	"github.com/istmo-digital/docintel/internal/repository"
	"github.com/istmo-digital/docintel/internal/review"
)

// fakeDocuments serves a fixed inventory.
type fakeDocuments struct {
	docs []*entity.Document
}

func (f *fakeDocuments) Create(_ context.Context, doc *entity.Document) (*entity.Document, error) {
	f.docs = append(f.docs, doc)
	return doc, nil
}

func (f *fakeDocuments) Get(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	for _, d := range f.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDocuments) GetByHash(_ context.Context, _ string) (*entity.Document, error) {
	return nil, nil
}

func (f *fakeDocuments) UpdateClassification(_ context.Context, _ uuid.UUID, _ constants.TypeID, _ float64, _ bool) error {
	return nil
}

func (f *fakeDocuments) List(_ context.Context, _ constants.TypeID, _ int) ([]*entity.Document, error) {
	return f.docs, nil
}

func recordWithExpiry(typeID constants.TypeID, field, value string) *extract.ExtractedRecord {
	record := &extract.ExtractedRecord{
		DocumentType:  constants.CategoryOf(typeID),
		TypeID:        typeID,
		SourceChannel: extract.ChannelReconciled,
		Confidence:    0.8,
	}
	if field != "" {
		record.SetField(field, extract.FieldValue{Value: value, Provenance: extract.ProvenanceText})
	}
	return record
}

func TestSweepEnqueuesUrgentAndReportsWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	docs := &fakeDocuments{}
	ctx := context.Background()

	cedula := &entity.Document{ID: uuid.New(), Filename: "cedula.jpg", TypeID: constants.TypeDNI}
	contrato := &entity.Document{ID: uuid.New(), Filename: "contrato.pdf", TypeID: constants.TypeContrato}
	extracto := &entity.Document{ID: uuid.New(), Filename: "extracto.pdf", TypeID: constants.TypeExtracto}
	vigente := &entity.Document{ID: uuid.New(), Filename: "pasaporte.pdf", TypeID: constants.TypePasaporte}
	docs.docs = []*entity.Document{contrato, cedula, extracto, vigente}

	// cédula expires in 10 days, inside the renewal window.
	require.NoError(t, store.PutRecord(ctx, cedula.ID,
		recordWithExpiry(constants.TypeDNI, "fecha_expiracion", "2026-03-11")))
	// contract ends in 25 days, reported but not escalated.
	require.NoError(t, store.PutRecord(ctx, contrato.ID,
		recordWithExpiry(constants.TypeContrato, "fecha_fin", "2026-03-26")))
	// statement record carries no expiry field at all.
	require.NoError(t, store.PutRecord(ctx, extracto.ID,
		recordWithExpiry(constants.TypeExtracto, "", "")))
	// passport is valid for years.
	require.NoError(t, store.PutRecord(ctx, vigente.ID,
		recordWithExpiry(constants.TypePasaporte, "fecha_expiracion", "2029-06-30")))

	monitor := NewMonitor(docs, store, review.NewStoreQueue(store, nil), nil)
	monitor.now = func() time.Time { return now }

	candidates, stats, err := monitor.Sweep(ctx, 30)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.Scanned)
	assert.Equal(t, 2, stats.Expiring)
	assert.Equal(t, 1, stats.Enqueued)
	assert.Equal(t, 1, stats.Skipped)

	require.Len(t, candidates, 2)
	// Identity documents sort ahead of contracts.
	assert.Equal(t, cedula.ID, candidates[0].Document.ID)
	assert.Equal(t, 10, candidates[0].DaysLeft)
	assert.Equal(t, "fecha_expiracion", candidates[0].Field)
	assert.Equal(t, contrato.ID, candidates[1].Document.ID)
	assert.Equal(t, 25, candidates[1].DaysLeft)

	tasks := store.ReviewTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, cedula.ID, tasks[0].DocumentID)
	assert.Equal(t, constants.ReasonDocumentExpiring, tasks[0].Reason)
}

func TestSweepSkipsDocumentsWithoutRecords(t *testing.T) {
	store := repository.NewMemoryStore()
	docs := &fakeDocuments{docs: []*entity.Document{
		{ID: uuid.New(), Filename: "nuevo.pdf", TypeID: constants.TypeContrato},
	}}

	monitor := NewMonitor(docs, store, review.NewStoreQueue(store, nil), nil)

	candidates, stats, err := monitor.Sweep(context.Background(), 30)

	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, store.ReviewTasks())
}

func TestSweepExcludesAlreadyExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	doc := &entity.Document{ID: uuid.New(), Filename: "cedula.jpg", TypeID: constants.TypeDNI}
	docs := &fakeDocuments{docs: []*entity.Document{doc}}
	ctx := context.Background()

	require.NoError(t, store.PutRecord(ctx, doc.ID,
		recordWithExpiry(constants.TypeDNI, "fecha_expiracion", "2026-02-01")))

	monitor := NewMonitor(docs, store, review.NewStoreQueue(store, nil), nil)
	monitor.now = func() time.Time { return now }

	candidates, stats, err := monitor.Sweep(ctx, 30)

	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Equal(t, 0, stats.Expiring)
	assert.Empty(t, store.ReviewTasks())
}
