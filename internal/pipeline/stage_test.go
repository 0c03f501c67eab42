package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/stevedore/internal/record"
)

func storeOf(mutate func([]record.FileRecord)) record.Store {
	recs := []record.FileRecord{
		record.New("a.csv", "a.csv", 1),
		record.New("b.csv", "b.csv", 2),
		record.New("c.csv", "c.csv", 3),
	}
	if mutate != nil {
		mutate(recs)
	}
	return record.NewStore(recs)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "selection", StageSelection.String())
	assert.Equal(t, "summary", StageSummary.String())
	assert.Equal(t, "unknown", Stage(99).String())
	assert.False(t, Stage(0).Valid())
	assert.True(t, StageCuration.Valid())
}

func TestSelectionGateNeedsOneSelected(t *testing.T) {
	empty := storeOf(func(recs []record.FileRecord) {
		for i := range recs {
			recs[i].Selected = false
		}
	})
	assert.False(t, CanAdvance(StageSelection, empty))
	assert.True(t, CanAdvance(StageSelection, storeOf(nil)))
}

func TestUploadGateRequiresAllSelectedUploaded(t *testing.T) {
	partial := storeOf(func(recs []record.FileRecord) {
		recs[0].Uploaded = true
		recs[1].Uploaded = true
	})
	assert.False(t, CanAdvance(StageUpload, partial))

	all := storeOf(func(recs []record.FileRecord) {
		for i := range recs {
			recs[i].Uploaded = true
		}
	})
	assert.True(t, CanAdvance(StageUpload, all))

	// deselected records do not count against the gate
	curated := storeOf(func(recs []record.FileRecord) {
		recs[0].Uploaded = true
		recs[1].Uploaded = true
		recs[2].Selected = false
	})
	assert.True(t, CanAdvance(StageUpload, curated))
}

func TestUploadGateVacuouslyTrueWithZeroSelected(t *testing.T) {
	none := storeOf(func(recs []record.FileRecord) {
		for i := range recs {
			recs[i].Selected = false
		}
	})
	assert.True(t, CanAdvance(StageUpload, none))
}

func TestProcessingGate(t *testing.T) {
	partial := storeOf(func(recs []record.FileRecord) {
		recs[0].Processed = true
	})
	assert.False(t, CanAdvance(StageProcessing, partial))

	all := storeOf(func(recs []record.FileRecord) {
		for i := range recs {
			recs[i].Processed = true
		}
	})
	assert.True(t, CanAdvance(StageProcessing, all))
}

func TestCurationGateNeedsSurvivors(t *testing.T) {
	assert.True(t, CanAdvance(StageCuration, storeOf(nil)))

	none := storeOf(func(recs []record.FileRecord) {
		for i := range recs {
			recs[i].Selected = false
		}
	})
	assert.False(t, CanAdvance(StageCuration, none))
}

func TestIngestionGateNeedsOneSuccess(t *testing.T) {
	assert.False(t, CanAdvance(StageIngestion, storeOf(nil)))

	one := storeOf(func(recs []record.FileRecord) {
		recs[1].IngestionStatus = record.IngestionSuccess
		recs[2].IngestionStatus = record.IngestionFailed
	})
	assert.True(t, CanAdvance(StageIngestion, one))
}

func TestSummaryIsTerminal(t *testing.T) {
	assert.False(t, CanAdvance(StageSummary, storeOf(nil)))
}

func TestRetreatResetIntoSelectionClearsUploadState(t *testing.T) {
	s := storeOf(func(recs []record.FileRecord) {
		recs[0].Uploaded = true
		recs[0].Processed = true
		recs[0].Classification = record.ClassificationStructured
	})

	s = retreatReset(StageSelection, s)

	a, ok := s.ByName("a.csv")
	require.True(t, ok)
	assert.False(t, a.Uploaded)
	assert.False(t, a.Processed)
	assert.Empty(t, a.Classification)
}

func TestRetreatResetIntoUploadKeepsUploadedFlag(t *testing.T) {
	s := storeOf(func(recs []record.FileRecord) {
		recs[0].Uploaded = true
		recs[0].Processed = true
		recs[0].Classification = record.ClassificationUnstructured
	})

	s = retreatReset(StageUpload, s)

	a, _ := s.ByName("a.csv")
	assert.True(t, a.Uploaded, "upload progress survives a retreat to the upload stage")
	assert.False(t, a.Processed)
	assert.Empty(t, a.Classification)
}

func TestRetreatResetIntoLaterStagesIsNoOp(t *testing.T) {
	s := storeOf(func(recs []record.FileRecord) {
		recs[0].IngestionStatus = record.IngestionSuccess
	})

	s = retreatReset(StageCuration, s)

	a, _ := s.ByName("a.csv")
	assert.Equal(t, record.IngestionSuccess, a.IngestionStatus)
}
