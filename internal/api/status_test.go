package api

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Empty(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := get(t, s, "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, "ok", resp.Database)
	assert.Positive(t, resp.SchemaVersion)
	require.Len(t, resp.Areas, 1)
	assert.Equal(t, -1, resp.Areas[0].FetchAgeMinutes)
	assert.Empty(t, resp.StoredAreas)
	assert.Empty(t, resp.IngestDays)
	assert.Empty(t, resp.RecentErrors)
	assert.Zero(t, resp.RawPayloads.Count)
	assert.Empty(t, resp.Errors)
}

func TestStatus(t *testing.T) {
	s, st := setupTestServer(t)
	seedSnapshotAt(t, st, testNow.Add(-25*time.Minute), testNow.Add(-90*time.Minute))

	area := "tel_aviv_coast"
	ok, err := st.StartIngestRun("http", "/v1/public/scores", &area)
	require.NoError(t, err)
	ok.Success = true
	ok.RecordsStored = sql.NullInt64{Int64: 7, Valid: true}
	require.NoError(t, st.CompleteIngestRun(ok))
	_, err = st.StoreRawPayload(&ok.ID, "http", "/v1/public/scores", &area, []byte(`{"hours":[]}`))
	require.NoError(t, err)

	failed, err := st.StartIngestRun("ftp", "/drop/scores.json", &area)
	require.NoError(t, err)
	failed.ErrorMessage = sql.NullString{String: "550 file unavailable", Valid: true}
	require.NoError(t, st.CompleteIngestRun(failed))

	rec := get(t, s, "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[StatusResponse](t, rec)

	require.Len(t, resp.Areas, 1)
	assert.Equal(t, 25, resp.Areas[0].FetchAgeMinutes)
	assert.Equal(t, []string{"tel_aviv_coast"}, resp.StoredAreas)

	require.Len(t, resp.IngestDays, 2)
	runs := map[string]IngestDay{}
	for _, d := range resp.IngestDays {
		runs[d.Source] = d
	}
	assert.Equal(t, 1, runs["http"].Succeeded)
	assert.Equal(t, int64(7), runs["http"].HoursStored)
	assert.Equal(t, 1, runs["ftp"].Failed)

	require.Len(t, resp.RecentErrors, 1)
	assert.Equal(t, "ftp", resp.RecentErrors[0].Source)
	assert.Equal(t, "tel_aviv_coast", resp.RecentErrors[0].AreaID)
	assert.Equal(t, "550 file unavailable", resp.RecentErrors[0].Message)

	assert.Equal(t, 1, resp.RawPayloads.Count)
	assert.Equal(t, 1, resp.RawPayloads.CountBySource["http"])
	assert.Positive(t, resp.RawPayloads.SizeBytes)
}

func TestStatus_DatabaseClosed(t *testing.T) {
	s, st := setupTestServer(t)
	require.NoError(t, st.DB().Close())

	rec := get(t, s, "/v1/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, "unreachable", resp.Database)
	assert.NotEmpty(t, resp.Errors)
	require.Len(t, resp.Areas, 1)
	assert.Equal(t, -1, resp.Areas[0].FetchAgeMinutes)
}
