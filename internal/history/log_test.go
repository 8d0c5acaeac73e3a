package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeertmans/jinglebox/internal/model"
)

func testRecord(t *testing.T, name string, playedAt time.Time) model.PlayRecord {
	t.Helper()
	r := model.NewPlayRecord(model.Jingle{Name: name, File: "/tmp/" + name + ".ogg"}, model.TriggerSchedule)
	r.PlayedAt = playedAt.Unix()
	return r
}

func TestLog_AppendAndRecent(t *testing.T) {
	l := NewLog(nil)
	defer l.Close()

	now := time.Now()
	require.NoError(t, l.Append(testRecord(t, "start", now.Add(-2*time.Minute))))
	require.NoError(t, l.Append(testRecord(t, "half", now.Add(-time.Minute))))
	require.NoError(t, l.Append(testRecord(t, "end", now)))

	assert.Equal(t, 3, l.Count())

	recent := l.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "end", recent[0].Name)
	assert.Equal(t, "half", recent[1].Name)
}

func TestLog_AppendDuplicateID(t *testing.T) {
	l := NewLog(nil)
	defer l.Close()

	r := testRecord(t, "start", time.Now())
	require.NoError(t, l.Append(r))
	require.NoError(t, l.Append(r))
	assert.Equal(t, 1, l.Count())
}

func TestLog_Filter(t *testing.T) {
	l := NewLog(nil)
	defer l.Close()

	now := time.Now()
	old := testRecord(t, "start", now.Add(-2*time.Hour))
	missed := testRecord(t, "half", now.Add(-time.Minute))
	missed.Outcome = model.OutcomeMissed
	manual := testRecord(t, "half", now)
	manual.Trigger = model.TriggerManual

	require.NoError(t, l.Append(old))
	require.NoError(t, l.Append(missed))
	require.NoError(t, l.Append(manual))

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"all", FilterOptions{}, []string{manual.ID, missed.ID, old.ID}},
		{"since", FilterOptions{Since: time.Hour}, []string{manual.ID, missed.ID}},
		{"outcome", FilterOptions{Outcome: model.OutcomeMissed}, []string{missed.ID}},
		{"trigger", FilterOptions{Trigger: model.TriggerManual}, []string{manual.ID}},
		{"by name", FilterOptions{Name: "half"}, []string{manual.ID, missed.ID}},
		{"limit", FilterOptions{Limit: 1}, []string{manual.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Filter(tt.opts)
			ids := make([]string, len(got))
			for i, r := range got {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestLog_GetByID(t *testing.T) {
	l := NewLog(nil)
	defer l.Close()

	r := testRecord(t, "start", time.Now())
	require.NoError(t, l.Append(r))

	got := l.GetByID(r.ID)
	require.NotNil(t, got)
	assert.Equal(t, "start", got.Name)

	assert.Nil(t, l.GetByID("does-not-exist"))
}

func TestLog_Subscribe(t *testing.T) {
	l := NewLog(nil)
	defer l.Close()

	ch := l.Subscribe()
	require.NoError(t, l.Append(testRecord(t, "start", time.Now())))

	select {
	case ev := <-ch:
		assert.Equal(t, ChangeTypeAppend, ev.Type)
		assert.Equal(t, 1, ev.Count)
	case <-time.After(time.Second):
		t.Fatal("no change event received")
	}
}

func TestLog_ClosedRejectsAppend(t *testing.T) {
	l := NewLog(nil)
	require.NoError(t, l.Close())

	err := l.Append(testRecord(t, "start", time.Now()))
	assert.ErrorIs(t, err, ErrLogClosed)
}

func TestJSONLPersistence_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)

	r1 := testRecord(t, "start", time.Now().Add(-time.Minute))
	r2 := testRecord(t, "end", time.Now())
	r2.Outcome = model.OutcomeFailed
	r2.Error = "file missing"

	require.NoError(t, p.Append(r1))
	require.NoError(t, p.Append(r2))
	require.NoError(t, p.Close())

	p2, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	defer p2.Close()

	records, err := p2.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, r1.ID, records[0].ID)
	assert.Equal(t, "file missing", records[1].Error)
}

func TestJSONLPersistence_WritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	firstLine := strings.SplitN(string(data), "\n", 2)[0]
	var header map[string]any
	require.NoError(t, json.Unmarshal([]byte(firstLine), &header))
	assert.EqualValues(t, SchemaVersion, header["jinglebox_schema_version"])
}

func TestJSONLPersistence_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	r := testRecord(t, "start", time.Now())
	data, err := json.Marshal(r)
	require.NoError(t, err)

	content := `{"jinglebox_schema_version":1,"created_at":0}` + "\n" +
		"not json\n" +
		string(data) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	defer p.Close()

	records, err := p.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, r.ID, records[0].ID)
}

func TestJSONLPersistence_UnsupportedSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	content := `{"jinglebox_schema_version":99,"created_at":0}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Load()
	assert.Error(t, err)
}

func TestLog_HydrateFromPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	require.NoError(t, p.Append(testRecord(t, "start", time.Now())))
	require.NoError(t, p.Close())

	p2, err := NewJSONLPersistence(path)
	require.NoError(t, err)

	l := NewLog(p2)
	defer l.Close()

	require.NoError(t, l.Hydrate())
	assert.Equal(t, 1, l.Count())
}

func TestLog_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)

	l := NewLog(p)
	defer l.Close()

	require.NoError(t, l.Append(testRecord(t, "start", time.Now())))
	require.NoError(t, l.Clear())
	assert.Equal(t, 0, l.Count())

	records, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}
