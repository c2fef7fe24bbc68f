package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
)

func TestCreateMoodAttachesSuggestion(t *testing.T) {
	h := newHarness(t)
	tok, uid := h.register("Zoe", "zoe@example.com")

	w, env := h.do(http.MethodPost, "/api/moods", tok, map[string]any{
		"mood": "sad", "intensity": 3, "emotions": []string{" Lonely ", "tired"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entry := decode[model.MoodEntry](t, env.Data)
	assert.Equal(t, uid, entry.UserID)
	assert.Equal(t, []string{"lonely", "tired"}, entry.Emotions)
	assert.Contains(t, domain.SuggestionsFor(model.MoodSad), entry.Suggestion)

	w, _ = h.do(http.MethodPost, "/api/moods", tok, map[string]any{"mood": "furious", "intensity": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = h.do(http.MethodPost, "/api/moods", tok, map[string]any{"mood": "calm", "intensity": 11})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMoodStats(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Eli", "eli@example.com")
	for _, m := range []map[string]any{
		{"mood": "happy", "intensity": 8},
		{"mood": "happy", "intensity": 6},
		{"mood": "anxious", "intensity": 4, "triggers": []string{"exams"}},
	} {
		w, _ := h.do(http.MethodPost, "/api/moods", tok, m)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := h.do(http.MethodGet, "/api/moods/stats?days=7", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode[domain.MoodSummary](t, env.Data)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, "happy", stats.MostFrequentMood)
	assert.Equal(t, 6.0, stats.AverageIntensity)
}

func TestEntriesAreInvisibleToOtherUsers(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.register("Alice", "alice@example.com")
	bob, _ := h.register("Bob", "bob@example.com")

	w, env := h.do(http.MethodPost, "/api/moods", alice, map[string]any{"mood": "calm", "intensity": 5})
	require.Equal(t, http.StatusCreated, w.Code)
	moodID := decode[model.MoodEntry](t, env.Data).ID

	w, env = h.do(http.MethodPost, "/api/journals", alice, map[string]any{"title": "Day one", "content": "quiet day at school"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	journalID := decode[model.JournalEntry](t, env.Data).ID

	for _, path := range []string{"/api/moods/" + moodID, "/api/journals/" + journalID} {
		w, _ = h.do(http.MethodGet, path, bob, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		w, _ = h.do(http.MethodDelete, path, bob, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		w, _ = h.do(http.MethodGet, path, alice, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w, env = h.do(http.MethodGet, "/api/moods", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 0, *env.Count)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestJournalDefaultsAndFavorite(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Mia", "mia@example.com")

	w, env := h.do(http.MethodPost, "/api/journals", tok, map[string]any{
		"title": "Thoughts", "content": "one two three four", "tags": []string{"School", "school "},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	j := decode[model.JournalEntry](t, env.Data)
	assert.True(t, j.IsPrivate)
	assert.False(t, j.IsFavorite)

	w, env = h.do(http.MethodPatch, "/api/journals/"+j.ID+"/favorite", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "added to favorites", env.Message)
	w, env = h.do(http.MethodPatch, "/api/journals/"+j.ID+"/favorite", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "removed from favorites", env.Message)
}

func TestToggleTodoTwiceRestoresState(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Ben", "ben@example.com")

	w, env := h.do(http.MethodPost, "/api/todos", tok, map[string]any{"text": "finish essay"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	todo := decode[model.Todo](t, env.Data)
	assert.Equal(t, model.TodoCategoryPersonal, todo.Category)
	assert.Equal(t, model.PriorityMedium, todo.Priority)
	assert.False(t, todo.Completed)

	w, env = h.do(http.MethodPatch, "/api/todos/"+todo.ID+"/toggle", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	done := decode[model.Todo](t, env.Data)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(h.clock.Now()))

	w, env = h.do(http.MethodPatch, "/api/todos/"+todo.ID+"/toggle", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	undone := decode[model.Todo](t, env.Data)
	assert.False(t, undone.Completed)
	assert.Nil(t, undone.CompletedAt)
}

func TestClearCompletedTodos(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Ana", "ana@example.com")

	var ids []string
	for _, text := range []string{"a", "b", "c"} {
		w, env := h.do(http.MethodPost, "/api/todos", tok, map[string]any{"text": text})
		require.Equal(t, http.StatusCreated, w.Code)
		ids = append(ids, decode[model.Todo](t, env.Data).ID)
	}
	for _, id := range ids[:2] {
		w, _ := h.do(http.MethodPatch, "/api/todos/"+id+"/toggle", tok, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, env := h.do(http.MethodDelete, "/api/todos/completed", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"deleted":2}`, string(env.Data))

	w, env = h.do(http.MethodGet, "/api/todos", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)
}

func TestStudyPlanComplete(t *testing.T) {
	h := newHarness(t)
	tok, _ := h.register("Omar", "omar@example.com")

	w, env := h.do(http.MethodPost, "/api/study-plans", tok, map[string]any{"subject": "Math", "duration": 45, "date": "2026-03-03"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[model.StudyPlan](t, env.Data)

	w, env = h.do(http.MethodPatch, "/api/study-plans/"+p.ID+"/complete", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[model.StudyPlan](t, env.Data).Completed)

	w, env = h.do(http.MethodGet, "/api/study-plans/stats", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode[domain.StudySummary](t, env.Data)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Completed)
}
