package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTables(t *testing.T) {
	tr, err := New("")
	require.NoError(t, err)

	assert.Equal(t, []string{"de", "en", "sr"}, tr.Languages())
	for _, lang := range Supported {
		assert.NotEqual(t, "feedback.correct", tr.Lookup(lang, "feedback.correct"), lang)
		assert.Len(t, tr.Lines(lang, "intro.standard"), 2, lang)
	}

	assert.Equal(t, "Correct!", tr.Lookup("en", "feedback.correct"))
	assert.Equal(t, "Tačno!", tr.Lookup("sr", "feedback.correct"))
	assert.Equal(t, "Please choose a letter first.", tr.Lookup("en", "warning.no_letter"))
}

func TestLookupFallback(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	require.NoError(t, tr.Load("fr", []byte("feedback:\n  correct: Bravo!\n")))

	assert.Equal(t, "Bravo!", tr.Lookup("fr", "feedback.correct"))
	assert.Equal(t, "Please select an answer before submitting!", tr.Lookup("fr", "warning.no_selection"))
	assert.Equal(t, "no.such.key", tr.Lookup("fr", "no.such.key"))
	assert.Equal(t, "Correct!", tr.Lookup("xx", "feedback.correct"))
}

func TestFormat(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	assert.Equal(t, "Wrong! Correct answer: cat", tr.Format("en", "feedback.wrong", map[string]string{"answer": "cat"}))
	assert.Equal(t, "Your score: 3 / 4", tr.Format("en", "quiz.score", map[string]string{"score": "3", "max": "4"}))
}

func TestLoadFromDirOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("feedback:\n  correct: Great job!\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	tr, err := New("en")
	require.NoError(t, err)
	require.NoError(t, tr.LoadFromDir(dir))

	assert.Equal(t, "Great job!", tr.Lookup("en", "feedback.correct"))
	assert.Equal(t, "Please choose a letter first.", tr.Lookup("en", "warning.no_letter"))
}

func TestNegotiate(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	assert.Equal(t, "sr", tr.Negotiate("sr", "de", "en"))
	assert.Equal(t, "de", tr.Negotiate("", "de", "sr"))
	assert.Equal(t, "de", tr.Negotiate("xx", "", "fr-FR;q=0.9, de-AT;q=0.8"))
	assert.Equal(t, "en", tr.Negotiate("", "", "ja"))
	assert.Equal(t, "en", tr.Negotiate("", "", ""))
	assert.Equal(t, "en", tr.Negotiate("", "", ";;;q=bogus"))
}

func TestNegotiateWeights(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	assert.Equal(t, "de", tr.Negotiate("", "", "en;q=0.1, de;q=0.9"))
	assert.Equal(t, "sr", tr.Negotiate("", "", "de;q=0.5, sr, en;q=0.7"))
	assert.Equal(t, "de", tr.Negotiate("", "", "ja, de-CH;q=0.3"))

	require.NoError(t, tr.Load("fr", []byte("feedback:\n  correct: Bravo!\n")))
	assert.Equal(t, "fr", tr.Negotiate("", "", "fr-CA, ja;q=0.5"))
}

func TestTable(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)
	require.NoError(t, tr.Load("fr", []byte("links:\n  home: Accueil\n")))

	table := tr.Table("fr")
	assert.Equal(t, "Accueil", table["links.home"])
	assert.Equal(t, "Back to quizzes", table["links.quizzes"])
}
