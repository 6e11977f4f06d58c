package ot_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/serroba/rich-docs/internal/delta"
	"github.com/serroba/rich-docs/internal/ot"
)

const testDocHello = "Hello"

func mustEdit(t *testing.T, doc *ot.Document, pos int, text string) *delta.Delta {
	t.Helper()

	change, err := doc.Edit(pos, text)
	require.NoError(t, err)

	return change
}

func mustText(t *testing.T, doc *ot.Document) string {
	t.Helper()

	text, err := doc.Text()
	require.NoError(t, err)

	return text
}

func TestDocument_NewDocument_Empty(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()

	require.Equal(t, 0, doc.Len())
	require.Equal(t, 1, doc.Revision())
	require.Equal(t, "[]", doc.ToJSON())
	require.False(t, doc.CanUndo())
	require.False(t, doc.CanRedo())
}

func TestDocument_HelloWorldScenario(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()

	mustEdit(t, doc, 0, testDocHello)
	require.Equal(t, "Hello", mustText(t, doc))

	mustEdit(t, doc, 5, " World")
	require.Equal(t, "Hello World", mustText(t, doc))

	_, err := doc.Format(delta.NewInterval(0, 5), delta.Bold, true)
	require.NoError(t, err)

	formatted := `[{"insert":"Hello","attributes":{"bold":"true"}},{"insert":" World"}]`
	require.Equal(t, formatted, doc.ToJSON())

	// Undo the formatting: content stays, bold goes.
	result, err := doc.Undo()
	require.NoError(t, err)
	require.Equal(t, 11, result.Len)
	require.Equal(t, `[{"insert":"Hello World"}]`, doc.ToJSON())

	// Undo the second insert.
	result, err = doc.Undo()
	require.NoError(t, err)
	require.Equal(t, 5, result.Len)
	require.Equal(t, `[{"insert":"Hello"}]`, doc.ToJSON())

	_, err = doc.Redo()
	require.NoError(t, err)
	require.Equal(t, "Hello World", mustText(t, doc))

	_, err = doc.Redo()
	require.NoError(t, err)
	require.Equal(t, formatted, doc.ToJSON())
}

func TestDocument_FreshStateHistory(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	require.False(t, doc.CanUndo())
	require.False(t, doc.CanRedo())

	mustEdit(t, doc, 0, "a")
	require.True(t, doc.CanUndo())
	require.False(t, doc.CanRedo())

	_, err := doc.Undo()
	require.NoError(t, err)
	require.False(t, doc.CanUndo())
	require.True(t, doc.CanRedo())
}

func TestDocument_Undo_Empty(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()

	_, err := doc.Undo()
	if !errors.Is(err, ot.ErrUndoFail) {
		t.Errorf("expected ErrUndoFail, got %v", err)
	}

	_, err = doc.Redo()
	if !errors.Is(err, ot.ErrRedoFail) {
		t.Errorf("expected ErrRedoFail, got %v", err)
	}
}

func TestDocument_UndoRedoInverseLaw(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	states := []string{doc.ToJSON()}

	steps := []func() (*delta.Delta, error){
		func() (*delta.Delta, error) { return doc.Edit(0, "Hello World") },
		func() (*delta.Delta, error) { return doc.Format(delta.NewInterval(0, 5), delta.Bold, true) },
		func() (*delta.Delta, error) { return doc.Edit(5, ",") },
		func() (*delta.Delta, error) { return doc.Delete(delta.NewInterval(7, 12)) },
		func() (*delta.Delta, error) { return doc.Format(delta.NewInterval(0, 7), delta.Italic, true) },
		func() (*delta.Delta, error) { return doc.Edit(7, "Go") },
	}

	for _, step := range steps {
		_, err := step()
		require.NoError(t, err)

		states = append(states, doc.ToJSON())
	}

	require.Equal(t, "Hello, Go", mustText(t, doc))

	for i := len(steps); i > 0; i-- {
		_, err := doc.Undo()
		require.NoError(t, err)
		require.Equal(t, states[i-1], doc.ToJSON(), "after undoing step %d", i)
	}

	require.False(t, doc.CanUndo())

	for i := 1; i <= len(steps); i++ {
		_, err := doc.Redo()
		require.NoError(t, err)
		require.Equal(t, states[i], doc.ToJSON(), "after redoing step %d", i)
	}

	require.False(t, doc.CanRedo())
}

func TestDocument_UndoRedoAlternate(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "abc")
	before := doc.ToJSON()

	mustEdit(t, doc, 1, "XYZ")
	after := doc.ToJSON()

	for range 5 {
		_, err := doc.Undo()
		require.NoError(t, err)
		require.Equal(t, before, doc.ToJSON())

		_, err = doc.Redo()
		require.NoError(t, err)
		require.Equal(t, after, doc.ToJSON())
	}
}

func TestDocument_NewEditClearsRedo(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "abc")
	mustEdit(t, doc, 3, "def")

	_, err := doc.Undo()
	require.NoError(t, err)
	require.True(t, doc.CanRedo())

	mustEdit(t, doc, 0, ">")
	require.False(t, doc.CanRedo())
	require.Equal(t, ">abc", mustText(t, doc))
}

func TestDocument_LengthInvariant(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "The quick brown fox")

	_, err := doc.Format(delta.NewInterval(4, 9), delta.Bold, true)
	require.NoError(t, err)

	_, err = doc.Format(delta.NewInterval(10, 15), delta.Italic, true)
	require.NoError(t, err)

	steps := []func() (*delta.Delta, error){
		func() (*delta.Delta, error) { return doc.Edit(0, ">> ") },
		func() (*delta.Delta, error) { return doc.Edit(10, "X") },
		func() (*delta.Delta, error) { return doc.Edit(doc.Len(), "!") },
		func() (*delta.Delta, error) { return doc.Delete(delta.NewInterval(2, 8)) },
		func() (*delta.Delta, error) { return doc.Format(delta.NewInterval(0, 6), delta.Underline, true) },
		func() (*delta.Delta, error) { return doc.Format(delta.NewInterval(3, 10), delta.Bold, false) },
	}

	for i, step := range steps {
		before := doc.Len()

		change, err := step()
		require.NoError(t, err)

		if change.BaseLen() != before {
			t.Errorf("step %d: change base %d, document length %d", i, change.BaseLen(), before)
		}

		require.Equal(t, change.TargetLen(), doc.Len(), "step %d", i)
	}
}

func TestDocument_Edit_InheritsFormatting(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, testDocHello)

	_, err := doc.Format(delta.NewInterval(0, 5), delta.Bold, true)
	require.NoError(t, err)

	mustEdit(t, doc, 2, "XY")

	require.Equal(t, `[{"insert":"HeXYllo","attributes":{"bold":"true"}}]`, doc.ToJSON())
	require.True(t, doc.Delta().Attributes(delta.NewInterval(2, 4)).Has(delta.Bold))
}

func TestDocument_Edit_AtEndOfRunDoesNotInherit(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, testDocHello)

	_, err := doc.Format(delta.NewInterval(0, 5), delta.Bold, true)
	require.NoError(t, err)

	// Formatting is looked up after the insertion point, where there is none.
	mustEdit(t, doc, 5, "!")

	require.False(t, doc.Delta().Attributes(delta.NewInterval(5, 6)).Has(delta.Bold))
}

func TestDocument_Edit_UsesFollowWhenUnformatted(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "abc")

	change := mustEdit(t, doc, 1, "X")

	var inserted delta.Operation

	for _, op := range change.Ops() {
		if op.IsInsert() {
			inserted = op
		}
	}

	require.Equal(t, delta.AttrsFollow, inserted.Attrs.Kind())
	require.Equal(t, `[{"insert":"aXbc"}]`, doc.ToJSON())
}

func TestDocument_Edit_Unicode(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "héllo")
	mustEdit(t, doc, 5, " 🌍")

	require.Equal(t, 7, doc.Len())
	require.Equal(t, "héllo 🌍", mustText(t, doc))
}

func TestDocument_Edit_InvalidPosition(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "ABC")

	revision := doc.Revision()

	for _, pos := range []int{-1, 4, 10} {
		_, err := doc.Edit(pos, "X")
		if !errors.Is(err, ot.ErrInvalidPosition) {
			t.Errorf("pos %d: expected ErrInvalidPosition, got %v", pos, err)
		}
	}

	require.Equal(t, "ABC", mustText(t, doc))
	require.Equal(t, revision, doc.Revision())
}

func TestDocument_InvalidInterval(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "ABC")

	intervals := []delta.Interval{
		{Start: -1, End: 2},
		{Start: 2, End: 10},
		{Start: 3, End: 1},
	}

	for _, iv := range intervals {
		_, err := doc.Delete(iv)
		if !errors.Is(err, ot.ErrInvalidInterval) {
			t.Errorf("delete %s: expected ErrInvalidInterval, got %v", iv, err)
		}

		_, err = doc.Format(iv, delta.Bold, true)
		if !errors.Is(err, ot.ErrInvalidInterval) {
			t.Errorf("format %s: expected ErrInvalidInterval, got %v", iv, err)
		}
	}

	require.Equal(t, `[{"insert":"ABC"}]`, doc.ToJSON())
}

func TestDocument_Delete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		iv       delta.Interval
		expected string
	}{
		{"beginning", delta.NewInterval(0, 1), "ello"},
		{"end", delta.NewInterval(4, 5), "Hell"},
		{"middle", delta.NewInterval(1, 4), "Ho"},
		{"everything", delta.NewInterval(0, 5), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := ot.NewDocument()
			mustEdit(t, doc, 0, testDocHello)

			_, err := doc.Delete(tt.iv)
			require.NoError(t, err)
			require.Equal(t, tt.expected, mustText(t, doc))

			_, err = doc.Undo()
			require.NoError(t, err)
			require.Equal(t, testDocHello, mustText(t, doc))
		})
	}
}

func TestDocument_Delete_PreservesSurroundingFormatting(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "abcdef")

	_, err := doc.Format(delta.NewInterval(0, 2), delta.Bold, true)
	require.NoError(t, err)

	_, err = doc.Format(delta.NewInterval(4, 6), delta.Italic, true)
	require.NoError(t, err)

	_, err = doc.Delete(delta.NewInterval(2, 4))
	require.NoError(t, err)

	expected := `[{"insert":"ab","attributes":{"bold":"true"}},{"insert":"ef","attributes":{"italic":"true"}}]`
	require.Equal(t, expected, doc.ToJSON())
}

func TestDocument_Format_Remove(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, testDocHello)

	_, err := doc.Format(delta.NewInterval(0, 5), delta.Bold, true)
	require.NoError(t, err)

	_, err = doc.Format(delta.NewInterval(0, 5), delta.Italic, true)
	require.NoError(t, err)

	_, err = doc.Format(delta.NewInterval(1, 3), delta.Bold, false)
	require.NoError(t, err)

	attrs := doc.Delta().Attributes(delta.NewInterval(1, 3))
	require.False(t, attrs.Has(delta.Bold))
	require.True(t, attrs.Has(delta.Italic), "existing entries are merged into the request")

	require.True(t, doc.Delta().Attributes(delta.NewInterval(3, 5)).Has(delta.Bold))
}

func TestDocument_Format_NoChangeRecordsNoUndo(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, testDocHello)

	_, err := doc.Format(delta.NewInterval(0, 5), delta.Bold, true)
	require.NoError(t, err)

	_, err = doc.Format(delta.NewInterval(0, 5), delta.Bold, true)
	require.NoError(t, err)

	// One undo removes bold; the repeated format left nothing to undo.
	_, err = doc.Undo()
	require.NoError(t, err)
	require.Equal(t, `[{"insert":"Hello"}]`, doc.ToJSON())
}

func TestDocument_UpdateWithAttributes_Follow(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, testDocHello)

	_, err := doc.Format(delta.NewInterval(0, 5), delta.Bold, true)
	require.NoError(t, err)

	change, err := doc.UpdateWithAttributes(delta.Follow, delta.NewInterval(1, 3))
	require.NoError(t, err)

	// Follow takes the formatting already present, so nothing changes.
	require.Equal(t, 5, change.BaseLen())
	require.Equal(t, `[{"insert":"Hello","attributes":{"bold":"true"}}]`, doc.ToJSON())
}

func TestDocument_Revision(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	require.Equal(t, 1, doc.Revision())

	mustEdit(t, doc, 0, "a")
	require.Equal(t, 2, doc.Revision())

	_, err := doc.Delete(delta.NewInterval(0, 1))
	require.NoError(t, err)
	require.Equal(t, 3, doc.Revision())

	_, err = doc.Undo()
	require.NoError(t, err)
	require.Equal(t, 4, doc.Revision())
}

func TestDocument_ExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "Hello World")

	_, err := doc.Format(delta.NewInterval(6, 11), delta.Underline, true)
	require.NoError(t, err)

	exported := doc.ToJSON()

	require.NoError(t, doc.SetJSON(exported))
	require.Equal(t, exported, doc.ToJSON())
	require.False(t, doc.CanUndo(), "replacing the state clears the history")

	other := ot.NewDocument()
	other.SetDelta(doc.Delta())
	require.Equal(t, exported, other.ToJSON())
}

func TestDocument_SetJSON_Invalid(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "abc")

	require.Error(t, doc.SetJSON(`[{"bogus":1}]`))
	require.Equal(t, "abc", mustText(t, doc))
}

func TestDocument_DeltaIsCopy(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, "abc")

	d := doc.Delta()
	d.Insert("zzz", delta.Empty)

	require.Equal(t, 3, doc.Len())
}

func TestDocument_Compose(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument()
	mustEdit(t, doc, 0, testDocHello)

	remote := delta.New().Retain(5, delta.Empty).Insert("!", delta.Empty)
	require.NoError(t, doc.Compose(remote))

	require.Equal(t, "Hello!", mustText(t, doc))
	require.False(t, doc.CanUndo())

	err := doc.Compose(delta.New().Retain(2, delta.Empty))
	if !errors.Is(err, delta.ErrIncompatibleLengths) {
		t.Errorf("expected ErrIncompatibleLengths, got %v", err)
	}

	require.Equal(t, "Hello!", mustText(t, doc))
}

func TestDocument_WithMaxUndos(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument(ot.WithMaxUndos(2))

	for i := range 3 {
		mustEdit(t, doc, i, "x")
	}

	for range 2 {
		_, err := doc.Undo()
		require.NoError(t, err)
	}

	_, err := doc.Undo()
	if !errors.Is(err, ot.ErrUndoFail) {
		t.Errorf("expected ErrUndoFail, got %v", err)
	}

	require.Equal(t, "x", mustText(t, doc))
}

func TestDocument_WithLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	doc := ot.NewDocument(ot.WithLogger(zap.New(core)))

	mustEdit(t, doc, 0, "abc")
	mustEdit(t, doc, 1, "X")

	require.Positive(t, logs.FilterMessage("add op").Len())
	require.Positive(t, logs.FilterMessage("retain run").Len())
}

func TestDocument_WithNilLogger(t *testing.T) {
	t.Parallel()

	doc := ot.NewDocument(ot.WithLogger(nil))
	mustEdit(t, doc, 0, "abc")

	require.Equal(t, "abc", mustText(t, doc))
}

func TestDocument_NotInvertibleEditDropsHistory(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	doc := ot.NewDocument(ot.WithLogger(zap.New(core)))

	// A state relative to an unknown 3-rune ancestor.
	doc.SetDelta(delta.New().Retain(3, delta.Empty).Insert("xy", delta.Empty))

	mustEdit(t, doc, 5, "!")
	require.True(t, doc.CanUndo())

	_, err := doc.Delete(delta.NewInterval(0, 2))
	require.NoError(t, err)

	require.False(t, doc.CanUndo())
	require.Equal(t, 1, logs.Len())

	out, err := doc.Delta().Apply("abc")
	require.NoError(t, err)
	require.Equal(t, "cxy!", out)
}
