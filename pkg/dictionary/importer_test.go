package dictionary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/kanjilab/pkg/db"
)

func setupStore(t *testing.T) (*db.Store, int64) {
	t.Helper()
	s, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	if err := db.InitDB(ctx, s.DB); err != nil {
		t.Fatalf("init db: %v", err)
	}
	id, err := db.UpsertDictionary(ctx, s.DB, db.Dictionary{Name: "JMDict", GUID: "a5ecf9a5-7a0e-4858-8122-62365f3f8965"})
	if err != nil {
		t.Fatalf("dictionary: %v", err)
	}
	return s, id
}

func glosses(texts ...string) []Gloss {
	out := make([]Gloss, 0, len(texts))
	for _, t := range texts {
		out = append(out, Gloss{Text: t})
	}
	return out
}

func meaningsOf(t *testing.T, s *db.Store, word string) string {
	t.Helper()
	w, err := db.GetWord(context.Background(), s.DB, word)
	require.NoError(t, err, "word %s", word)
	return w.Meanings
}

func readingsOf(t *testing.T, s *db.Store, word string) []string {
	t.Helper()
	ctx := context.Background()
	w, err := db.GetWord(ctx, s.DB, word)
	require.NoError(t, err, "word %s", word)
	rs, err := db.GetReadings(ctx, s.DB, w.ID)
	require.NoError(t, err)
	var out []string
	for _, r := range rs {
		out = append(out, r.Reading)
	}
	return out
}

func taberuEntry() Entry {
	return Entry{
		Seq:      1358280,
		Kanji:    []KanjiElement{{Text: "食べる"}, {Text: "喰べる"}},
		Readings: []ReadingElement{{Text: "たべる"}},
		Senses: []Sense{
			{Glosses: glosses("to eat")},
			{Glosses: glosses("to live on", "to subsist on")},
		},
	}
}

func TestImportEntry(t *testing.T) {
	s, dictID := setupStore(t)
	im := NewImporter(dictID, Options{})

	stats, err := im.Import(context.Background(), s.DB, []Entry{taberuEntry()})
	require.NoError(t, err)

	want := "to eat" + db.SenseSeparator + "to live on" + db.GlossSeparator + "to subsist on"
	assert.Equal(t, want, meaningsOf(t, s, "食べる"))
	assert.Equal(t, want, meaningsOf(t, s, "喰べる"))
	assert.Equal(t, []string{"たべる"}, readingsOf(t, s, "食べる"))
	assert.Equal(t, []string{"たべる"}, readingsOf(t, s, "喰べる"))
	assert.Equal(t, ImportStats{Entries: 1, WordsInserted: 2, ReadingsInserted: 2}, stats)
}

func TestImportSkipsKanaOnlyHeadwords(t *testing.T) {
	s, dictID := setupStore(t)
	entries := []Entry{
		{Seq: 1, Readings: []ReadingElement{{Text: "ナイフ"}}, Senses: []Sense{{Glosses: glosses("knife")}}},
		{Seq: 2, Kanji: []KanjiElement{{Text: "ＣＤ"}}, Readings: []ReadingElement{{Text: "シーディー"}}, Senses: []Sense{{Glosses: glosses("CD")}}},
		{Seq: 3, Kanji: []KanjiElement{{Text: "ＣＤ"}, {Text: "円盤"}}, Readings: []ReadingElement{{Text: "えんばん"}}, Senses: []Sense{{Glosses: glosses("disc")}}},
	}

	_, err := NewImporter(dictID, Options{}).Import(context.Background(), s.DB, entries)
	require.NoError(t, err)

	counts, err := db.CountRows(context.Background(), s.DB)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Words)
	assert.Equal(t, 1, counts.Readings)
	assert.Equal(t, []string{"えんばん"}, readingsOf(t, s, "円盤"))
}

func TestImportIsIdempotent(t *testing.T) {
	s, dictID := setupStore(t)
	ctx := context.Background()
	entries := []Entry{taberuEntry()}

	_, err := NewImporter(dictID, Options{}).Import(ctx, s.DB, entries)
	require.NoError(t, err)
	before, err := db.CountRows(ctx, s.DB)
	require.NoError(t, err)

	// A fresh importer reloads its index from the table.
	stats, err := NewImporter(dictID, Options{}).Import(ctx, s.DB, entries)
	require.NoError(t, err)
	after, err := db.CountRows(ctx, s.DB)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Zero(t, stats.WordsInserted)
	assert.Zero(t, stats.WordsUpdated)
	assert.Zero(t, stats.ReadingsInserted)
	assert.Equal(t, "to eat"+db.SenseSeparator+"to live on"+db.GlossSeparator+"to subsist on", meaningsOf(t, s, "食べる"))
}

func TestImportAppendsBlocksAcrossEntries(t *testing.T) {
	s, dictID := setupStore(t)
	entries := []Entry{
		{Seq: 1, Kanji: []KanjiElement{{Text: "上手"}}, Readings: []ReadingElement{{Text: "じょうず"}}, Senses: []Sense{{Glosses: glosses("skillful")}}},
		{Seq: 2, Kanji: []KanjiElement{{Text: "上手"}}, Readings: []ReadingElement{{Text: "うわて"}}, Senses: []Sense{{Glosses: glosses("upper part")}}},
		{Seq: 3, Kanji: []KanjiElement{{Text: "上手"}}, Readings: []ReadingElement{{Text: "かみて"}}, Senses: []Sense{{Glosses: glosses("skillful")}}},
	}

	stats, err := NewImporter(dictID, Options{}).Import(context.Background(), s.DB, entries)
	require.NoError(t, err)

	assert.Equal(t, "skillful"+db.HeadwordSeparator+"upper part", meaningsOf(t, s, "上手"))
	assert.ElementsMatch(t, []string{"じょうず", "うわて", "かみて"}, readingsOf(t, s, "上手"))
	assert.Equal(t, 1, stats.WordsInserted)
	assert.Equal(t, 1, stats.WordsUpdated)
}

func TestImportReadingRestrictions(t *testing.T) {
	s, dictID := setupStore(t)
	entry := Entry{
		Seq:   1,
		Kanji: []KanjiElement{{Text: "日本"}, {Text: "日本国"}, {Text: "大和"}},
		Readings: []ReadingElement{
			{Text: "にほん"},
			{Text: "にっぽん", Restrict: []string{"日本", "日本国"}},
			{Text: "やまと", Restrict: []string{"大和", "日本"}, SenseRestrict: []string{"大和", "日本国"}},
			{Text: "ひのもと", Restrict: []string{"日ノ本"}},
		},
		Senses: []Sense{{Glosses: glosses("Japan")}},
	}

	_, err := NewImporter(dictID, Options{}).Import(context.Background(), s.DB, []Entry{entry})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"にほん", "にっぽん"}, readingsOf(t, s, "日本"))
	assert.ElementsMatch(t, []string{"にほん", "にっぽん"}, readingsOf(t, s, "日本国"))
	assert.ElementsMatch(t, []string{"にほん", "やまと"}, readingsOf(t, s, "大和"))
}

func TestImportSenseRestrictions(t *testing.T) {
	s, dictID := setupStore(t)
	entry := Entry{
		Seq:      1,
		Kanji:    []KanjiElement{{Text: "生物"}, {Text: "生き物"}},
		Readings: []ReadingElement{{Text: "いきもの"}},
		Senses: []Sense{
			{Glosses: glosses("living thing")},
			{RestrictKanji: []string{"生物"}, Glosses: glosses("organism")},
			{RestrictKanji: []string{"生モノ"}, Glosses: glosses("raw food")},
			{},
		},
	}

	_, err := NewImporter(dictID, Options{}).Import(context.Background(), s.DB, []Entry{entry})
	require.NoError(t, err)

	assert.Equal(t, "living thing"+db.SenseSeparator+"organism", meaningsOf(t, s, "生物"))
	assert.Equal(t, "living thing", meaningsOf(t, s, "生き物"))
}

func TestImportHeadwordWithoutSenses(t *testing.T) {
	s, dictID := setupStore(t)
	entries := []Entry{
		{Seq: 1, Kanji: []KanjiElement{{Text: "阿"}, {Text: "亜"}}, Readings: []ReadingElement{{Text: "あ"}},
			Senses: []Sense{{RestrictKanji: []string{"亜"}, Glosses: glosses("sub-")}}},
		{Seq: 2, Kanji: []KanjiElement{{Text: "阿"}}, Readings: []ReadingElement{{Text: "お"}},
			Senses: []Sense{{Glosses: glosses("prefix")}}},
	}

	_, err := NewImporter(dictID, Options{}).Import(context.Background(), s.DB, entries)
	require.NoError(t, err)

	assert.Equal(t, "sub-", meaningsOf(t, s, "亜"))
	assert.Equal(t, []string{"あ"}, readingsOf(t, s, "亜"))
	assert.Equal(t, "prefix", meaningsOf(t, s, "阿"))
	assert.Equal(t, []string{"お"}, readingsOf(t, s, "阿"))
}

func TestImportHeadwordWithoutSensesCreatesNoWord(t *testing.T) {
	s, dictID := setupStore(t)
	entry := Entry{Seq: 1, Kanji: []KanjiElement{{Text: "阿"}, {Text: "亜"}}, Readings: []ReadingElement{{Text: "あ"}},
		Senses: []Sense{{RestrictKanji: []string{"亜"}, Glosses: glosses("sub-")}}}

	stats, err := NewImporter(dictID, Options{}).Import(context.Background(), s.DB, []Entry{entry})
	require.NoError(t, err)

	_, err = db.GetWord(context.Background(), s.DB, "阿")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Equal(t, 1, stats.WordsInserted)
	assert.Equal(t, 1, stats.ReadingsInserted)
}

func TestImportCollapsesReadingVariants(t *testing.T) {
	s, dictID := setupStore(t)
	entry := Entry{
		Seq:      1358280,
		Kanji:    []KanjiElement{{Text: "食べる"}},
		Readings: []ReadingElement{{Text: "たべる"}, {Text: "タベル"}},
		Senses:   []Sense{{Glosses: glosses("eat")}, {Glosses: glosses("consume")}},
	}

	stats, err := NewImporter(dictID, Options{}).Import(context.Background(), s.DB, []Entry{entry})
	require.NoError(t, err)

	assert.Equal(t, []string{"たべる"}, readingsOf(t, s, "食べる"))
	assert.Equal(t, "eat\x1dconsume", meaningsOf(t, s, "食べる"))
	assert.Equal(t, 1, stats.ReadingsInserted)
}

func TestImportKeepsEnglishGlosses(t *testing.T) {
	s, dictID := setupStore(t)
	entry := Entry{
		Seq:      1,
		Kanji:    []KanjiElement{{Text: "犬"}},
		Readings: []ReadingElement{{Text: "いぬ"}},
		Senses: []Sense{
			{Glosses: []Gloss{{Text: "dog"}, {Text: "Hund", Lang: "ger"}, {Text: "hound", Lang: "eng"}}},
			{Glosses: []Gloss{{Text: "chien", Lang: "fre"}}},
		},
	}

	_, err := NewImporter(dictID, Options{}).Import(context.Background(), s.DB, []Entry{entry})
	require.NoError(t, err)

	assert.Equal(t, "dog"+db.GlossSeparator+"hound", meaningsOf(t, s, "犬"))
}

func TestImportSkipsUnconvertibleReadings(t *testing.T) {
	s, dictID := setupStore(t)
	entry := Entry{
		Seq:      1,
		Kanji:    []KanjiElement{{Text: "一円"}},
		Readings: []ReadingElement{{Text: "いちえん"}, {Text: "1えん"}, {Text: "イチエン"}},
		Senses:   []Sense{{Glosses: glosses("one yen")}},
	}

	stats, err := NewImporter(dictID, Options{}).Import(context.Background(), s.DB, []Entry{entry})
	require.NoError(t, err)

	assert.Equal(t, []string{"いちえん"}, readingsOf(t, s, "一円"))
	assert.Equal(t, 1, stats.ReadingsSkipped)
	assert.Equal(t, 1, stats.ReadingsInserted)
}

func TestImportOptions(t *testing.T) {
	entries := []Entry{
		{Seq: 1, Kanji: []KanjiElement{{Text: "猫"}}, Readings: []ReadingElement{{Text: "ねこ"}, {Text: "ニャンコ", NoKanji: &struct{}{}}},
			Senses: []Sense{{PartOfSpeech: []string{"n"}, Glosses: glosses("cat")}}},
		{Seq: 2, Kanji: []KanjiElement{{Text: "候"}}, Readings: []ReadingElement{{Text: "そうろう"}},
			Senses: []Sense{{PartOfSpeech: []string{"v5r"}, Misc: []string{"arch"}, Glosses: glosses("to serve")}}},
		{Seq: 3, Kanji: []KanjiElement{{Text: "走る"}}, Readings: []ReadingElement{{Text: "はしる"}},
			Senses: []Sense{{PartOfSpeech: []string{"v5r"}, Glosses: glosses("to run")}}},
	}

	t.Run("exclude", func(t *testing.T) {
		s, dictID := setupStore(t)
		stats, err := NewImporter(dictID, Options{ExcludeTags: []string{"arch"}}).Import(context.Background(), s.DB, entries)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Filtered)
		assert.Equal(t, 2, stats.WordsInserted)
		assert.ElementsMatch(t, []string{"ねこ", "にゃんこ"}, readingsOf(t, s, "猫"))
	})

	t.Run("filter", func(t *testing.T) {
		s, dictID := setupStore(t)
		stats, err := NewImporter(dictID, Options{FilterTags: []string{"v5r"}, ExcludeTags: []string{"arch"}}).Import(context.Background(), s.DB, entries)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Filtered)
		assert.Equal(t, 1, stats.WordsInserted)
		assert.Equal(t, "to run", meaningsOf(t, s, "走る"))
	})

	t.Run("skip nokanji", func(t *testing.T) {
		s, dictID := setupStore(t)
		stats, err := NewImporter(dictID, Options{SkipNoKanjiReadings: true}).Import(context.Background(), s.DB, entries)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ReadingsSkipped)
		assert.Equal(t, []string{"ねこ"}, readingsOf(t, s, "猫"))
	})
}

func TestImportStopsOnCancelledContext(t *testing.T) {
	s, dictID := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImporter(dictID, Options{}).Import(ctx, s.DB, []Entry{taberuEntry()})
	assert.ErrorIs(t, err, context.Canceled)
}
