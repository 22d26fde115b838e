package dictionary

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/kanjilab/pkg/source"
)

const jmdictXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE JMdict [
<!ELEMENT JMdict (entry*)>
<!ENTITY v1 "Ichidan verb">
<!ENTITY arch "archaic">
<!ENTITY iK "word containing irregular kanji usage">
]>
<JMdict>
<entry>
<ent_seq>1358280</ent_seq>
<k_ele><keb>食べる</keb></k_ele>
<k_ele><keb>喰べる</keb><ke_inf>&iK;</ke_inf></k_ele>
<r_ele><reb>たべる</reb></r_ele>
<sense><pos>&v1;</pos><gloss>to eat</gloss></sense>
<sense><stagk>食べる</stagk><misc>&arch;</misc><gloss>to live on (e.g. a salary)</gloss><gloss>to live off</gloss></sense>
</entry>
<entry>
<ent_seq>1080430</ent_seq>
<r_ele><reb>ナイフ</reb><re_nokanji/><re_restr>小刀</re_restr></r_ele>
<sense><gloss xml:lang="eng">knife</gloss></sense>
</entry>
</JMdict>
`

func TestDecodeJMdict(t *testing.T) {
	entries, err := DecodeJMdict(strings.NewReader(jmdictXML))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	e := entries[0]
	assert.Equal(t, 1358280, e.Seq)
	require.Len(t, e.Kanji, 2)
	assert.Equal(t, "喰べる", e.Kanji[1].Text)
	assert.Equal(t, []string{"iK"}, e.Kanji[1].Info)
	require.Len(t, e.Senses, 2)
	assert.Equal(t, []string{"v1"}, e.Senses[0].PartOfSpeech)
	assert.Equal(t, []string{"食べる"}, e.Senses[1].RestrictKanji)
	assert.Equal(t, []Gloss{{Text: "to live on (e.g. a salary)"}, {Text: "to live off"}}, e.Senses[1].Glosses)
	assert.ElementsMatch(t, []string{"v1", "arch", "iK"}, e.Tags())

	r := entries[1].Readings[0]
	assert.True(t, r.IsNoKanji())
	assert.Equal(t, []string{"小刀"}, r.Restrict)
	assert.Equal(t, "eng", entries[1].Senses[0].Glosses[0].Lang)
	assert.False(t, e.Readings[0].IsNoKanji())
}

func TestDecodeJMdictMalformed(t *testing.T) {
	_, err := DecodeJMdict(strings.NewReader(`<JMdict><entry><ent_seq>1</ent_seq><k_ele>`))
	assert.Error(t, err)

	_, err = DecodeJMdict(strings.NewReader(`<JMdict><entry><ent_seq>1</ent_seq><sense><pos>&undeclared;</pos></sense></entry></JMdict>`))
	assert.Error(t, err)
}

func TestDecodeJMdictSimplified(t *testing.T) {
	content := `{
  "words": [
    {
      "id": "1",
      "kanji": [{"text": "犬", "common": true, "tags": []}],
      "kana": [{"text": "いぬ", "common": true, "tags": [], "appliesToKanji": ["*"]}],
      "sense": [{"gloss": [{"lang": "eng", "text": "dog"}], "partOfSpeech": ["n"], "appliesToKanji": ["*"], "appliesToKana": ["*"]}]
    },
    {
      "id": "2",
      "kanji": [{"text": "日本"}, {"text": "大和"}],
      "kana": [
        {"text": "にほん", "appliesToKanji": ["日本"]},
        {"text": "ジャパン", "appliesToKanji": []}
      ],
      "sense": [{"gloss": [{"text": "Japan"}], "appliesToKanji": ["日本"]}]
    }
  ]
}`
	entries, err := DecodeJMdictSimplified(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 1, entries[0].Seq)
	assert.Empty(t, entries[0].Readings[0].Restrict)
	assert.Empty(t, entries[0].Senses[0].RestrictKanji)
	assert.Equal(t, []string{"n"}, entries[0].Senses[0].PartOfSpeech)

	assert.Equal(t, []string{"日本"}, entries[1].Readings[0].Restrict)
	assert.True(t, entries[1].Readings[1].IsNoKanji())
	assert.Equal(t, []string{"日本"}, entries[1].Senses[0].RestrictKanji)

	arr, err := DecodeJMdictSimplified(strings.NewReader(`[{"id":"3","kanji":[{"text":"猫"}],"kana":[{"text":"ねこ"}],"sense":[]}]`))
	require.NoError(t, err)
	require.Len(t, arr, 1)
	assert.Equal(t, "猫", arr[0].Kanji[0].Text)

	_, err = DecodeJMdictSimplified(strings.NewReader(`[{"id":"x7","kanji":[{"text":"猫"}],"kana":[],"sense":[]}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"x7"`)
}

func TestLoadLexicon(t *testing.T) {
	dir := t.TempDir()

	gzPath := filepath.Join(dir, "JMdict_e.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(jmdictXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	entries, err := LoadLexicon(gzPath)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	jsonPath := filepath.Join(dir, "jmdict-eng-common.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"words":[{"id":"1","kanji":[{"text":"犬"}],"kana":[{"text":"いぬ"}]}]}`), 0o644))
	entries, err = LoadLexicon(jsonPath)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	badPath := filepath.Join(dir, "broken.xml")
	require.NoError(t, os.WriteFile(badPath, []byte(`<JMdict><entry>`), 0o644))
	_, err = LoadLexicon(badPath)
	var perr *source.ParseError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, badPath, perr.Path)
}
