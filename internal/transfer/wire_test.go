package transfer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRequest(t *testing.T, body string) *UploadRequest {
	t.Helper()
	var req UploadRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestToDeltaExplicitKinds(t *testing.T) {
	req := decodeRequest(t, `{
		"productName": "Shoe",
		"imagesBlob": [
			{"order": 1, "kind": "ref", "id": "img-1", "imageUrl": "/uploads/default/image-1.png"},
			{"order": 2, "kind": "inline", "data": "eA==", "fileType": "image/png"}
		],
		"removeImages": [{"id": "img-9"}]
	}`)

	d, meta, err := req.ToDelta()
	require.NoError(t, err)
	require.Len(t, d.Entries, 2)
	assert.Equal(t, Reference(1, "img-1"), d.Entries[0])
	assert.Equal(t, Entry{Order: 2, Kind: KindInline, Encoded: "eA==", ContentType: "image/png"}, d.Entries[1])
	assert.Equal(t, []string{"img-9"}, d.Removals)
	require.NotNil(t, meta.ProductName)
	assert.Equal(t, "Shoe", *meta.ProductName)
	assert.Nil(t, meta.Description)
}

func TestToDeltaInfersLegacyKinds(t *testing.T) {
	req := decodeRequest(t, `{
		"productName": "Shoe", "des": "d",
		"imagesBlob": [
			{"order": 1, "data": "eA==", "fileType": "image/jpeg"},
			{"order": 2, "id": "img-1", "imageUrl": "http://x/image-1.png"}
		]
	}`)

	d, _, err := req.ToDelta()
	require.NoError(t, err)
	assert.Equal(t, KindInline, d.Entries[0].Kind)
	assert.Equal(t, KindReference, d.Entries[1].Kind)
	assert.Equal(t, "img-1", d.Entries[1].RefID)
}

func TestToDeltaRejectsMalformed(t *testing.T) {
	bodies := map[string]string{
		"missing imagesBlob":     `{"productName": "x"}`,
		"null imagesBlob":        `{"imagesBlob": null}`,
		"missing order":          `{"imagesBlob": [{"id": "a"}]}`,
		"negative order":         `{"imagesBlob": [{"order": -1, "id": "a"}]}`,
		"untyped entry":          `{"imagesBlob": [{"order": 1}]}`,
		"ref from url only":      `{"imagesBlob": [{"order": 1, "imageUrl": "http://x"}]}`,
		"inline without type":    `{"imagesBlob": [{"order": 1, "data": "eA=="}]}`,
		"bad kind":               `{"imagesBlob": [{"order": 1, "kind": "blob", "id": "a"}]}`,
		"removal without id":     `{"imagesBlob": [], "removeImages": [{}]}`,
		"explicit ref no id":     `{"imagesBlob": [{"order": 1, "kind": "ref", "data": "eA=="}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, _, err := decodeRequest(t, body).ToDelta()
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestToDeltaDuplicateOrder(t *testing.T) {
	req := decodeRequest(t, `{"imagesBlob": [
		{"order": 1, "kind": "ref", "id": "a"},
		{"order": 1, "kind": "ref", "id": "b"}
	]}`)

	_, _, err := req.ToDelta()
	assert.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestEmptyImagesBlobIsValid(t *testing.T) {
	d, _, err := decodeRequest(t, `{"imagesBlob": [], "removeImages": [{"id": "a"}]}`).ToDelta()
	require.NoError(t, err)
	assert.Empty(t, d.Entries)
	assert.Equal(t, []string{"a"}, d.Removals)
}

func TestFromDeltaRoundTrip(t *testing.T) {
	name := "Shoe"
	d := Delta{
		Entries:  []Entry{Inline(1, []byte{1, 2, 3}, "image/png"), Reference(2, "img-1")},
		Removals: []string{"img-2"},
	}

	body, err := json.Marshal(FromDelta(Metadata{ProductName: &name}, d))
	require.NoError(t, err)

	got, meta, err := decodeRequest(t, string(body)).ToDelta()
	require.NoError(t, err)
	assert.Equal(t, d, got)
	assert.Equal(t, "Shoe", *meta.ProductName)
}
