package domain_test

import (
	"testing"

	"pixelgrid/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsDocument_RoundTrip(t *testing.T) {
	doc := domain.NewPointsDocument(8, 6)
	doc.Add(domain.Cell{X: 4, Y: 5}, "red")
	doc.Add(domain.Cell{X: 2, Y: 3}, "red")
	doc.Add(domain.Cell{X: 0, Y: 0}, "#00ff00")
	doc.Sort()

	data, err := doc.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"format":"pixelgrid/points","version":1,"width":8,"height":6,
		"points":{"red":[[2,3],[4,5]],"#00ff00":[[0,0]]}}`, string(data))

	parsed, err := domain.ParsePointsDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc.State(), parsed.State())
	assert.Equal(t, 3, parsed.Len())
}

func TestParsePointsDocument_Rejects(t *testing.T) {
	cases := map[string]string{
		"wrong format":    `{"format":"other","version":1,"points":{}}`,
		"future version":  `{"format":"pixelgrid/points","version":2,"points":{}}`,
		"duplicate point": `{"format":"pixelgrid/points","version":1,"points":{"red":[[1,1]],"blue":[[1,1]]}}`,
		"bad color":       `{"format":"pixelgrid/points","version":1,"points":{"no pe":[[1,1]]}}`,
		"duplicate color": `{"format":"pixelgrid/points","version":1,"points":{"red":[[1,1]],"RED":[[2,2]]}}`,
		"not json":        `points`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := domain.ParsePointsDocument([]byte(input))
			assert.ErrorIs(t, err, domain.ErrInvalidDocument)
		})
	}
}

func TestParsePointsDocument_NormalizesColors(t *testing.T) {
	doc, err := domain.ParsePointsDocument([]byte(
		`{"format":"pixelgrid/points","version":1,"width":4,"height":4,"points":{"RED":[[1,1]]," #00FF00 ":[[2,2]]}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.BoardState{"1:1": "red", "2:2": "#00ff00"}, doc.State())
	assert.NotContains(t, doc.Points, domain.Color("RED"))
}

func TestDocumentFromState(t *testing.T) {
	state := domain.BoardState{"3:1": "red", "1:1": "red", "0:2": "blue"}
	doc, err := domain.DocumentFromState(4, 4, state)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 1}, {3, 1}}, doc.Points["red"])
	assert.Equal(t, [][2]int{{0, 2}}, doc.Points["blue"])

	_, err = domain.DocumentFromState(4, 4, domain.BoardState{"oops": "red"})
	assert.Error(t, err)
}
