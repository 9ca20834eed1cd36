package bano

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimirsbrunn/internal/model"
)

const sampleCSV = `id,house_number,street,city,postcode,lat,lon
bano:1,20,Avenue de Segur,Paris,75007,48.850,2.303
bano:2,22,Avenue de Segur,Paris,75007,48.851,2.304
`

func TestIngestCSVSynthesizesOneStreetPerRowGroup(t *testing.T) {
	out := make(chan model.Document, 10)

	err := IngestCSV(context.Background(), strings.NewReader(sampleCSV), nil, out)
	require.NoError(t, err)
	close(out)

	var streets, addrs int
	for d := range out {
		switch d.DocType() {
		case string(model.TypeStreet):
			streets++
		case string(model.TypeAddr):
			addrs++
		}
	}
	assert.Equal(t, 1, streets)
	assert.Equal(t, 2, addrs)
}

func TestIngestCSVSkipsRowsWithBadCoordinates(t *testing.T) {
	csv := "id,house_number,street,city,postcode,lat,lon\nbano:1,1,Rue X,Paris,75001,not-a-number,2.3\n"
	out := make(chan model.Document, 10)

	err := IngestCSV(context.Background(), strings.NewReader(csv), nil, out)
	require.NoError(t, err)
	close(out)

	var count int
	for range out {
		count++
	}
	assert.Equal(t, 0, count)
}
