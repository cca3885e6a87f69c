package parking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketFormatterFormat(t *testing.T) {
	f := NewTicketFormatter(nil)

	text := f.Format("B1234XYZ", t0)

	expected := "Parking Ticket\n\nVehicle Number: B1234XYZ\nEntry Time: 2024-03-14 09:26:53\n\nPlease keep this ticket for exit."
	assert.Equal(t, expected, text)
}

func TestTicketFormatterIssue(t *testing.T) {
	encoder := &fakeEncoder{img: []byte("png-bytes")}
	f := NewTicketFormatter(encoder)
	session := NewParkingSession("B1234XYZ", t0)

	ticket, err := f.Issue(session)
	require.NoError(t, err)

	assert.Equal(t, session.ID, ticket.SessionID)
	assert.Contains(t, ticket.Text, "B1234XYZ")
	assert.Equal(t, []byte("png-bytes"), ticket.Barcode)
	assert.True(t, ticket.HasBarcode())
	assert.Equal(t, []string{"B1234XYZ"}, encoder.calls)
}

func TestTicketFormatterIssueDegradesWithoutBarcode(t *testing.T) {
	f := NewTicketFormatter(&fakeEncoder{err: errors.New("unsupported character")})

	ticket, err := f.Issue(NewParkingSession("PLÄTE", t0))

	require.ErrorIs(t, err, ErrBarcode)
	assert.Contains(t, err.Error(), "unsupported character")
	require.NotNil(t, ticket)
	assert.Contains(t, ticket.Text, "PLÄTE")
	assert.False(t, ticket.HasBarcode())
}

func TestTicketFormatterWithoutEncoder(t *testing.T) {
	_, err := NewTicketFormatter(nil).RenderBarcode("B1234XYZ")

	assert.ErrorIs(t, err, ErrBarcode)
}
