package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateType(t *testing.T) {
	assert.Equal(t, TypeInventoryUpdated, TranslateType("offer_stock_changed"))
	assert.Equal(t, TypeOrderUpdated, TranslateType("ORDER_PAID"))
	assert.Equal(t, "offer.archived", TranslateType("OFFER_ARCHIVED"))
}

func TestSynthesizeID(t *testing.T) {
	id := SynthesizeID("ORDER_PAID", "O1", "2024-01-01T10:00:00Z")
	assert.True(t, strings.HasPrefix(id, "syn-"))
	assert.Equal(t, id, SynthesizeID("ORDER_PAID", "O1", "2024-01-01T10:00:00Z"))
	assert.NotEqual(t, id, SynthesizeID("ORDER_PAID", "O1", "2024-01-01T10:00:01Z"))
}

func TestSynthesizeIDFromPayload(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		left      string
		right     string
		same      bool
	}{
		{
			name:      "identical payloads",
			eventType: "ORDER_PAID",
			left:      `{"order":{"id":"O1"}}`,
			right:     `{"order":{"id":"O1"}}`,
			same:      true,
		},
		{
			name:      "whitespace only differences",
			eventType: "ORDER_PAID",
			left:      `{"order":{"id":"O1"}}`,
			right:     "{\n  \"order\": {\"id\": \"O1\"}\n}",
			same:      true,
		},
		{
			name:      "different payloads",
			eventType: "ORDER_PAID",
			left:      `{"order":{"id":"O1"}}`,
			right:     `{"order":{"id":"O2"}}`,
			same:      false,
		},
		{
			name:      "non json payloads are hashed as is",
			eventType: "ORDER_PAID",
			left:      `not json`,
			right:     `not json`,
			same:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left := SynthesizeIDFromPayload(tt.eventType, []byte(tt.left))
			right := SynthesizeIDFromPayload(tt.eventType, []byte(tt.right))
			assert.True(t, strings.HasPrefix(left, "syn-"))
			if tt.same {
				assert.Equal(t, left, right)
			} else {
				assert.NotEqual(t, left, right)
			}
		})
	}

	t.Run("type is part of the id", func(t *testing.T) {
		payload := []byte(`{"order":{"id":"O1"}}`)
		assert.NotEqual(t,
			SynthesizeIDFromPayload("ORDER_PAID", payload),
			SynthesizeIDFromPayload("ORDER_SENT", payload),
		)
	})
}
