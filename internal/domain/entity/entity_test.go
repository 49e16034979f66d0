package entity

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	table := NewTable([]string{" Date ", "Product"}, [][]string{
		{"2025-07-01"},
		{"2025-07-02", "Zinc", "extra"},
	})

	assert.Equal(t, []string{"Date", "Product"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.False(t, table.Rows[0][1].Valid, "short rows are padded with nulls")
	assert.Len(t, table.Rows[1], 2, "cells beyond the header are dropped")
	assert.Equal(t, "Zinc", table.Rows[1][1].Text)
	assert.Equal(t, -1, table.ColumnIndex("Revenue"))
}

func TestTableRenameLeavesOriginal(t *testing.T) {
	table := NewTable([]string{"Qty", "Product"}, [][]string{{"3", "Zinc"}})

	renamed := table.Rename(map[string]string{"Qty": "Units_Sold"})
	renamed.Rows[0][1] = StringCell("Aspirin")

	assert.True(t, renamed.HasColumn("Units_Sold"))
	assert.True(t, table.HasColumn("Qty"))
	assert.Equal(t, "Zinc", table.Rows[0][1].Text)
}

func TestConversation(t *testing.T) {
	at := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	conv := Conversation{ID: "c1", CreatedAt: at, UpdatedAt: at}

	t.Run("Append copies", func(t *testing.T) {
		first := conv.Append(ChatMessage{Role: RoleUser, Content: "hi", At: at.Add(time.Second)})
		second := first.Append(ChatMessage{Role: RoleAssistant, Content: "hello", At: at.Add(2 * time.Second)})

		assert.Empty(t, conv.Messages)
		assert.Len(t, first.Messages, 1)
		assert.Len(t, second.Messages, 2)
		assert.True(t, second.UpdatedAt.Equal(at.Add(2*time.Second)))
	})

	t.Run("Cleared keeps identity", func(t *testing.T) {
		cleared := conv.Append(ChatMessage{Role: RoleUser, Content: "hi", At: at}).Cleared(at.Add(time.Hour))

		assert.Equal(t, "c1", cleared.ID)
		assert.Empty(t, cleared.Messages)
		assert.True(t, cleared.UpdatedAt.Equal(at.Add(time.Hour)))
	})
}

func TestValidateQuestion(t *testing.T) {
	assert.NoError(t, ValidateQuestion("Which product sells best?"))
	assert.NoError(t, ValidateQuestion(strings.Repeat("é", MaxQuestionLength)), "length is counted in characters")

	err := ValidateQuestion(" \t ")
	assert.True(t, errors.Is(err, ErrInvalidQuestion))

	err = ValidateQuestion(strings.Repeat("a", MaxQuestionLength+1))
	assert.True(t, errors.Is(err, ErrInvalidQuestion))
}

func TestErrors(t *testing.T) {
	loadErr := &LoadError{Source: "sheet", Err: errors.New("status 404")}
	assert.Equal(t, "failed to load sheet: status 404", loadErr.Error())

	schemaErr := &SchemaError{Missing: []string{"Revenue", "Location"}}
	assert.Equal(t, "missing required columns: Revenue, Location", schemaErr.Error())

	rejection := RowRejection{Row: 3, Reasons: []string{"missing revenue", "negative units_sold"}}
	assert.Equal(t, "missing revenue; negative units_sold", rejection.Reason())
}
