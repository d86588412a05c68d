package transaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommitOutsideTransactionRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestAfterCommitDefersUntilCommitted(t *testing.T) {
	state := &State{}
	ctx := WithState(context.Background(), state)

	var order []int
	AfterCommit(ctx, func() { order = append(order, 1) })
	AfterCommit(ctx, func() { order = append(order, 2) })
	assert.Empty(t, order)

	state.Committed()
	assert.Equal(t, []int{1, 2}, order)

	state.Committed()
	assert.Equal(t, []int{1, 2}, order, "hooks must run once")
}
